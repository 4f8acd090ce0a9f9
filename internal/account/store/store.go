package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNestedTx      = errors.New("store: nested transaction")

	// ErrConflict is returned by Commit when data the transaction read was
	// changed by another writer before it committed.
	ErrConflict = errors.New("store: transaction conflict")
)

// Store is the root data access interface. It exposes one sub-repository
// per key family so services never touch raw keys.
type Store interface {
	Accounts() Accounts
	Sessions() Sessions
	Notifications() Notifications
	Entitlements() Entitlements
	EmailLog() EmailLog
	ResetTickets() ResetTickets
	Settings() Settings

	ApplyMigrations() error

	// Tx starts a transaction and returns a Tx-scoped Store. The caller
	// must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// List returns every stored account in insertion order.
	List(ctx context.Context) ([]domain.Account, error)

	Get(ctx context.Context, id string) (domain.Account, error)

	// GetByEmail matches the stored email exactly.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// Create appends a; ErrAlreadyExists if the id or email is taken.
	Create(ctx context.Context, a domain.Account) error

	// Update replaces the record with the same id.
	Update(ctx context.Context, a domain.Account) error

	// Delete removes the record entirely.
	Delete(ctx context.Context, id string) error
}

type Sessions interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	Put(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context, id string) error

	// List returns every live session slot.
	List(ctx context.Context) ([]domain.Session, error)
}

type Notifications interface {
	// List returns the queue newest first; an absent queue is empty.
	List(ctx context.Context, audience domain.Audience) ([]domain.Notification, error)

	// Replace overwrites the whole queue.
	Replace(ctx context.Context, audience domain.Audience, queue []domain.Notification) error

	// Clear removes the queue key.
	Clear(ctx context.Context, audience domain.Audience) error
}

type Entitlements interface {
	Get(ctx context.Context, accountID string) (domain.Entitlement, error)
	Put(ctx context.Context, e domain.Entitlement) error
	Delete(ctx context.Context, accountID string) error
}

type EmailLog interface {
	List(ctx context.Context) ([]domain.EmailLogEntry, error)
	Append(ctx context.Context, e domain.EmailLogEntry) error
}

type ResetTickets interface {
	Get(ctx context.Context) (domain.ResetTicket, error)
	Put(ctx context.Context, t domain.ResetTicket) error
	Clear(ctx context.Context) error
}

type Settings interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, s domain.Settings) error
}
