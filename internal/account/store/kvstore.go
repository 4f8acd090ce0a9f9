package store

import (
	"context"
	"errors"
)

// kvStore implements Store on top of any KV. The same type serves both the
// root store (kv is the Backend) and transactions (kv is a BackendTx).
type kvStore struct {
	backend Backend
	kv      KV
	tx      BackendTx
}

// New returns a Store backed by b.
func New(b Backend) Store {
	return &kvStore{backend: b, kv: b}
}

func (s *kvStore) Accounts() Accounts           { return &accountsRepo{kv: s.kv} }
func (s *kvStore) Sessions() Sessions           { return &sessionsRepo{kv: s.kv} }
func (s *kvStore) Notifications() Notifications { return &notificationsRepo{kv: s.kv} }
func (s *kvStore) Entitlements() Entitlements   { return &entitlementsRepo{kv: s.kv} }
func (s *kvStore) EmailLog() EmailLog           { return &emailLogRepo{kv: s.kv} }
func (s *kvStore) ResetTickets() ResetTickets   { return &resetTicketsRepo{kv: s.kv} }
func (s *kvStore) Settings() Settings           { return &settingsRepo{kv: s.kv} }

func (s *kvStore) ApplyMigrations() error {
	if s.tx != nil {
		return nil // migrations run before any transaction
	}
	return s.backend.ApplyMigrations()
}

func (s *kvStore) Tx(ctx context.Context) (Tx, error) {
	if s.tx != nil {
		return nil, ErrNestedTx
	}
	tx, err := s.backend.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &kvStore{backend: s.backend, kv: tx, tx: tx}, nil
}

func (s *kvStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *kvStore) Commit() error {
	if s.tx == nil {
		return errors.New("store: commit outside transaction")
	}
	return s.tx.Commit()
}

func (s *kvStore) Rollback() error {
	if s.tx == nil {
		return errors.New("store: rollback outside transaction")
	}
	return s.tx.Rollback()
}

func (s *kvStore) Close() error {
	if s.tx != nil {
		return nil // outer store owns the connection
	}
	return s.backend.Close()
}

func (s *kvStore) Ping(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	return s.backend.Ping(ctx)
}
