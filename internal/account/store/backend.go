package store

import "context"

// KV is a flat string-keyed document store. Each Set is an atomic
// overwrite of one key. Get returns ErrNotFound for absent keys; deleting
// an absent key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Backend is implemented by storage drivers.
type Backend interface {
	KV

	Begin(ctx context.Context) (BackendTx, error)
	ApplyMigrations() error
	Ping(ctx context.Context) error
	Close() error
}

// BackendTx buffers or scopes writes until Commit.
type BackendTx interface {
	KV

	Commit() error
	Rollback() error
}
