package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/aussiebroadwan/biblenation/internal/account/store"
	_ "modernc.org/sqlite"
)

// Backend keeps every key in a single kv table.
type Backend struct {
	db  *sql.DB
	dsn string
}

// NewBackend opens dsn. A single connection is used so ":memory:" databases
// survive across calls and writers never contend.
func NewBackend(dsn string) (*Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Backend{db: db, dsn: dsn}, nil
}

// NewStore opens dsn and wraps it as a store.Store.
func NewStore(dsn string) (store.Store, error) {
	b, err := NewBackend(dsn)
	if err != nil {
		return nil, err
	}
	return store.New(b), nil
}

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Begin(ctx context.Context) (store.BackendTx, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &backendTx{tx: tx, q: queries{db: tx}}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	return queries{db: b.db}.get(ctx, key)
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	return queries{db: b.db}.set(ctx, key, value)
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return queries{db: b.db}.delete(ctx, key)
}

func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	return queries{db: b.db}.keys(ctx, prefix)
}

type backendTx struct {
	tx *sql.Tx
	q  queries
}

func (t *backendTx) Get(ctx context.Context, key string) ([]byte, error) { return t.q.get(ctx, key) }

func (t *backendTx) Set(ctx context.Context, key string, value []byte) error {
	return t.q.set(ctx, key, value)
}

func (t *backendTx) Delete(ctx context.Context, key string) error { return t.q.delete(ctx, key) }

func (t *backendTx) Keys(ctx context.Context, prefix string) ([]string, error) {
	return t.q.keys(ctx, prefix)
}

func (t *backendTx) Commit() error { return t.tx.Commit() }

func (t *backendTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

const (
	getValue = `SELECT value FROM kv WHERE key = ?`
	setValue = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteValue = `DELETE FROM kv WHERE key = ?`
	listKeys    = `SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`
)

func (q queries) get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	if err := q.db.QueryRowContext(ctx, getValue, key).Scan(&v); err != nil {
		return nil, mapNotFound(err)
	}
	return v, nil
}

func (q queries) set(ctx context.Context, key string, value []byte) error {
	_, err := q.db.ExecContext(ctx, setValue, key, value)
	return err
}

func (q queries) delete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteValue, key)
	return err
}

// keys matches by substr rather than LIKE so "_" and "%" in ids are literal.
func (q queries) keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, rows.Err()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
