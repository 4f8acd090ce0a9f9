package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection. Namespace is prepended to every
// key so several deployments can share a database.
type Options struct {
	Addr        string
	Password    string
	DB          int
	Namespace   string
	DialTimeout time.Duration
	Timeout     time.Duration
}

// Backend stores each key as a plain Redis string.
type Backend struct {
	rdb *redis.Client
	ns  string
	sem chan struct{} // one transaction at a time per process
}

// NewBackend connects and pings the server.
func NewBackend(ctx context.Context, opts Options) (*Backend, error) {
	const op = "redis.NewBackend"

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Backend{rdb: rdb, ns: opts.Namespace, sem: make(chan struct{}, 1)}, nil
}

// NewStore connects and wraps the backend as a store.Store.
func NewStore(ctx context.Context, opts Options) (store.Store, error) {
	b, err := NewBackend(ctx, opts)
	if err != nil {
		return nil, err
	}
	return store.New(b), nil
}

// ApplyMigrations is a no-op; Redis keys carry no schema.
func (b *Backend) ApplyMigrations() error { return nil }

func (b *Backend) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

func (b *Backend) Close() error { return b.rdb.Close() }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.rdb.Get(ctx, b.ns+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	return v, err
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	return b.rdb.Set(ctx, b.ns+key, value, 0).Err()
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, b.ns+key).Err()
}

func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := b.rdb.Scan(ctx, 0, escapeGlob(b.ns+prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), b.ns))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Begin admits one transaction at a time in this process and returns it.
// Writes are buffered and flushed with MULTI/EXEC on Commit. Every key and
// prefix the transaction reads is watched at commit; if another client
// changed one since it was read, Commit fails with store.ErrConflict.
func (b *Backend) Begin(ctx context.Context) (store.BackendTx, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &backendTx{
		b:      b,
		writes: map[string][]byte{},
		reads:  map[string]snapshot{},
		scans:  map[string][]string{},
	}, nil
}

// snapshot is the value of a key when the transaction first read it.
type snapshot struct {
	value []byte
	found bool
}

type backendTx struct {
	b *Backend

	mu       sync.Mutex
	writes   map[string][]byte // nil value means delete
	reads    map[string]snapshot
	scans    map[string][]string // prefix -> keys seen
	done     bool
	released bool
}

func (t *backendTx) Get(ctx context.Context, key string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil, store.ErrNotFound
		}
		return slices.Clone(v), nil
	}

	snap, ok := t.reads[key]
	if !ok {
		v, err := t.b.Get(ctx, key)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			snap = snapshot{value: v, found: true}
		}
		t.reads[key] = snap
	}
	if !snap.found {
		return nil, store.ErrNotFound
	}
	return slices.Clone(snap.value), nil
}

func (t *backendTx) Set(_ context.Context, key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[key] = slices.Clone(value)
	return nil
}

func (t *backendTx) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.writes[key] = nil
	return nil
}

func (t *backendTx) Keys(ctx context.Context, prefix string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys, ok := t.scans[prefix]
	if !ok {
		var err error
		if keys, err = t.b.Keys(ctx, prefix); err != nil {
			return nil, err
		}
		t.scans[prefix] = keys
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := t.writes[k]; ok && v == nil {
			continue
		}
		out = append(out, k)
	}
	for k, v := range t.writes {
		if v != nil && strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (t *backendTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.done = true
	defer t.release()

	if len(t.writes) == 0 {
		return nil
	}

	ctx := context.Background()
	watched := make([]string, 0, len(t.reads))
	for k := range t.reads {
		watched = append(watched, t.b.ns+k)
	}

	err := t.b.rdb.Watch(ctx, func(rtx *redis.Tx) error {
		if err := t.verify(ctx, rtx); err != nil {
			return err
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range t.writes {
				if v == nil {
					pipe.Del(ctx, t.b.ns+k)
					continue
				}
				pipe.Set(ctx, t.b.ns+k, v, 0)
			}
			return nil
		})
		return err
	}, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrConflict
	}
	return err
}

// verify fails with store.ErrConflict when a key or prefix read by the
// transaction no longer matches what it saw. Runs after WATCH, so any
// later change aborts EXEC instead.
func (t *backendTx) verify(ctx context.Context, rtx *redis.Tx) error {
	for k, snap := range t.reads {
		v, err := rtx.Get(ctx, t.b.ns+k).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			found = false
		} else if err != nil {
			return err
		}
		if found != snap.found || !bytes.Equal(v, snap.value) {
			return store.ErrConflict
		}
	}
	for prefix, seen := range t.scans {
		keys, err := t.b.Keys(ctx, prefix)
		if err != nil {
			return err
		}
		if !slices.Equal(keys, seen) {
			return store.ErrConflict
		}
	}
	return nil
}

func (t *backendTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.writes = map[string][]byte{}
	t.release()
	return nil
}

// release hands the transaction slot back. Caller holds t.mu.
func (t *backendTx) release() {
	if t.released {
		return
	}
	t.released = true
	<-t.b.sem
}

var errTxDone = errors.New("redis: transaction already finished")

// escapeGlob quotes the SCAN MATCH metacharacters in s.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
