package redis_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/internal/account/store/drivers/redis"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway redis container and returns its address.
func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in -short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisBackend(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()

	b, err := redis.NewBackend(ctx, redis.Options{Addr: addr, Namespace: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	t.Run("kv", func(t *testing.T) {
		_, err := b.Get(ctx, "app_settings")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, b.Set(ctx, "app_settings", []byte(`{}`)))
		v, err := b.Get(ctx, "app_settings")
		require.NoError(t, err)
		require.Equal(t, `{}`, string(v))

		require.NoError(t, b.Delete(ctx, "app_settings"))
		require.NoError(t, b.Delete(ctx, "app_settings"))
	})

	t.Run("keys by prefix", func(t *testing.T) {
		for _, k := range []string{"current_session:b", "current_session:a", "entitlement:x"} {
			require.NoError(t, b.Set(ctx, k, []byte(`{}`)))
		}
		keys, err := b.Keys(ctx, "current_session:")
		require.NoError(t, err)
		require.Equal(t, []string{"current_session:a", "current_session:b"}, keys)
	})

	t.Run("store round trip", func(t *testing.T) {
		s := store.New(b)
		a := domain.Account{ID: "a1", Email: "ruth@example.com", Role: domain.RoleUser}

		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.Accounts().Create(ctx, a))
			got, err := tx.Accounts().Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, a.Email, got.Email)
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Accounts().Get(ctx, "a1")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Accounts().Create(ctx, a); err != nil {
				return err
			}
			return tx.Sessions().Delete(ctx, "a")
		}))

		got, err := s.Accounts().Get(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, a.Email, got.Email)

		keys, err := b.Keys(ctx, store.PrefixSession)
		require.NoError(t, err)
		require.Equal(t, []string{"current_session:b"}, keys)
	})
}

// newMiniBackend connects a backend to an in-process redis server.
func newMiniBackend(t *testing.T, addr string) *redis.Backend {
	t.Helper()
	b, err := redis.NewBackend(context.Background(), redis.Options{Addr: addr, Namespace: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestConcurrentQuestionsHonourQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	st := store.New(newMiniBackend(t, mr.Addr()))
	svc := &service.EntitlementService{Store: st, FreeQuestions: 3}
	sess := &domain.Session{ID: "s1", Account: domain.Public{ID: "a1", Role: domain.RoleUser}}

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allowed   int
		exhausted int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := svc.AskQuestion(ctx, sess)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && d.Allowed:
				allowed++
			case errors.Is(err, service.ErrEntitlementExhausted):
				exhausted++
			default:
				t.Errorf("unexpected result: %+v, %v", d, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, allowed)
	require.Equal(t, attempts-3, exhausted)

	e, err := st.Entitlements().Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 3, e.QuestionsAsked)
}

func TestCommitDetectsForeignWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	// Two backends stand in for two service instances sharing one server.
	mine := newMiniBackend(t, mr.Addr())
	theirs := newMiniBackend(t, mr.Addr())

	t.Run("changed key", func(t *testing.T) {
		require.NoError(t, mine.Set(ctx, "entitlement:a1", []byte(`{"questionsAsked":1}`)))

		tx, err := mine.Begin(ctx)
		require.NoError(t, err)
		_, err = tx.Get(ctx, "entitlement:a1")
		require.NoError(t, err)

		require.NoError(t, theirs.Set(ctx, "entitlement:a1", []byte(`{"questionsAsked":2}`)))

		require.NoError(t, tx.Set(ctx, "entitlement:a1", []byte(`{"questionsAsked":2}`)))
		require.ErrorIs(t, tx.Commit(), store.ErrConflict)
		require.NoError(t, tx.Rollback())
	})

	t.Run("new key under scanned prefix", func(t *testing.T) {
		tx, err := mine.Begin(ctx)
		require.NoError(t, err)
		_, err = tx.Keys(ctx, "current_session:")
		require.NoError(t, err)

		require.NoError(t, theirs.Set(ctx, "current_session:x", []byte(`{}`)))

		require.NoError(t, tx.Delete(ctx, "current_session:y"))
		require.ErrorIs(t, tx.Commit(), store.ErrConflict)
	})

	t.Run("untouched reads commit", func(t *testing.T) {
		tx, err := mine.Begin(ctx)
		require.NoError(t, err)
		_, err = tx.Get(ctx, "entitlement:a1")
		require.NoError(t, err)
		require.NoError(t, tx.Set(ctx, "entitlement:a1", []byte(`{"questionsAsked":3}`)))
		require.NoError(t, tx.Commit())

		v, err := theirs.Get(ctx, "entitlement:a1")
		require.NoError(t, err)
		require.Equal(t, `{"questionsAsked":3}`, string(v))
	})
}

func TestBeginWaitsForRunningTransaction(t *testing.T) {
	mr := miniredis.RunT(t)
	b := newMiniBackend(t, mr.Addr())

	tx, err := b.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = b.Begin(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback())
	next, err := b.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, next.Rollback())
}
