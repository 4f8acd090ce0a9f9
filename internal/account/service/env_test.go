package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/internal/account/store/drivers/sqlite"
	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testAdminEmail    = "admin@biblenation.com"
	testAdminPassword = "admin123"
	testSecret        = "test-session-secret-0123456789abcdef"
)

// fakeClock is a settable clock shared by every service in a testEnv.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testEnv struct {
	ctx   context.Context
	clock *fakeClock
	store store.Store
	hub   *events.Hub

	sessions      *SessionService
	notifications *NotificationService
	accounts      *AccountService
	entitlements  *EntitlementService
	resets        *PasswordResetService
	settings      *SettingsService
	stats         *StatsService
	bootstrap     *BootstrapService
}

// cheapHasher keeps argon2 fast in tests.
func cheapHasher() *cryptox.PasswordHasher {
	return &cryptox.PasswordHasher{Params: cryptox.Params{
		Memory:      64,
		Iterations:  1,
		Parallelism: 1,
		KeyLength:   16,
		SaltLength:  8,
	}}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	now := Clock(clock.Now)
	hub := events.NewHub(64)
	t.Cleanup(hub.Close)
	m := metrics.New()
	hasher := cheapHasher()

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256([]byte(testSecret), jwtx.WithIssuer("biblenation-test"), jwtx.WithClock(clock.Now))
	require.NoError(t, err)

	sessions := &SessionService{Store: st, Signer: signer, Verifier: verifier, Issuer: "biblenation-test", TTL: 30 * 24 * time.Hour, Clock: now}
	notifications := &NotificationService{Store: st, Events: hub, Metrics: m, Clock: now, AdminEmail: testAdminEmail}

	env := &testEnv{
		ctx:           context.Background(),
		clock:         clock,
		store:         st,
		hub:           hub,
		sessions:      sessions,
		notifications: notifications,
		accounts: &AccountService{
			Store:         st,
			Sessions:      sessions,
			Notifications: notifications,
			Hasher:        hasher,
			Events:        hub,
			Metrics:       m,
			Clock:         now,
			Location:      time.UTC,
			AdminEmail:    testAdminEmail,
		},
		entitlements: &EntitlementService{
			Store:         st,
			Notifications: notifications,
			Events:        hub,
			Metrics:       m,
			Clock:         now,
			AdminEmail:    testAdminEmail,
		},
		resets: &PasswordResetService{
			Store:         st,
			Notifications: notifications,
			Hasher:        hasher,
			Metrics:       m,
			Clock:         now,
		},
		settings:  &SettingsService{Store: st},
		stats:     &StatsService{Store: st},
		bootstrap: &BootstrapService{Store: st, Hasher: hasher, Clock: now},
	}

	_, err = env.bootstrap.Seed(env.ctx, domain.SeedAccount{
		Email:     testAdminEmail,
		Password:  testAdminPassword,
		Name:      "Admin User",
		Role:      domain.RoleAdmin,
		Active:    true,
		Protected: true,
	})
	require.NoError(t, err)
	return env
}

// activeUser signs up, activates and logs in a user.
func (e *testEnv) activeUser(t *testing.T, email, password, name string) domain.Session {
	t.Helper()
	signup, err := e.accounts.Signup(e.ctx, email, password, name)
	require.NoError(t, err)
	_, err = e.accounts.Activate(e.ctx, signup.AccountID())
	require.NoError(t, err)
	sess, err := e.accounts.Login(e.ctx, email, password)
	require.NoError(t, err)
	return sess
}

func (e *testEnv) adminSession(t *testing.T) domain.Session {
	t.Helper()
	sess, err := e.accounts.Login(e.ctx, testAdminEmail, testAdminPassword)
	require.NoError(t, err)
	return sess
}

func (e *testEnv) account(t *testing.T, id string) domain.Account {
	t.Helper()
	a, err := e.store.Accounts().Get(e.ctx, id)
	require.NoError(t, err)
	return a
}
