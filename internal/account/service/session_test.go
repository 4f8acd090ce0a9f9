package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestSession_TokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	token, err := env.sessions.Token(sess)
	require.NoError(t, err)

	p, err := env.sessions.ResolveToken(env.ctx, token)
	require.NoError(t, err)
	require.Equal(t, sess.AccountID(), p.AccountID)
	require.Equal(t, sess.ID, p.SessionID)
	require.Equal(t, "user", p.Role)
	require.NotNil(t, p.Session)

	t.Run("logout invalidates the token", func(t *testing.T) {
		require.NoError(t, env.accounts.Logout(env.ctx, sess.ID))
		_, err := env.sessions.ResolveToken(env.ctx, token)
		require.ErrorIs(t, err, httpx.ErrNoSession)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.sessions.ResolveToken(env.ctx, "not-a-jwt")
		require.Error(t, err)
	})
}

func TestSession_ExpiresAfterTTL(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	env.clock.Advance(31 * 24 * time.Hour)

	live, err := env.sessions.Resolve(env.ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, live)

	n, err := env.sessions.PruneExpired(env.ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)

	all, err := env.store.Sessions().List(env.ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestSession_ResolveAbsent(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"", "missing"} {
		live, err := env.sessions.Resolve(env.ctx, id)
		require.NoError(t, err)
		require.Nil(t, live)
	}
}
