package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/stretchr/testify/require"
)

func TestPasswordReset_Flow(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "a@x.com", "pw123456", "Ann")

	ticket, err := env.resets.RequestReset(env.ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, ticket.Code, 6)

	log, err := env.notifications.EmailLog(env.ctx)
	require.NoError(t, err)
	last := log[len(log)-1]
	require.Equal(t, "a@x.com", last.To)
	require.Contains(t, last.Body, ticket.Code)

	// Completing before verification fails.
	require.ErrorIs(t, env.resets.CompleteReset(env.ctx, "newpass1", "newpass1"), ErrInvalidResetCode)

	wrong := "000000"
	if ticket.Code == wrong {
		wrong = "111111"
	}
	require.ErrorIs(t, env.resets.VerifyCode(env.ctx, wrong), ErrInvalidResetCode)
	require.NoError(t, env.resets.VerifyCode(env.ctx, ticket.Code))

	require.ErrorIs(t, env.resets.CompleteReset(env.ctx, "abc", "abc"), ErrValidation)
	require.ErrorIs(t, env.resets.CompleteReset(env.ctx, "newpass1", "newpass2"), ErrValidation)
	require.NoError(t, env.resets.CompleteReset(env.ctx, "newpass1", "newpass1"))

	_, err = env.store.ResetTickets().Get(env.ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.accounts.Login(env.ctx, "a@x.com", "newpass1")
	require.NoError(t, err)
}

func TestPasswordReset_Expiry(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "a@x.com", "pw123456", "Ann")

	ticket, err := env.resets.RequestReset(env.ctx, "a@x.com")
	require.NoError(t, err)

	env.clock.Advance(5*time.Minute + time.Second)
	require.ErrorIs(t, env.resets.VerifyCode(env.ctx, ticket.Code), ErrExpiredResetCode)

	_, err = env.store.ResetTickets().Get(env.ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Now it fails for absence.
	require.ErrorIs(t, env.resets.VerifyCode(env.ctx, ticket.Code), ErrInvalidResetCode)
}

func TestPasswordReset_ExactlyFiveMinutesIsValid(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "a@x.com", "pw123456", "Ann")

	ticket, err := env.resets.RequestReset(env.ctx, "a@x.com")
	require.NoError(t, err)

	env.clock.Advance(5 * time.Minute)
	require.NoError(t, env.resets.VerifyCode(env.ctx, ticket.Code))
}

func TestPasswordReset_NewRequestReplacesTicket(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "a@x.com", "pw123456", "Ann")
	env.activeUser(t, "b@x.com", "pw123456", "Bob")

	_, err := env.resets.RequestReset(env.ctx, "a@x.com")
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	second, err := env.resets.RequestReset(env.ctx, "b@x.com")
	require.NoError(t, err)

	stored, err := env.store.ResetTickets().Get(env.ctx)
	require.NoError(t, err)
	require.Equal(t, "b@x.com", stored.Email)
	require.Equal(t, second.Code, stored.Code)

	resent, err := env.resets.ResendCode(env.ctx)
	require.NoError(t, err)
	require.Equal(t, "b@x.com", resent.Email)
}

func TestPasswordReset_Rejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.resets.RequestReset(env.ctx, "nobody@x.com")
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = env.resets.ResendCode(env.ctx)
	require.ErrorIs(t, err, ErrInvalidResetCode)

	// The admin may request a code but never complete the reset.
	ticket, err := env.resets.RequestReset(env.ctx, testAdminEmail)
	require.NoError(t, err)
	require.NoError(t, env.resets.VerifyCode(env.ctx, ticket.Code))
	require.ErrorIs(t, env.resets.CompleteReset(env.ctx, "newpass1", "newpass1"), ErrReservedAccount)

	_, err = env.accounts.Login(env.ctx, testAdminEmail, testAdminPassword)
	require.NoError(t, err)
}

func TestPasswordReset_ClearExpired(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "a@x.com", "pw123456", "Ann")

	cleared, err := env.resets.ClearExpired(env.ctx)
	require.NoError(t, err)
	require.False(t, cleared)

	_, err = env.resets.RequestReset(env.ctx, "a@x.com")
	require.NoError(t, err)

	cleared, err = env.resets.ClearExpired(env.ctx)
	require.NoError(t, err)
	require.False(t, cleared)

	env.clock.Advance(10 * time.Minute)
	cleared, err = env.resets.ClearExpired(env.ctx)
	require.NoError(t, err)
	require.True(t, cleared)
}
