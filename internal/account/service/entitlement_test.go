package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/stretchr/testify/require"
)

func TestAskQuestion_FreeQuota(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	for i := 1; i <= 3; i++ {
		d, err := env.entitlements.AskQuestion(env.ctx, &sess)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, domain.ReasonFreeQuota, d.Reason)
		require.Equal(t, i, d.QuestionsAsked)
		require.Equal(t, 3-i, d.QuestionsRemaining)
	}

	for range 5 {
		d, err := env.entitlements.AskQuestion(env.ctx, &sess)
		require.ErrorIs(t, err, ErrEntitlementExhausted)
		require.False(t, d.Allowed)
		require.Equal(t, domain.ReasonExhausted, d.Reason)
	}

	e, err := env.store.Entitlements().Get(env.ctx, sess.AccountID())
	require.NoError(t, err)
	require.Equal(t, 3, e.QuestionsAsked)

	status, err := env.entitlements.Status(env.ctx, &sess)
	require.NoError(t, err)
	require.Equal(t, 0, status.QuestionsRemaining)
	require.Equal(t, 3, status.QuestionsAllowed)
	require.False(t, status.TrialActive)
}

func TestAskQuestion_Subscribed(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	_, err := env.entitlements.AskQuestion(env.ctx, &sess)
	require.NoError(t, err)

	status, err := env.entitlements.Subscribe(env.ctx, &sess)
	require.NoError(t, err)
	require.True(t, status.Subscribed)
	require.Equal(t, UnlimitedQuestions, status.QuestionsRemaining)

	before, err := env.store.Entitlements().Get(env.ctx, sess.AccountID())
	require.NoError(t, err)

	for range 1001 {
		d, err := env.entitlements.AskQuestion(env.ctx, &sess)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, domain.ReasonSubscribed, d.Reason)
	}

	after, err := env.store.Entitlements().Get(env.ctx, sess.AccountID())
	require.NoError(t, err)
	require.Equal(t, before.QuestionsAsked, after.QuestionsAsked)

	a := env.account(t, sess.AccountID())
	require.Equal(t, domain.SubscriptionPremium, a.SubscriptionStatus)
	require.NotNil(t, a.SubscribedAt)

	queue, err := env.store.Notifications().List(env.ctx, domain.AdminAudience)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationSubscriptionChanged, queue[0].Type)
	require.Equal(t, domain.PriorityMedium, queue[0].Priority)

	// Terminal: a trial after subscribing changes nothing.
	status, err = env.entitlements.StartTrial(env.ctx, &sess)
	require.NoError(t, err)
	require.True(t, status.Subscribed)
	require.Equal(t, domain.SubscriptionPremium, env.account(t, sess.AccountID()).SubscriptionStatus)
}

func TestStartTrial_WindowThenQuota(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	status, err := env.entitlements.StartTrial(env.ctx, &sess)
	require.NoError(t, err)
	require.True(t, status.TrialActive)
	require.Equal(t, 7, status.TrialDaysRemaining)
	require.Equal(t, domain.SubscriptionTrial, env.account(t, sess.AccountID()).SubscriptionStatus)

	for range 10 {
		d, err := env.entitlements.AskQuestion(env.ctx, &sess)
		require.NoError(t, err)
		require.Equal(t, domain.ReasonTrial, d.Reason)
	}

	env.clock.Advance(36 * time.Hour)
	status, err = env.entitlements.Status(env.ctx, &sess)
	require.NoError(t, err)
	require.Equal(t, 6, status.TrialDaysRemaining)

	env.clock.Advance(6*24*time.Hour - 12*time.Hour)
	status, err = env.entitlements.Status(env.ctx, &sess)
	require.NoError(t, err)
	require.False(t, status.TrialActive)
	require.Equal(t, 0, status.TrialDaysRemaining)
	require.Equal(t, 3, status.QuestionsRemaining)

	d, err := env.entitlements.AskQuestion(env.ctx, &sess)
	require.NoError(t, err)
	require.Equal(t, domain.ReasonFreeQuota, d.Reason)
	require.Equal(t, 1, d.QuestionsAsked)
	require.Equal(t, domain.SubscriptionFree, env.account(t, sess.AccountID()).SubscriptionStatus)
}

func TestExpireTrials(t *testing.T) {
	env := newTestEnv(t)
	ann := env.activeUser(t, "a@x.com", "pw123456", "Ann")
	bob := env.activeUser(t, "b@x.com", "pw123456", "Bob")

	_, err := env.entitlements.StartTrial(env.ctx, &ann)
	require.NoError(t, err)

	env.clock.Advance(5 * 24 * time.Hour)
	_, err = env.entitlements.StartTrial(env.ctx, &bob)
	require.NoError(t, err)

	stats, err := env.stats.Compute(env.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TrialAccounts)

	n, err := env.entitlements.ExpireTrials(env.ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	env.clock.Advance(3 * 24 * time.Hour)
	n, err = env.entitlements.ExpireTrials(env.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, domain.SubscriptionFree, env.account(t, ann.AccountID()).SubscriptionStatus)
	require.Equal(t, domain.SubscriptionTrial, env.account(t, bob.AccountID()).SubscriptionStatus)

	stats, err = env.stats.Compute(env.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TrialAccounts)

	n, err = env.entitlements.ExpireTrials(env.ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestExhaustedThenTrial(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	for range 3 {
		d, err := env.entitlements.AskQuestion(env.ctx, &sess)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	e, err := env.store.Entitlements().Get(env.ctx, sess.AccountID())
	require.NoError(t, err)
	require.Equal(t, 3, e.QuestionsAsked)

	_, err = env.entitlements.AskQuestion(env.ctx, &sess)
	require.ErrorIs(t, err, ErrEntitlementExhausted)

	_, err = env.entitlements.StartTrial(env.ctx, &sess)
	require.NoError(t, err)

	d, err := env.entitlements.AskQuestion(env.ctx, &sess)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, domain.ReasonTrial, d.Reason)
}

func TestStartTrial_Restartable(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	_, err := env.entitlements.StartTrial(env.ctx, &sess)
	require.NoError(t, err)
	env.clock.Advance(8 * 24 * time.Hour)

	status, err := env.entitlements.StartTrial(env.ctx, &sess)
	require.NoError(t, err)
	require.True(t, status.TrialActive)

	e, err := env.store.Entitlements().Get(env.ctx, sess.AccountID())
	require.NoError(t, err)
	require.Equal(t, 2, e.TrialsStarted)

	t.Run("single trial", func(t *testing.T) {
		env.entitlements.SingleTrial = true
		t.Cleanup(func() { env.entitlements.SingleTrial = false })

		_, err := env.entitlements.StartTrial(env.ctx, &sess)
		require.ErrorIs(t, err, ErrTrialAlreadyUsed)
	})
}

func TestEntitlement_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	d, err := env.entitlements.AskQuestion(env.ctx, nil)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, domain.ReasonUnauthenticated, d.Reason)

	status, err := env.entitlements.Status(env.ctx, nil)
	require.NoError(t, err)
	require.False(t, status.Authenticated)

	_, err = env.entitlements.StartTrial(env.ctx, nil)
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.entitlements.Subscribe(env.ctx, nil)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
