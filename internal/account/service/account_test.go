package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/stretchr/testify/require"
)

func TestSignupThenActivateThenLogin(t *testing.T) {
	env := newTestEnv(t)

	sess, err := env.accounts.Signup(env.ctx, "a@x.com", "pw123456", "Ann")
	require.NoError(t, err)
	require.False(t, sess.Account.IsActive)
	require.Equal(t, domain.SubscriptionFree, sess.Account.SubscriptionStatus)

	stored := env.account(t, sess.AccountID())
	require.False(t, stored.IsActive)
	require.NotEqual(t, "pw123456", stored.PasswordHash)

	_, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
	require.ErrorIs(t, err, ErrPendingActivation)

	_, err = env.accounts.Activate(env.ctx, sess.AccountID())
	require.NoError(t, err)

	sess, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, 1, sess.Streak)
	require.Equal(t, 1, env.account(t, sess.AccountID()).Streak)
}

func TestSignup_NotifiesAdminAndLogsEmail(t *testing.T) {
	env := newTestEnv(t)

	sess, err := env.accounts.Signup(env.ctx, "a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	queue, err := env.store.Notifications().List(env.ctx, domain.AdminAudience)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, domain.NotificationNewAccount, queue[0].Type)
	require.Equal(t, domain.PriorityHigh, queue[0].Priority)
	require.Equal(t, sess.AccountID(), queue[0].UserID)
	require.False(t, queue[0].Read)

	log, err := env.notifications.EmailLog(env.ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.Equal(t, testAdminEmail, log[0].To)
	require.Equal(t, queue[0].Title, log[0].Subject)
	require.Equal(t, domain.EmailStatusSent, log[0].Status)
}

func TestSignup_Rejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.Signup(env.ctx, "a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	t.Run("existing email", func(t *testing.T) {
		_, err := env.accounts.Signup(env.ctx, "a@x.com", "other123", "Other")
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("reserved admin address", func(t *testing.T) {
		_, err := env.accounts.Signup(env.ctx, testAdminEmail, "pw123456", "Mallory")
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("soft deleted email stays taken", func(t *testing.T) {
		s, err := env.accounts.Signup(env.ctx, "gone@x.com", "pw123456", "Gone")
		require.NoError(t, err)
		_, err = env.accounts.SoftDelete(env.ctx, s.AccountID())
		require.NoError(t, err)

		_, err = env.accounts.Signup(env.ctx, "gone@x.com", "pw123456", "Again")
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := env.accounts.Signup(env.ctx, "", "123", "")
		require.ErrorIs(t, err, ErrValidation)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "email")
		require.Contains(t, verr.Fields, "name")
		require.Contains(t, verr.Fields, "password")
	})
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	t.Run("unknown email is invalid credentials", func(t *testing.T) {
		for _, email := range []string{"nobody@x.com", "A@X.COM", "a@x.co", ""} {
			_, err := env.accounts.Login(env.ctx, email, "pw123456")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.accounts.Login(env.ctx, "a@x.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("soft deleted", func(t *testing.T) {
		_, err := env.accounts.SoftDelete(env.ctx, sess.AccountID())
		require.NoError(t, err)

		_, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
		require.ErrorIs(t, err, ErrDeletedAccount)

		_, err = env.accounts.Restore(env.ctx, sess.AccountID())
		require.NoError(t, err)
		_, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
		require.NoError(t, err)
	})
}

func TestLogin_StreakAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")
	require.Equal(t, 1, sess.Streak)

	env.clock.Advance(2 * time.Hour)
	sess, err := env.accounts.Login(env.ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, 1, sess.Streak)

	for want := 2; want <= 7; want++ {
		env.clock.Advance(24 * time.Hour)
		sess, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
		require.NoError(t, err)
		require.Equal(t, want, sess.Streak)
	}

	queue, err := env.store.Notifications().List(env.ctx, domain.UserAudience(sess.AccountID()))
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, domain.NotificationStreakAchieved, queue[0].Type)
	require.EqualValues(t, 7, queue[0].Metadata["streak"])

	env.clock.Advance(72 * time.Hour)
	sess, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, 1, sess.Streak)
}

func TestSoftDeleteInvariant(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")
	id := sess.AccountID()

	check := func() {
		t.Helper()
		all, err := env.store.Accounts().List(env.ctx)
		require.NoError(t, err)
		for _, a := range all {
			if a.DeletedAt != nil {
				require.False(t, a.IsActive, "account %s", a.ID)
			}
		}
	}

	_, err := env.accounts.SoftDelete(env.ctx, id)
	require.NoError(t, err)
	check()

	_, err = env.accounts.Activate(env.ctx, id)
	require.ErrorIs(t, err, ErrDeletedAccount)
	check()

	_, err = env.accounts.Deactivate(env.ctx, id)
	require.NoError(t, err)
	check()

	a, err := env.accounts.Restore(env.ctx, id)
	require.NoError(t, err)
	require.True(t, a.IsActive)
	require.Nil(t, a.DeletedAt)
	check()
}

func TestDeactivate_KeepsLiveSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	_, err := env.accounts.Deactivate(env.ctx, sess.AccountID())
	require.NoError(t, err)

	live, err := env.sessions.Resolve(env.ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, live)

	_, err = env.accounts.Login(env.ctx, "a@x.com", "pw123456")
	require.ErrorIs(t, err, ErrPendingActivation)

	queue, err := env.store.Notifications().List(env.ctx, domain.AdminAudience)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationUserDeactivated, queue[0].Type)
	require.Equal(t, domain.PriorityMedium, queue[0].Priority)
	require.Equal(t, domain.NotificationUserActivated, queue[1].Type)
}

func TestProtectedAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminSession(t)
	require.True(t, admin.IsAdmin())

	_, err := env.accounts.Deactivate(env.ctx, admin.AccountID())
	require.ErrorIs(t, err, ErrReservedAccount)
	_, err = env.accounts.SoftDelete(env.ctx, admin.AccountID())
	require.ErrorIs(t, err, ErrReservedAccount)
	require.ErrorIs(t, env.accounts.HardDelete(env.ctx, admin.AccountID()), ErrReservedAccount)
	require.True(t, env.account(t, admin.AccountID()).IsActive)
}

func TestHardDelete_RemovesOwnedRecords(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")
	id := sess.AccountID()

	_, err := env.entitlements.AskQuestion(env.ctx, &sess)
	require.NoError(t, err)
	_, err = env.notifications.Add(env.ctx, &sess, domain.NewNotification{
		Type: domain.NotificationCommentAdded, Title: "hi", Priority: domain.PriorityLow,
	})
	require.NoError(t, err)

	// No soft delete first.
	require.NoError(t, env.accounts.HardDelete(env.ctx, id))

	_, err = env.store.Accounts().Get(env.ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = env.store.Entitlements().Get(env.ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
	queue, err := env.store.Notifications().List(env.ctx, domain.UserAudience(id))
	require.NoError(t, err)
	require.Empty(t, queue)

	live, err := env.sessions.Resolve(env.ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, live)

	require.ErrorIs(t, env.accounts.HardDelete(env.ctx, id), ErrAccountNotFound)

	_, err = env.accounts.Signup(env.ctx, "a@x.com", "pw123456", "Ann again")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ann := env.activeUser(t, "a@x.com", "pw123456", "Ann")
	env.activeUser(t, "b@x.com", "pw123456", "Bob")

	t.Run("rewrites record and session", func(t *testing.T) {
		updated, err := env.accounts.UpdateProfile(env.ctx, &ann, "Annie", "annie@x.com")
		require.NoError(t, err)
		require.Equal(t, "Annie", updated.Account.Name)
		require.Equal(t, "annie@x.com", updated.Account.Email)

		stored := env.account(t, ann.AccountID())
		require.Equal(t, "annie@x.com", stored.Email)

		slot, err := env.sessions.Resolve(env.ctx, ann.ID)
		require.NoError(t, err)
		require.Equal(t, "Annie", slot.Account.Name)

		_, err = env.accounts.Login(env.ctx, "annie@x.com", "pw123456")
		require.NoError(t, err)
		ann = updated
	})

	t.Run("email taken by another account", func(t *testing.T) {
		_, err := env.accounts.UpdateProfile(env.ctx, &ann, "Annie", "b@x.com")
		require.ErrorIs(t, err, ErrDuplicateEmail)
		require.Equal(t, "annie@x.com", env.account(t, ann.AccountID()).Email)
	})

	t.Run("admin address", func(t *testing.T) {
		_, err := env.accounts.UpdateProfile(env.ctx, &ann, "Annie", testAdminEmail)
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := env.accounts.UpdateProfile(env.ctx, nil, "x", "y@x.com")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	cases := []struct {
		name                   string
		current, next, confirm string
		want                   error
	}{
		{"short", "pw123456", "abc", "abc", ErrValidation},
		{"mismatch", "pw123456", "newpass1", "newpass2", ErrValidation},
		{"missing current", "", "newpass1", "newpass1", ErrValidation},
		{"wrong current", "wrong", "newpass1", "newpass1", ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.accounts.ChangePassword(env.ctx, &sess, tc.current, tc.next, tc.confirm)
			require.ErrorIs(t, err, tc.want)
		})
	}

	require.NoError(t, env.accounts.ChangePassword(env.ctx, &sess, "pw123456", "newpass1", "newpass1"))
	_, err := env.accounts.Login(env.ctx, "a@x.com", "pw123456")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.accounts.Login(env.ctx, "a@x.com", "newpass1")
	require.NoError(t, err)
}

func TestLogout_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	sess := env.activeUser(t, "a@x.com", "pw123456", "Ann")

	require.NoError(t, env.accounts.Logout(env.ctx, sess.ID))
	require.NoError(t, env.accounts.Logout(env.ctx, sess.ID))

	live, err := env.sessions.Resolve(env.ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, live)
}
