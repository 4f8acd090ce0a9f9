package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/idx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// AccountService owns the account lifecycle: signup, login, profile edits
// and the admin console operations.
type AccountService struct {
	Store         store.Store
	Sessions      *SessionService
	Notifications *NotificationService
	Hasher        *cryptox.PasswordHasher
	Events        events.Publisher
	Metrics       *metrics.Metrics
	Clock         Clock

	// Location decides calendar days for streaks.
	Location *time.Location

	// AdminEmail is reserved and can never be signed up.
	AdminEmail string
}

// Signup creates an inactive account and opens a session for it.
func (s *AccountService) Signup(ctx context.Context, email, password, name string) (domain.Session, error) {
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	// 1. Validate input
	v := validation{}
	v.check(email != "", "email", "is required")
	v.check(name != "", "name", "is required")
	v.check(len(password) >= MinPasswordLength, "password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	if err := v.err(); err != nil {
		return domain.Session{}, err
	}
	if s.AdminEmail != "" && email == s.AdminEmail {
		l.Warn("signup with reserved address rejected")
		return domain.Session{}, ErrDuplicateEmail
	}

	// 2. Hash password
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.Session{}, err
	}

	now := s.Clock.now()
	account := domain.Account{
		ID:                 idx.New().String(),
		Email:              email,
		Name:               name,
		PasswordHash:       hash,
		Role:               domain.RoleUser,
		CreatedAt:          now,
		IsActive:           false,
		SubscriptionStatus: domain.SubscriptionFree,
	}

	// 3. Insert, notify admins and open the session together
	var out outbox
	var sess domain.Session
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Accounts().GetByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.Accounts().Create(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return err
		}

		_, err := s.Notifications.enqueue(ctx, tx, domain.AdminAudience, domain.NewNotification{
			Type:      domain.NotificationNewAccount,
			Title:     "New Account Created",
			Message:   fmt.Sprintf("%s (%s) signed up and is awaiting activation", name, email),
			UserID:    account.ID,
			UserName:  name,
			UserEmail: email,
			Priority:  domain.PriorityHigh,
		}, s.AdminEmail, &out)
		if err != nil {
			return err
		}

		sess, err = s.Sessions.open(ctx, tx, account)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			l.Warn("signup with existing email rejected")
		} else {
			l.Error("failed to create account", slog.Any("error", err))
		}
		return domain.Session{}, err
	}

	out.add(s.accountEvent(account.ID, "created"))
	out.flush(s.Events)
	s.Metrics.Signup()

	l.Info("account created", slog.String("account_id", account.ID))
	return sess, nil
}

// Login checks credentials, advances the streak and opens a session.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	// 1. Exact email and password match
	account, err := s.Store.Accounts().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.Metrics.Login("invalid_credentials")
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		l.Error("failed to load account", slog.Any("error", err))
		return domain.Session{}, err
	}
	if err := s.Hasher.Verify(password, account.PasswordHash); err != nil {
		l.Warn("login with wrong password", slog.String("account_id", account.ID))
		s.Metrics.Login("invalid_credentials")
		return domain.Session{}, ErrInvalidCredentials
	}

	// 2. Lifecycle gates
	if account.IsDeleted() {
		s.Metrics.Login("deleted")
		return domain.Session{}, ErrDeletedAccount
	}
	if !account.IsActive {
		s.Metrics.Login("pending_activation")
		return domain.Session{}, ErrPendingActivation
	}

	// 3. Streak, milestone and session
	var out outbox
	var sess domain.Session
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Accounts().Get(ctx, account.ID)
		if err != nil {
			return err
		}

		streak := AdvanceStreak(&current, s.Clock.now(), s.Location)
		if streak.Changed {
			if err := tx.Accounts().Update(ctx, current); err != nil {
				return err
			}
		}
		if streak.Milestone {
			_, err := s.Notifications.enqueue(ctx, tx, domain.UserAudience(current.ID), domain.NewNotification{
				Type:     domain.NotificationStreakAchieved,
				Title:    "Streak Milestone!",
				Message:  fmt.Sprintf("Congratulations! You've maintained a %d-day login streak!", current.Streak),
				UserID:   current.ID,
				UserName: current.Name,
				Priority: domain.PriorityMedium,
				Metadata: map[string]any{"streak": current.Streak},
			}, "", &out)
			if err != nil {
				return err
			}
		}

		sess, err = s.Sessions.open(ctx, tx, current)
		return err
	})
	if err != nil {
		l.Error("failed to complete login", slog.String("account_id", account.ID), slog.Any("error", err))
		return domain.Session{}, err
	}

	out.flush(s.Events)
	s.Metrics.Login("success")

	l.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.Int("streak", sess.Streak),
	)
	return sess, nil
}

// Logout clears the session slot. It is idempotent.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.Close(ctx, sessionID)
}

// UpdateProfile overwrites name and email on the record and on every session
// snapshot of the account.
func (s *AccountService) UpdateProfile(ctx context.Context, sess *domain.Session, name, email string) (domain.Session, error) {
	if sess == nil {
		return domain.Session{}, ErrUnauthenticated
	}
	l := slogx.FromContext(ctx)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	v := validation{}
	v.check(name != "", "name", "is required")
	v.check(email != "", "email", "is required")
	if err := v.err(); err != nil {
		return domain.Session{}, err
	}

	var updated domain.Session
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, sess.AccountID())
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		if email != account.Email && s.AdminEmail != "" && email == s.AdminEmail {
			return ErrDuplicateEmail
		}
		account.Name = name
		account.Email = email
		if err := tx.Accounts().Update(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return err
		}

		if err := s.Sessions.sync(ctx, tx, account); err != nil {
			return err
		}
		updated, err = tx.Sessions().Get(ctx, sess.ID)
		if errors.Is(err, store.ErrNotFound) {
			updated = domain.NewSession(sess.ID, account, sess.CreatedAt)
			return nil
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			l.Warn("profile update with taken email rejected", slog.String("account_id", sess.AccountID()))
		}
		return domain.Session{}, err
	}

	s.publish(s.accountEvent(sess.AccountID(), "profile_updated"))
	l.Info("profile updated", slog.String("account_id", sess.AccountID()))
	return updated, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, sess *domain.Session, current, next, confirm string) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	l := slogx.FromContext(ctx)

	v := validation{}
	v.check(current != "", "currentPassword", "is required")
	v.check(next != "", "newPassword", "is required")
	v.check(next == "" || len(next) >= MinPasswordLength, "newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	v.check(next == confirm, "confirmPassword", "does not match")
	if err := v.err(); err != nil {
		return err
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, sess.AccountID())
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if account.Protected {
			return ErrReservedAccount
		}
		if err := s.Hasher.Verify(current, account.PasswordHash); err != nil {
			l.Warn("password change with wrong current password", slog.String("account_id", account.ID))
			return ErrInvalidCredentials
		}

		account.PasswordHash = hash
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		l.Info("password changed", slog.String("account_id", account.ID))
		return nil
	})
}

// List returns every stored account, soft-deleted ones included.
func (s *AccountService) List(ctx context.Context) ([]domain.Public, error) {
	all, err := s.Store.Accounts().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Public, 0, len(all))
	for _, a := range all {
		out = append(out, a.Public())
	}
	return out, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (domain.Public, error) {
	a, err := s.Store.Accounts().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Public{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Public{}, err
	}
	return a.Public(), nil
}

// Activate lets the account log in. Live sessions are not touched.
func (s *AccountService) Activate(ctx context.Context, id string) (domain.Public, error) {
	return s.transition(ctx, id, "activated", func(a *domain.Account) (*domain.NewNotification, error) {
		if a.IsDeleted() {
			return nil, ErrDeletedAccount
		}
		a.IsActive = true
		return &domain.NewNotification{
			Type:     domain.NotificationUserActivated,
			Title:    "User Activated",
			Message:  fmt.Sprintf("%s account has been activated", a.Name),
			UserID:   a.ID,
			UserName: a.Name,
			Priority: domain.PriorityLow,
		}, nil
	})
}

// Deactivate blocks future logins. Live sessions are not terminated.
func (s *AccountService) Deactivate(ctx context.Context, id string) (domain.Public, error) {
	return s.transition(ctx, id, "deactivated", func(a *domain.Account) (*domain.NewNotification, error) {
		if a.Protected {
			return nil, ErrReservedAccount
		}
		a.IsActive = false
		return &domain.NewNotification{
			Type:     domain.NotificationUserDeactivated,
			Title:    "User Deactivated",
			Message:  fmt.Sprintf("%s account has been deactivated", a.Name),
			UserID:   a.ID,
			UserName: a.Name,
			Priority: domain.PriorityMedium,
		}, nil
	})
}

// SoftDelete stamps DeletedAt and forces the account inactive.
func (s *AccountService) SoftDelete(ctx context.Context, id string) (domain.Public, error) {
	return s.transition(ctx, id, "soft_deleted", func(a *domain.Account) (*domain.NewNotification, error) {
		if a.Protected {
			return nil, ErrReservedAccount
		}
		now := s.Clock.now()
		a.DeletedAt = &now
		a.IsActive = false
		return nil, nil
	})
}

// Restore clears DeletedAt and reactivates the account.
func (s *AccountService) Restore(ctx context.Context, id string) (domain.Public, error) {
	return s.transition(ctx, id, "restored", func(a *domain.Account) (*domain.NewNotification, error) {
		a.DeletedAt = nil
		a.IsActive = true
		return nil, nil
	})
}

// transition applies fn to one account and persists the result, queueing
// the admin notification fn returns.
func (s *AccountService) transition(
	ctx context.Context,
	id, action string,
	fn func(*domain.Account) (*domain.NewNotification, error),
) (domain.Public, error) {
	l := slogx.FromContext(ctx)

	var out outbox
	var account domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		account, err = tx.Accounts().Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		note, err := fn(&account)
		if err != nil {
			return err
		}
		if err := account.Validate(); err != nil {
			return err
		}
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		if err := s.Sessions.sync(ctx, tx, account); err != nil {
			return err
		}

		if note != nil {
			if _, err := s.Notifications.enqueue(ctx, tx, domain.AdminAudience, *note, s.AdminEmail, &out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrReservedAccount), errors.Is(err, ErrDeletedAccount):
			l.Warn("account transition rejected",
				slog.String("account_id", id),
				slog.String("action", action),
				slog.Any("error", err),
			)
		default:
			l.Error("account transition failed",
				slog.String("account_id", id),
				slog.String("action", action),
				slog.Any("error", err),
			)
		}
		return domain.Public{}, err
	}

	out.add(s.accountEvent(id, action))
	out.flush(s.Events)

	l.Info("account "+strings.ReplaceAll(action, "_", " "), slog.String("account_id", id))
	return account.Public(), nil
}

// HardDelete removes the account with its entitlement, notification queue
// and sessions. It does not require a prior soft delete.
func (s *AccountService) HardDelete(ctx context.Context, id string) error {
	l := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if account.Protected {
			return ErrReservedAccount
		}

		if err := tx.Accounts().Delete(ctx, id); err != nil {
			return err
		}
		if err := tx.Entitlements().Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.Notifications().Clear(ctx, domain.UserAudience(id)); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return s.Sessions.closeAll(ctx, tx, id)
	})
	if err != nil {
		l.Warn("hard delete failed", slog.String("account_id", id), slog.Any("error", err))
		return err
	}

	s.publish(s.accountEvent(id, "hard_deleted"))
	l.Info("account hard deleted", slog.String("account_id", id))
	return nil
}

func (s *AccountService) accountEvent(id, action string) events.Event {
	e := events.New(events.KindAccountChanged, domain.AdminAudience)
	e.Data = map[string]any{"id": id, "action": action}
	return e
}

func (s *AccountService) publish(e events.Event) {
	if s.Events != nil {
		s.Events.Publish(e)
	}
}
