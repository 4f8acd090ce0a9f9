package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

const resetEmailSubject = "Your Bible Nation password reset code"

// PasswordResetService drives the single system-wide reset ticket:
// request, verify, complete. A new request replaces any outstanding ticket.
type PasswordResetService struct {
	Store         store.Store
	Notifications *NotificationService
	Hasher        *cryptox.PasswordHasher
	Metrics       *metrics.Metrics
	Clock         Clock
}

// RequestReset issues a fresh code for email and logs it as an outbound
// message.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (domain.ResetTicket, error) {
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	v := validation{}
	v.check(email != "", "email", "is required")
	if err := v.err(); err != nil {
		return domain.ResetTicket{}, err
	}

	// 1. Any stored account may reset, the admin included
	if _, err := s.Store.Accounts().GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("password reset for unknown email")
			s.Metrics.PasswordReset("request", "not_found")
			return domain.ResetTicket{}, ErrAccountNotFound
		}
		return domain.ResetTicket{}, err
	}

	// 2. Generate the code
	now := s.Clock.now()
	code, err := cryptox.GenerateResetCode(now)
	if err != nil {
		l.Error("failed to generate reset code", slog.Any("error", err))
		return domain.ResetTicket{}, err
	}
	ticket := domain.ResetTicket{Email: email, Code: code, IssuedAt: now}

	// 3. Replace the ticket and log the message together
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ResetTickets().Put(ctx, ticket); err != nil {
			return err
		}
		_, err := s.Notifications.appendEmail(ctx, tx, email, resetEmailSubject,
			fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(cryptox.ResetCodePeriod.Minutes())),
		)
		return err
	})
	if err != nil {
		l.Error("failed to store reset ticket", slog.Any("error", err))
		return domain.ResetTicket{}, err
	}

	s.Metrics.PasswordReset("request", "issued")
	l.Info("password reset code issued")
	return ticket, nil
}

// ResendCode issues a fresh code for the outstanding ticket's email.
func (s *PasswordResetService) ResendCode(ctx context.Context) (domain.ResetTicket, error) {
	t, err := s.Store.ResetTickets().Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ResetTicket{}, ErrInvalidResetCode
	}
	if err != nil {
		return domain.ResetTicket{}, err
	}
	return s.RequestReset(ctx, t.Email)
}

// VerifyCode checks code against the ticket. An expired ticket is cleared.
func (s *PasswordResetService) VerifyCode(ctx context.Context, code string) error {
	l := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.ResetTickets().Get(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetCode
		}
		if err != nil {
			return err
		}

		if t.Expired(s.Clock.now(), cryptox.ResetCodePeriod) {
			return ErrExpiredResetCode
		}
		if !cryptox.ResetCodeEqual(strings.TrimSpace(code), t.Code) {
			return ErrInvalidResetCode
		}

		t.Verified = true
		return tx.ResetTickets().Put(ctx, t)
	})

	// Cleared outside the transaction, which was rolled back.
	if errors.Is(err, ErrExpiredResetCode) {
		if clearErr := s.Store.ResetTickets().Clear(ctx); clearErr != nil && !errors.Is(clearErr, store.ErrNotFound) {
			return clearErr
		}
	}

	switch {
	case err == nil:
		s.Metrics.PasswordReset("verify", "ok")
	case errors.Is(err, ErrExpiredResetCode):
		l.Warn("expired reset code")
		s.Metrics.PasswordReset("verify", "expired")
	case errors.Is(err, ErrInvalidResetCode):
		l.Warn("invalid reset code")
		s.Metrics.PasswordReset("verify", "invalid")
	default:
		l.Error("failed to verify reset code", slog.Any("error", err))
	}
	return err
}

// CompleteReset sets a new password on the verified ticket's account.
func (s *PasswordResetService) CompleteReset(ctx context.Context, newPassword, confirm string) error {
	l := slogx.FromContext(ctx)

	v := validation{}
	v.check(len(newPassword) >= MinPasswordLength, "newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	v.check(newPassword == confirm, "confirmPassword", "does not match")
	if err := v.err(); err != nil {
		return err
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.ResetTickets().Get(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetCode
		}
		if err != nil {
			return err
		}
		if !t.Verified {
			return ErrInvalidResetCode
		}

		account, err := tx.Accounts().GetByEmail(ctx, t.Email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if account.Protected {
			return ErrReservedAccount
		}

		account.PasswordHash = hash
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		return tx.ResetTickets().Clear(ctx)
	})

	switch {
	case err == nil:
		s.Metrics.PasswordReset("complete", "ok")
		l.Info("password reset completed")
	case errors.Is(err, ErrReservedAccount):
		l.Warn("password reset refused for protected account")
		s.Metrics.PasswordReset("complete", "reserved")
	case errors.Is(err, ErrInvalidResetCode), errors.Is(err, ErrAccountNotFound):
		l.Warn("password reset without verified ticket", slog.Any("error", err))
		s.Metrics.PasswordReset("complete", "invalid")
	default:
		l.Error("failed to complete password reset", slog.Any("error", err))
	}
	return err
}

// ClearExpired removes the outstanding ticket once it has expired.
func (s *PasswordResetService) ClearExpired(ctx context.Context) (bool, error) {
	t, err := s.Store.ResetTickets().Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !t.Expired(s.Clock.now(), cryptox.ResetCodePeriod) {
		return false, nil
	}
	return true, s.Store.ResetTickets().Clear(ctx)
}
