package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

const (
	DefaultFreeQuestions = 3
	DefaultTrialDays     = 7

	// UnlimitedQuestions is reported as QuestionsRemaining when nothing is
	// counted.
	UnlimitedQuestions = -1
)

const day = 24 * time.Hour

// EntitlementService gates the "ask a question" action behind the free
// quota, a trial window or a subscription.
type EntitlementService struct {
	Store         store.Store
	Notifications *NotificationService
	Events        events.Publisher
	Metrics       *metrics.Metrics
	Clock         Clock

	FreeQuestions int
	TrialDays     int

	// SingleTrial refuses a second StartTrial for the same account.
	SingleTrial bool

	AdminEmail string
}

func (s *EntitlementService) freeQuestions() int {
	if s.FreeQuestions <= 0 {
		return DefaultFreeQuestions
	}
	return s.FreeQuestions
}

func (s *EntitlementService) trialLength() time.Duration {
	if s.TrialDays <= 0 {
		return DefaultTrialDays * day
	}
	return time.Duration(s.TrialDays) * day
}

// trialDaysRemaining is zero when no trial is running.
func (s *EntitlementService) trialDaysRemaining(e domain.Entitlement, now time.Time) int {
	if e.TrialStartedAt == nil {
		return 0
	}
	elapsed := now.Sub(*e.TrialStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := int(s.trialLength()/day) - int(elapsed/day)
	if elapsed >= s.trialLength() || remaining < 0 {
		return 0
	}
	return remaining
}

// load returns the stored record or a fresh one for accountID.
func (s *EntitlementService) load(ctx context.Context, st store.Store, accountID string) (domain.Entitlement, error) {
	e, err := st.Entitlements().Get(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Entitlement{AccountID: accountID}, nil
	}
	return e, err
}

// Status reports the caller's entitlement. A nil session is
// unauthenticated.
func (s *EntitlementService) Status(ctx context.Context, sess *domain.Session) (domain.EntitlementStatus, error) {
	status := domain.EntitlementStatus{QuestionsAllowed: s.freeQuestions()}
	if sess == nil {
		return status, nil
	}

	e, err := s.load(ctx, s.Store, sess.AccountID())
	if err != nil {
		return status, err
	}
	return s.status(e, s.Clock.now()), nil
}

func (s *EntitlementService) status(e domain.Entitlement, now time.Time) domain.EntitlementStatus {
	status := domain.EntitlementStatus{
		Authenticated:    true,
		Subscribed:       e.Subscribed,
		QuestionsAsked:   e.QuestionsAsked,
		QuestionsAllowed: s.freeQuestions(),
	}
	if e.Subscribed {
		status.QuestionsRemaining = UnlimitedQuestions
		return status
	}

	status.TrialDaysRemaining = s.trialDaysRemaining(e, now)
	status.TrialActive = status.TrialDaysRemaining > 0
	if status.TrialActive {
		status.QuestionsRemaining = UnlimitedQuestions
		return status
	}
	status.QuestionsRemaining = max(0, s.freeQuestions()-e.QuestionsAsked)
	return status
}

// AskQuestion evaluates one gated attempt:
//
//  1. subscribed accounts are always allowed, uncounted
//  2. an active trial is allowed, uncounted
//  3. otherwise the free quota is consumed one question at a time
//  4. an exhausted quota is denied with ErrEntitlementExhausted and the
//     counter is left alone
func (s *EntitlementService) AskQuestion(ctx context.Context, sess *domain.Session) (domain.Decision, error) {
	if sess == nil {
		s.Metrics.GatedQuestion(string(domain.ReasonUnauthenticated))
		return domain.Decision{Reason: domain.ReasonUnauthenticated}, nil
	}
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	var decision domain.Decision
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		e, err := s.load(ctx, tx, sess.AccountID())
		if err != nil {
			return err
		}
		if s.trialExpired(e, now) {
			if _, err := s.expireTrial(ctx, tx, sess.AccountID()); err != nil {
				return err
			}
		}

		switch {
		case e.Subscribed:
			decision = domain.Decision{Allowed: true, Reason: domain.ReasonSubscribed, QuestionsAsked: e.QuestionsAsked, QuestionsRemaining: UnlimitedQuestions}
			return nil

		case s.trialDaysRemaining(e, now) > 0:
			decision = domain.Decision{Allowed: true, Reason: domain.ReasonTrial, QuestionsAsked: e.QuestionsAsked, QuestionsRemaining: UnlimitedQuestions}
			return nil

		case e.QuestionsAsked < s.freeQuestions():
			e.QuestionsAsked++
			if err := tx.Entitlements().Put(ctx, e); err != nil {
				return err
			}
			decision = domain.Decision{
				Allowed:            true,
				Reason:             domain.ReasonFreeQuota,
				QuestionsAsked:     e.QuestionsAsked,
				QuestionsRemaining: s.freeQuestions() - e.QuestionsAsked,
			}
			return nil

		default:
			decision = domain.Decision{Reason: domain.ReasonExhausted, QuestionsAsked: e.QuestionsAsked}
			return nil
		}
	})
	if err != nil {
		l.Error("failed to evaluate entitlement", slog.String("account_id", sess.AccountID()), slog.Any("error", err))
		return domain.Decision{}, err
	}

	s.Metrics.GatedQuestion(string(decision.Reason))
	if !decision.Allowed {
		l.Warn("question denied, quota exhausted", slog.String("account_id", sess.AccountID()))
		return decision, ErrEntitlementExhausted
	}
	if decision.Reason == domain.ReasonFreeQuota {
		s.publish(sess.AccountID(), "question_counted")
	}
	return decision, nil
}

// StartTrial opens a fresh trial window and resets the question count.
func (s *EntitlementService) StartTrial(ctx context.Context, sess *domain.Session) (domain.EntitlementStatus, error) {
	if sess == nil {
		return domain.EntitlementStatus{}, ErrUnauthenticated
	}
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	var e domain.Entitlement
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if e, err = s.load(ctx, tx, sess.AccountID()); err != nil {
			return err
		}
		if e.Subscribed {
			return nil
		}
		if s.SingleTrial && e.TrialsStarted > 0 {
			return ErrTrialAlreadyUsed
		}

		e.QuestionsAsked = 0
		e.TrialStartedAt = &now
		e.TrialsStarted++
		if err := tx.Entitlements().Put(ctx, e); err != nil {
			return err
		}
		return s.setSubscriptionStatus(ctx, tx, sess.AccountID(), domain.SubscriptionTrial, nil)
	})
	if err != nil {
		if errors.Is(err, ErrTrialAlreadyUsed) {
			l.Warn("trial restart refused", slog.String("account_id", sess.AccountID()))
		} else {
			l.Error("failed to start trial", slog.String("account_id", sess.AccountID()), slog.Any("error", err))
		}
		return domain.EntitlementStatus{}, err
	}

	s.publish(sess.AccountID(), "trial_started")
	l.Info("trial started",
		slog.String("account_id", sess.AccountID()),
		slog.Int("trials_started", e.TrialsStarted),
	)
	return s.status(e, now), nil
}

// Subscribe is terminal: once subscribed an account never reverts.
func (s *EntitlementService) Subscribe(ctx context.Context, sess *domain.Session) (domain.EntitlementStatus, error) {
	if sess == nil {
		return domain.EntitlementStatus{}, ErrUnauthenticated
	}
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	var out outbox
	var e domain.Entitlement
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if e, err = s.load(ctx, tx, sess.AccountID()); err != nil {
			return err
		}
		if e.Subscribed {
			return nil
		}

		e.Subscribed = true
		e.SubscribedAt = &now
		e.QuestionsAsked = 0
		e.TrialStartedAt = nil
		if err := tx.Entitlements().Put(ctx, e); err != nil {
			return err
		}
		if err := s.setSubscriptionStatus(ctx, tx, sess.AccountID(), domain.SubscriptionPremium, &now); err != nil {
			return err
		}

		_, err = s.Notifications.enqueue(ctx, tx, domain.AdminAudience, domain.NewNotification{
			Type:      domain.NotificationSubscriptionChanged,
			Title:     "New Subscription",
			Message:   fmt.Sprintf("%s subscribed to premium", sess.Account.Name),
			UserID:    sess.AccountID(),
			UserName:  sess.Account.Name,
			UserEmail: sess.Account.Email,
			Priority:  domain.PriorityMedium,
		}, s.AdminEmail, &out)
		return err
	})
	if err != nil {
		l.Error("failed to subscribe", slog.String("account_id", sess.AccountID()), slog.Any("error", err))
		return domain.EntitlementStatus{}, err
	}

	out.flush(s.Events)
	s.publish(sess.AccountID(), "subscribed")
	l.Info("account subscribed", slog.String("account_id", sess.AccountID()))
	return s.status(e, now), nil
}

func (s *EntitlementService) trialExpired(e domain.Entitlement, now time.Time) bool {
	return !e.Subscribed && e.TrialStartedAt != nil && s.trialDaysRemaining(e, now) == 0
}

// expireTrial moves an account still marked as on trial back to free and
// reports whether it changed anything.
func (s *EntitlementService) expireTrial(ctx context.Context, st store.Store, accountID string) (bool, error) {
	a, err := st.Accounts().Get(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if a.SubscriptionStatus != domain.SubscriptionTrial {
		return false, nil
	}
	a.SubscriptionStatus = domain.SubscriptionFree
	return true, st.Accounts().Update(ctx, a)
}

// ExpireTrials moves every account whose trial window has closed back to
// free and reports how many changed.
func (s *EntitlementService) ExpireTrials(ctx context.Context) (int, error) {
	now := s.Clock.now()

	accounts, err := s.Store.Accounts().List(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, a := range accounts {
		if a.SubscriptionStatus != domain.SubscriptionTrial {
			continue
		}

		changed := false
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			e, err := s.load(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			if !s.trialExpired(e, now) {
				return nil
			}
			changed, err = s.expireTrial(ctx, tx, a.ID)
			return err
		})
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
			s.publish(a.ID, "trial_expired")
		}
	}
	return expired, nil
}

// setSubscriptionStatus mirrors the entitlement onto the account record.
// A missing account is tolerated.
func (s *EntitlementService) setSubscriptionStatus(
	ctx context.Context,
	st store.Store,
	accountID string,
	status domain.SubscriptionStatus,
	at *time.Time,
) error {
	a, err := st.Accounts().Get(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.SubscriptionStatus = status
	if at != nil {
		a.SubscribedAt = at
	}
	return st.Accounts().Update(ctx, a)
}

func (s *EntitlementService) publish(accountID, action string) {
	if s.Events == nil {
		return
	}
	e := events.New(events.KindEntitlementChanged, domain.UserAudience(accountID))
	e.Data = map[string]any{"action": action}
	s.Events.Publish(e)
}
