package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/aussiebroadwan/biblenation/pkg/idx"
	"github.com/aussiebroadwan/biblenation/pkg/jwtx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// SessionService manages session slots and the bearer tokens that point at
// them. The slot is authoritative: a valid token for a cleared slot is
// rejected.
type SessionService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration
	Clock    Clock
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.TTL
}

// open snapshots a into a new slot written through st.
func (s *SessionService) open(ctx context.Context, st store.Store, a domain.Account) (domain.Session, error) {
	sess := domain.NewSession(idx.New().String(), a, s.Clock.now())
	if err := st.Sessions().Put(ctx, sess); err != nil {
		slogx.FromContext(ctx).Error("failed to open session",
			slog.String("account_id", a.ID),
			slog.Any("error", err),
		)
		return domain.Session{}, err
	}
	return sess, nil
}

// Token signs a bearer token for sess.
func (s *SessionService) Token(sess domain.Session) (string, error) {
	claims := jwtx.NewSessionClaims(
		sess.AccountID(),
		sess.ID,
		string(sess.Account.Role),
		s.Issuer,
		s.ttl(),
		s.Clock.now(),
	)
	return s.Signer.Sign(claims)
}

// Resolve returns the session in slot id, or nil when there is none. An
// absent or expired slot is not an error.
func (s *SessionService) Resolve(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.Store.Sessions().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Clock.now().Sub(sess.CreatedAt) > s.ttl() {
		return nil, nil
	}
	return &sess, nil
}

// ResolveToken verifies a bearer token and loads its session slot.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (httpx.Principal, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return httpx.Principal{}, err
	}

	sess, err := s.Resolve(ctx, claims.SID)
	if err != nil {
		return httpx.Principal{}, err
	}
	if sess == nil || sess.AccountID() != claims.Subject {
		return httpx.Principal{}, httpx.ErrNoSession
	}

	return httpx.Principal{
		AccountID: sess.AccountID(),
		SessionID: sess.ID,
		Role:      string(sess.Account.Role),
		Session:   sess,
	}, nil
}

// Close clears slot id. Closing an absent slot is a no-op.
func (s *SessionService) Close(ctx context.Context, id string) error {
	if err := s.Store.Sessions().Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// sync rewrites the snapshot of every slot held by a.
func (s *SessionService) sync(ctx context.Context, st store.Store, a domain.Account) error {
	sessions, err := st.Sessions().List(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.AccountID() != a.ID {
			continue
		}
		sess.Account = a.Public()
		sess.Streak = a.Streak
		sess.LastLoginAt = a.LastLoginAt
		if err := st.Sessions().Put(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// closeAll clears every slot held by accountID.
func (s *SessionService) closeAll(ctx context.Context, st store.Store, accountID string) error {
	sessions, err := st.Sessions().List(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.AccountID() != accountID {
			continue
		}
		if err := st.Sessions().Delete(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// PruneExpired clears slots older than the session TTL and reports how many
// were removed.
func (s *SessionService) PruneExpired(ctx context.Context) (int, error) {
	now := s.Clock.now()
	removed := 0
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		sessions, err := tx.Sessions().List(ctx)
		if err != nil {
			return err
		}
		for _, sess := range sessions {
			if now.Sub(sess.CreatedAt) <= s.ttl() {
				continue
			}
			if err := tx.Sessions().Delete(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
