package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/idx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// BootstrapService seeds the built-in accounts at startup.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Clock  Clock
}

// Seed creates every account in seeds whose email is not stored yet. It is
// safe to call on every start and reports how many accounts it created.
func (s *BootstrapService) Seed(ctx context.Context, seeds ...domain.SeedAccount) (int, error) {
	l := slogx.FromContext(ctx)
	created := 0

	for _, seed := range seeds {
		if seed.Email == "" {
			continue
		}

		// 1. Skip existing
		_, err := s.Store.Accounts().GetByEmail(ctx, seed.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, err
		}

		// 2. Hash password
		hash, err := s.Hasher.Hash(seed.Password)
		if err != nil {
			l.Error("failed to hash seed password", slog.String("email", seed.Email), slog.Any("error", err))
			return created, err
		}

		role := seed.Role
		if !role.Valid() {
			role = domain.RoleUser
		}

		// 3. Create
		account := domain.Account{
			ID:                 idx.New().String(),
			Email:              seed.Email,
			Name:               seed.Name,
			PasswordHash:       hash,
			Role:               role,
			CreatedAt:          s.Clock.now(),
			IsActive:           seed.Active,
			SubscriptionStatus: domain.SubscriptionFree,
			Protected:          seed.Protected,
		}
		if err := s.Store.Accounts().Create(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				continue
			}
			l.Error("failed to create seed account", slog.String("email", seed.Email), slog.Any("error", err))
			return created, err
		}

		created++
		l.Info("seeded account",
			slog.String("account_id", account.ID),
			slog.String("role", string(role)),
		)
	}
	return created, nil
}
