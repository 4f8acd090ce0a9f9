package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

type SettingsService struct {
	Store store.Store
}

// Get returns the stored preferences, or the defaults when nothing usable
// is stored.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	st, err := s.Store.Settings().Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return st, nil
}

func (s *SettingsService) Save(ctx context.Context, st domain.Settings) (domain.Settings, error) {
	if err := st.Validate(); err != nil {
		return domain.Settings{}, &ValidationError{Fields: map[string]string{"settings": err.Error()}}
	}
	if err := s.Store.Settings().Put(ctx, st); err != nil {
		slogx.FromContext(ctx).Error("failed to save settings", slog.Any("error", err))
		return domain.Settings{}, err
	}
	return st, nil
}

// Reset writes the defaults back.
func (s *SettingsService) Reset(ctx context.Context) (domain.Settings, error) {
	return s.Save(ctx, domain.DefaultSettings())
}
