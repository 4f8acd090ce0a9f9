package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingService periodically clears an expired reset ticket, prunes
// stale session slots and closes out finished trials.
type HousekeepingService struct {
	Resets       *PasswordResetService
	Sessions     *SessionService
	Entitlements *EntitlementService
	Logger       *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(resets *PasswordResetService, sessions *SessionService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Resets:   resets,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", slog.Duration("interval", s.Interval))
}

// Stop blocks until an in-flight cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. A failing step does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	s.Logger.Debug("starting housekeeping cleanup")

	if s.Resets != nil {
		cleared, err := s.Resets.ClearExpired(ctx)
		if err != nil {
			s.Logger.Error("failed to clear expired reset ticket", slog.Any("error", err))
		} else if cleared {
			s.Logger.Info("cleared expired reset ticket")
		}
	}

	if s.Sessions != nil {
		n, err := s.Sessions.PruneExpired(ctx)
		if err != nil {
			s.Logger.Error("failed to prune sessions", slog.Any("error", err))
		} else if n > 0 {
			s.Logger.Info("pruned expired sessions", slog.Int("count", n))
		}
	}

	if s.Entitlements != nil {
		n, err := s.Entitlements.ExpireTrials(ctx)
		if err != nil {
			s.Logger.Error("failed to expire trials", slog.Any("error", err))
		} else if n > 0 {
			s.Logger.Info("expired trials", slog.Int("count", n))
		}
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
