package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
)

// HousekeepingService periodically revokes expired sessions and purges
// expired setups, codes, pending logins and trusted devices.
type HousekeepingService struct {
	Store    store.Store
	Sessions *SessionManager
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 15 minutes.
func NewHousekeepingService(st store.Store, sessions *SessionManager, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &HousekeepingService{
		Store:    st,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
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

// Cleanup runs one pass. Each step is independent; a failure is logged and
// the remaining steps still run. It returns the number of steps that
// succeeded.
func (s *HousekeepingService) Cleanup(ctx context.Context) int {
	now := nowFrom(s.Now)
	steps := []struct {
		name string
		fn   func(context.Context) (int64, error)
	}{
		{"expired sessions", s.Sessions.SweepExpired},
		{"expired pending 2FA setups", func(ctx context.Context) (int64, error) {
			return s.Store.TwoFactor().DeleteExpiredPending(ctx, now)
		}},
		{"expired one-time codes", func(ctx context.Context) (int64, error) {
			return s.Store.IssuedCodes().DeleteExpired(ctx, now)
		}},
		{"expired pending logins", func(ctx context.Context) (int64, error) {
			return s.Store.PendingLogins().DeleteExpired(ctx, now)
		}},
		{"expired trusted devices", func(ctx context.Context) (int64, error) {
			return s.Store.TrustedDevices().DeleteExpired(ctx, now)
		}},
	}

	succeeded := 0
	for _, step := range steps {
		n, err := step.fn(ctx)
		if err != nil {
			s.Logger.Error("housekeeping step failed", "step", step.name, "error", err)
			continue
		}
		succeeded++
		if n > 0 {
			s.Logger.Debug("housekeeping step completed", "step", step.name, "affected", n)
		}
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", succeeded)
	return succeeded
}
