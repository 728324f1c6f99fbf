package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/DrewHollis/gatehouse/internal/services"
)

// Sweeper periodically purges stale device rows and trims old audit events
type Sweeper struct {
	registry       *services.DeviceRegistry
	audit          *services.AuditService
	logger         *slog.Logger
	interval       time.Duration
	devicePurgeAge time.Duration
	eventRetention time.Duration
	stopCh         chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(
	registry *services.DeviceRegistry,
	audit *services.AuditService,
	logger *slog.Logger,
	interval time.Duration,
	devicePurgeAge time.Duration,
	eventRetention time.Duration,
) *Sweeper {
	return &Sweeper{
		registry:       registry,
		audit:          audit,
		logger:         logger,
		interval:       interval,
		devicePurgeAge: devicePurgeAge,
		eventRetention: eventRetention,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	s.logger.Info("starting retention sweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	purged, err := s.registry.PurgeInactive(sweepCtx, s.devicePurgeAge)
	if err != nil {
		s.logger.Error("failed to purge inactive devices", slog.Any("error", err))
	} else if purged > 0 {
		s.logger.Info("inactive device purge completed", slog.Int64("rows_deleted", purged))
	}

	trimmed, err := s.audit.RemoveOlderThan(sweepCtx, s.eventRetention)
	if err != nil {
		s.logger.Error("failed to trim auth events", slog.Any("error", err))
	} else if trimmed > 0 {
		s.logger.Info("auth event trim completed", slog.Int64("rows_deleted", trimmed))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
