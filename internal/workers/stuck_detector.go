package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/metrics"
	"github.com/globeship/shipment-service/internal/repository"
)

type StalledShipmentSource interface {
	GetStalled(ctx context.Context, cutoff time.Time) ([]*repository.Shipment, error)
}

type StuckFlagStore interface {
	Upsert(ctx context.Context, flag *repository.StuckFlag) error
}

type StuckDetectorConfig struct {
	Interval  time.Duration
	Threshold time.Duration
}

// StuckDetector flags domestic-leg shipments whose last update is older than
// the threshold. It is detection-only: it raises flag records for operators
// and never calls the transition function, so it cannot corrupt state.
type StuckDetector struct {
	shipments StalledShipmentSource
	flags     StuckFlagStore
	config    StuckDetectorConfig
	logger    *zap.Logger

	now func() time.Time
}

func NewStuckDetector(shipments StalledShipmentSource, flags StuckFlagStore, config StuckDetectorConfig, logger *zap.Logger) *StuckDetector {
	if config.Threshold <= 0 {
		config.Threshold = 48 * time.Hour
	}
	return &StuckDetector{
		shipments: shipments,
		flags:     flags,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (w *StuckDetector) SetNow(now func() time.Time) {
	w.now = now
}

func (w *StuckDetector) Run(ctx context.Context) {
	w.logger.Info("starting stuck-shipment detector",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("threshold", w.config.Threshold))

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("stuck detection run failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.logger.Info("stuck-shipment detector stopping")
			return
		}
	}
}

func (w *StuckDetector) RunOnce(ctx context.Context) error {
	cutoff := w.now().UTC().Add(-w.config.Threshold)

	stalled, err := w.shipments.GetStalled(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, shipment := range stalled {
		flag := &repository.StuckFlag{
			ShipmentID:   shipment.ID,
			Status:       shipment.Status,
			StalledSince: shipment.UpdatedAt,
			FlaggedAt:    w.now().UTC(),
		}
		if err := w.flags.Upsert(ctx, flag); err != nil {
			w.logger.Error("failed to raise stuck flag",
				zap.String("shipment_id", shipment.ID),
				zap.Error(err))
			continue
		}
		metrics.StuckFlagsRaisedTotal.Inc()
		w.logger.Warn("shipment stuck on domestic leg",
			zap.String("shipment_id", shipment.ID),
			zap.String("status", shipment.Status),
			zap.Time("stalled_since", shipment.UpdatedAt))
	}
	return nil
}
