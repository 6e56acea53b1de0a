package workers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/globeship/shipment-service/internal/carrier"
	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/metrics"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
)

type TransitionEngine interface {
	Transition(ctx context.Context, shipmentID string, target model.Status, source model.Source, expectedVersion int64, metadata map[string]string) (*repository.Shipment, error)
}

type DomesticShipmentSource interface {
	GetDomesticWithAWB(ctx context.Context) ([]*repository.Shipment, error)
}

type CarrierSyncConfig struct {
	Interval    time.Duration
	Concurrency int
}

// CarrierSync polls the external carrier for every domestic-leg shipment with
// an AWB and applies the mapped status through the engine with
// source=EXTERNAL. Per-shipment failures are isolated: a dead carrier call or
// a version conflict on one shipment never aborts the rest of the batch, and
// failed items are simply picked up again on the next scheduled run.
type CarrierSync struct {
	engine    TransitionEngine
	shipments DomesticShipmentSource
	client    carrier.Client
	config    CarrierSyncConfig
	logger    *zap.Logger
}

func NewCarrierSync(engine TransitionEngine, shipments DomesticShipmentSource, client carrier.Client, config CarrierSyncConfig, logger *zap.Logger) *CarrierSync {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &CarrierSync{
		engine:    engine,
		shipments: shipments,
		client:    client,
		config:    config,
		logger:    logger,
	}
}

func (w *CarrierSync) Run(ctx context.Context) {
	w.logger.Info("starting carrier sync worker", zap.Duration("interval", w.config.Interval))

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("carrier sync run failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.logger.Info("carrier sync worker stopping")
			return
		}
	}
}

// RunOnce reconciles the current batch of domestic shipments.
func (w *CarrierSync) RunOnce(ctx context.Context) error {
	shipments, err := w.shipments.GetDomesticWithAWB(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)

	for _, shipment := range shipments {
		shipment := shipment
		g.Go(func() error {
			w.syncOne(ctx, shipment)
			// Per-item failures are reported in syncOne; they must not fail
			// the group and cancel the siblings.
			return nil
		})
	}
	return g.Wait()
}

func (w *CarrierSync) syncOne(ctx context.Context, shipment *repository.Shipment) {
	awb := *shipment.DomesticAWB

	carrierStatus, err := w.client.TrackDomestic(ctx, awb)
	if err != nil {
		metrics.CarrierSyncErrorsTotal.Inc()
		w.logger.Warn("carrier lookup failed, will retry next run",
			zap.String("shipment_id", shipment.ID),
			zap.String("awb", awb),
			zap.Error(err))
		return
	}

	target, ok := carrier.MapStatus(carrierStatus)
	if !ok {
		return
	}
	current := model.Status(shipment.Status)
	if target == current || !model.CanTransition(current, target) {
		return
	}

	_, err = w.engine.Transition(ctx, shipment.ID, target, model.SourceExternal, shipment.Version, map[string]string{
		"awb":            awb,
		"carrier_status": string(carrierStatus),
	})
	switch {
	case err == nil:
		w.logger.Info("carrier sync advanced shipment",
			zap.String("shipment_id", shipment.ID),
			zap.String("status", string(target)))
	case errors.Is(err, lifecycle.ErrVersionConflict):
		// A staff action or another worker moved the shipment first. Do not
		// fight a more authoritative concurrent writer; skip until next run.
		w.logger.Info("carrier sync skipped shipment after concurrent update",
			zap.String("shipment_id", shipment.ID))
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		w.logger.Warn("carrier reported a status we cannot apply",
			zap.String("shipment_id", shipment.ID),
			zap.String("carrier_status", string(carrierStatus)))
	default:
		metrics.CarrierSyncErrorsTotal.Inc()
		w.logger.Error("carrier sync transition failed",
			zap.String("shipment_id", shipment.ID),
			zap.Error(err))
	}
}
