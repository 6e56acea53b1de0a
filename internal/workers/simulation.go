package workers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
)

type SimulatedShipmentSource interface {
	GetSimulatedActive(ctx context.Context) ([]*repository.Shipment, error)
}

type SimulationConfig struct {
	Interval time.Duration
}

// SimulationDriver advances demo shipments one step per run through the same
// transition function as production traffic. There is no shortcut state
// machine: simulated shipments hit the same table and the same version
// precondition as everything else.
type SimulationDriver struct {
	engine    TransitionEngine
	shipments SimulatedShipmentSource
	config    SimulationConfig
	logger    *zap.Logger
}

func NewSimulationDriver(engine TransitionEngine, shipments SimulatedShipmentSource, config SimulationConfig, logger *zap.Logger) *SimulationDriver {
	return &SimulationDriver{
		engine:    engine,
		shipments: shipments,
		config:    config,
		logger:    logger,
	}
}

func (w *SimulationDriver) Run(ctx context.Context) {
	w.logger.Info("starting simulation driver", zap.Duration("interval", w.config.Interval))

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("simulation run failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.logger.Info("simulation driver stopping")
			return
		}
	}
}

func (w *SimulationDriver) RunOnce(ctx context.Context) error {
	shipments, err := w.shipments.GetSimulatedActive(ctx)
	if err != nil {
		return err
	}

	for _, shipment := range shipments {
		next, ok := model.Next(model.Status(shipment.Status))
		if !ok {
			continue
		}

		_, err := w.engine.Transition(ctx, shipment.ID, next, model.SourceSimulation, shipment.Version, map[string]string{
			"driver": "simulation",
		})
		if err != nil {
			if errors.Is(err, lifecycle.ErrVersionConflict) {
				w.logger.Info("simulation skipped shipment after concurrent update",
					zap.String("shipment_id", shipment.ID))
				continue
			}
			w.logger.Error("simulation step failed",
				zap.String("shipment_id", shipment.ID),
				zap.Error(err))
		}
	}
	return nil
}
