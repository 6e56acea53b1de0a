package workers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
	"github.com/globeship/shipment-service/internal/workers"
)

type simulatedSource struct {
	shipments []*repository.Shipment
}

func (s *simulatedSource) GetSimulatedActive(context.Context) ([]*repository.Shipment, error) {
	return s.shipments, nil
}

func simShipment(id string, status model.Status, version int64) *repository.Shipment {
	return &repository.Shipment{
		ID:        id,
		Status:    string(status),
		Version:   version,
		Simulated: true,
	}
}

func TestSimulationDriver_AdvancesOneStep(t *testing.T) {
	engine := &recordingEngine{}
	source := &simulatedSource{shipments: []*repository.Shipment{
		simShipment("SHP-DEMO-1", model.StatusBooked, 1),
		simShipment("SHP-DEMO-2", model.StatusCustomsClearance, 8),
	}}

	driver := workers.NewSimulationDriver(engine, source, workers.SimulationConfig{Interval: time.Second}, zap.NewNop())
	require.NoError(t, driver.RunOnce(context.Background()))

	calls1 := engine.callsFor("SHP-DEMO-1")
	require.Len(t, calls1, 1)
	assert.Equal(t, model.StatusAtWarehouse, calls1[0].target)
	assert.Equal(t, model.SourceSimulation, calls1[0].source)
	assert.Equal(t, int64(1), calls1[0].expectedVersion)

	calls2 := engine.callsFor("SHP-DEMO-2")
	require.Len(t, calls2, 1)
	assert.Equal(t, model.StatusOutForDelivery, calls2[0].target)
	assert.Equal(t, int64(8), calls2[0].expectedVersion)
}

func TestSimulationDriver_SkipsTerminalShipments(t *testing.T) {
	engine := &recordingEngine{}
	source := &simulatedSource{shipments: []*repository.Shipment{
		simShipment("SHP-DEMO-1", model.StatusDelivered, 11),
		simShipment("SHP-DEMO-2", model.StatusCancelled, 3),
	}}

	driver := workers.NewSimulationDriver(engine, source, workers.SimulationConfig{Interval: time.Second}, zap.NewNop())
	require.NoError(t, driver.RunOnce(context.Background()))

	assert.Empty(t, engine.calls)
}

func TestSimulationDriver_VersionConflictContinuesBatch(t *testing.T) {
	engine := &recordingEngine{errs: map[string]error{
		"SHP-DEMO-1": lifecycle.ErrVersionConflict,
	}}
	source := &simulatedSource{shipments: []*repository.Shipment{
		simShipment("SHP-DEMO-1", model.StatusBooked, 1),
		simShipment("SHP-DEMO-2", model.StatusBooked, 1),
	}}

	driver := workers.NewSimulationDriver(engine, source, workers.SimulationConfig{Interval: time.Second}, zap.NewNop())
	require.NoError(t, driver.RunOnce(context.Background()))

	assert.Len(t, engine.callsFor("SHP-DEMO-2"), 1)
}
