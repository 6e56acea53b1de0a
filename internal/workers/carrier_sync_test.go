package workers_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/carrier"
	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
	"github.com/globeship/shipment-service/internal/workers"
)

type transitionCall struct {
	shipmentID      string
	target          model.Status
	source          model.Source
	expectedVersion int64
}

type recordingEngine struct {
	mu    sync.Mutex
	calls []transitionCall
	errs  map[string]error
}

func (e *recordingEngine) Transition(_ context.Context, shipmentID string, target model.Status, source model.Source, expectedVersion int64, _ map[string]string) (*repository.Shipment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, transitionCall{shipmentID, target, source, expectedVersion})
	if err, ok := e.errs[shipmentID]; ok {
		return nil, err
	}
	return &repository.Shipment{ID: shipmentID, Status: string(target), Version: expectedVersion + 1}, nil
}

func (e *recordingEngine) callsFor(shipmentID string) []transitionCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []transitionCall
	for _, call := range e.calls {
		if call.shipmentID == shipmentID {
			out = append(out, call)
		}
	}
	return out
}

type staticShipmentSource struct {
	shipments []*repository.Shipment
}

func (s *staticShipmentSource) GetDomesticWithAWB(context.Context) ([]*repository.Shipment, error) {
	return s.shipments, nil
}

type scriptedCarrier struct {
	statuses map[string]carrier.Status
	errs     map[string]error
}

func (c *scriptedCarrier) TrackDomestic(_ context.Context, awb string) (carrier.Status, error) {
	if err, ok := c.errs[awb]; ok {
		return "", err
	}
	return c.statuses[awb], nil
}

func domesticShipment(id, awb string, status model.Status, version int64) *repository.Shipment {
	return &repository.Shipment{
		ID:          id,
		Status:      string(status),
		CurrentLeg:  string(model.LegDomestic),
		Version:     version,
		DomesticAWB: &awb,
		UpdatedAt:   time.Now().UTC(),
	}
}

func TestCarrierSync_AdvancesMappedStatus(t *testing.T) {
	engine := &recordingEngine{}
	source := &staticShipmentSource{shipments: []*repository.Shipment{
		domesticShipment("SHP-1", "AWB-1", model.StatusBooked, 1),
	}}
	client := &scriptedCarrier{statuses: map[string]carrier.Status{
		"AWB-1": carrier.StatusAtWarehouse,
	}}

	w := workers.NewCarrierSync(engine, source, client, workers.CarrierSyncConfig{Interval: time.Minute}, zap.NewNop())
	require.NoError(t, w.RunOnce(context.Background()))

	calls := engine.callsFor("SHP-1")
	require.Len(t, calls, 1)
	assert.Equal(t, model.StatusAtWarehouse, calls[0].target)
	assert.Equal(t, model.SourceExternal, calls[0].source)
	assert.Equal(t, int64(1), calls[0].expectedVersion)
}

func TestCarrierSync_IgnoresUnmappedAndCurrentStatuses(t *testing.T) {
	engine := &recordingEngine{}
	source := &staticShipmentSource{shipments: []*repository.Shipment{
		domesticShipment("SHP-1", "AWB-1", model.StatusBooked, 1),
		domesticShipment("SHP-2", "AWB-2", model.StatusAtWarehouse, 2),
	}}
	client := &scriptedCarrier{statuses: map[string]carrier.Status{
		"AWB-1": carrier.StatusPickedUp,    // no internal equivalent
		"AWB-2": carrier.StatusAtWarehouse, // already there
	}}

	w := workers.NewCarrierSync(engine, source, client, workers.CarrierSyncConfig{Interval: time.Minute}, zap.NewNop())
	require.NoError(t, w.RunOnce(context.Background()))

	assert.Empty(t, engine.calls)
}

func TestCarrierSync_FailuresAreIsolatedPerShipment(t *testing.T) {
	engine := &recordingEngine{}
	source := &staticShipmentSource{shipments: []*repository.Shipment{
		domesticShipment("SHP-1", "AWB-1", model.StatusBooked, 1),
		domesticShipment("SHP-2", "AWB-2", model.StatusBooked, 1),
		domesticShipment("SHP-3", "AWB-3", model.StatusBooked, 1),
	}}
	client := &scriptedCarrier{
		statuses: map[string]carrier.Status{
			"AWB-1": carrier.StatusAtWarehouse,
			"AWB-3": carrier.StatusAtWarehouse,
		},
		errs: map[string]error{
			"AWB-2": errors.New("carrier timeout"),
		},
	}

	w := workers.NewCarrierSync(engine, source, client, workers.CarrierSyncConfig{Interval: time.Minute}, zap.NewNop())
	require.NoError(t, w.RunOnce(context.Background()))

	assert.Len(t, engine.callsFor("SHP-1"), 1)
	assert.Empty(t, engine.callsFor("SHP-2"))
	assert.Len(t, engine.callsFor("SHP-3"), 1)
}

func TestCarrierSync_VersionConflictIsSkippedNotRetried(t *testing.T) {
	engine := &recordingEngine{errs: map[string]error{
		"SHP-1": lifecycle.ErrVersionConflict,
	}}
	source := &staticShipmentSource{shipments: []*repository.Shipment{
		domesticShipment("SHP-1", "AWB-1", model.StatusBooked, 1),
	}}
	client := &scriptedCarrier{statuses: map[string]carrier.Status{
		"AWB-1": carrier.StatusAtWarehouse,
	}}

	w := workers.NewCarrierSync(engine, source, client, workers.CarrierSyncConfig{Interval: time.Minute}, zap.NewNop())
	require.NoError(t, w.RunOnce(context.Background()))

	assert.Len(t, engine.callsFor("SHP-1"), 1)
}
