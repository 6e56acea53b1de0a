package workers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
	"github.com/globeship/shipment-service/internal/workers"
)

type cutoffShipmentSource struct {
	shipments []*repository.Shipment
	lastQuery time.Time
}

func (s *cutoffShipmentSource) GetStalled(_ context.Context, cutoff time.Time) ([]*repository.Shipment, error) {
	s.lastQuery = cutoff
	var out []*repository.Shipment
	for _, shipment := range s.shipments {
		if shipment.UpdatedAt.Before(cutoff) {
			out = append(out, shipment)
		}
	}
	return out, nil
}

type recordingFlagStore struct {
	flags []*repository.StuckFlag
}

func (s *recordingFlagStore) Upsert(_ context.Context, flag *repository.StuckFlag) error {
	s.flags = append(s.flags, flag)
	return nil
}

func TestStuckDetector_FlagsOnlyShipmentsPastThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	source := &cutoffShipmentSource{shipments: []*repository.Shipment{
		{
			ID:         "SHP-STUCK",
			Status:     string(model.StatusAtWarehouse),
			CurrentLeg: string(model.LegDomestic),
			UpdatedAt:  now.Add(-50 * time.Hour),
		},
		{
			ID:         "SHP-FRESH",
			Status:     string(model.StatusAtWarehouse),
			CurrentLeg: string(model.LegDomestic),
			UpdatedAt:  now.Add(-10 * time.Hour),
		},
	}}
	flags := &recordingFlagStore{}

	detector := workers.NewStuckDetector(source, flags, workers.StuckDetectorConfig{
		Interval:  time.Hour,
		Threshold: 48 * time.Hour,
	}, zap.NewNop())
	detector.SetNow(func() time.Time { return now })

	require.NoError(t, detector.RunOnce(context.Background()))

	require.Len(t, flags.flags, 1)
	assert.Equal(t, "SHP-STUCK", flags.flags[0].ShipmentID)
	assert.Equal(t, now.Add(-50*time.Hour), flags.flags[0].StalledSince)
	assert.Equal(t, now.Add(-48*time.Hour), source.lastQuery)
}

func TestStuckDetector_NoStalledShipments(t *testing.T) {
	source := &cutoffShipmentSource{}
	flags := &recordingFlagStore{}

	detector := workers.NewStuckDetector(source, flags, workers.StuckDetectorConfig{
		Interval:  time.Hour,
		Threshold: 48 * time.Hour,
	}, zap.NewNop())

	require.NoError(t, detector.RunOnce(context.Background()))
	assert.Empty(t, flags.flags)
}
