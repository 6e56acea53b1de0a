package cache_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globeship/shipment-service/internal/cache"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
)

type fakeStore struct {
	mu        sync.Mutex
	shipments map[string]*repository.Shipment
}

func newFakeStore(shipments ...*repository.Shipment) *fakeStore {
	s := &fakeStore{shipments: make(map[string]*repository.Shipment)}
	for _, shipment := range shipments {
		s.put(shipment)
	}
	return s
}

func (s *fakeStore) put(shipment *repository.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *shipment
	s.shipments[shipment.ID] = &copied
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*repository.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shipment, ok := s.shipments[id]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	copied := *shipment
	return &copied, nil
}

func (s *fakeStore) SetInternationalAWB(_ context.Context, id, awb string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shipment, ok := s.shipments[id]; ok {
		shipment.InternationalAWB = &awb
	}
	return nil
}

func (s *fakeStore) GetAllActive(context.Context) ([]*repository.Shipment, error) {
	return nil, nil
}

func shipmentAt(status model.Status, version int64) *repository.Shipment {
	return &repository.Shipment{
		ID:      "SHP-1",
		OwnerID: "alice",
		Status:  string(status),
		Version: version,
	}
}

func TestReadThrough_RefreshSupersedesCachedRow(t *testing.T) {
	store := newFakeStore(shipmentAt(model.StatusBooked, 1))
	shipmentCache := cache.NewShipmentCache(store)
	reader := cache.NewReadThrough(shipmentCache, store)

	// Warm the cache, then advance the backing row the way a background
	// worker does: straight through the engine, never through HTTP.
	got, err := reader.GetByID(context.Background(), "SHP-1")
	require.NoError(t, err)
	require.Equal(t, string(model.StatusBooked), got.Status)

	store.put(shipmentAt(model.StatusAtWarehouse, 2))
	reader.Refresh(shipmentAt(model.StatusAtWarehouse, 2))

	got, err = reader.GetByID(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusAtWarehouse), got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestReadThrough_RefreshIsForwardOnly(t *testing.T) {
	store := newFakeStore(shipmentAt(model.StatusAtWarehouse, 2))
	shipmentCache := cache.NewShipmentCache(store)
	reader := cache.NewReadThrough(shipmentCache, store)

	reader.Refresh(shipmentAt(model.StatusAtWarehouse, 2))

	// An out-of-order snapshot from an older write must not regress the view.
	reader.Refresh(shipmentAt(model.StatusBooked, 1))

	got, err := reader.GetByID(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusAtWarehouse), got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestReadThrough_MissFallsBackToStore(t *testing.T) {
	store := newFakeStore(shipmentAt(model.StatusBooked, 1))
	shipmentCache := cache.NewShipmentCache(store)
	reader := cache.NewReadThrough(shipmentCache, store)

	got, err := reader.GetByID(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	_, err = reader.GetByID(context.Background(), "SHP-404")
	assert.ErrorIs(t, err, repository.ErrObjectNotFound)
}

func TestReadThrough_SetInternationalAWBInvalidates(t *testing.T) {
	store := newFakeStore(shipmentAt(model.StatusDispatched, 6))
	shipmentCache := cache.NewShipmentCache(store)
	reader := cache.NewReadThrough(shipmentCache, store)

	_, err := reader.GetByID(context.Background(), "SHP-1")
	require.NoError(t, err)

	require.NoError(t, reader.SetInternationalAWB(context.Background(), "SHP-1", "INTL-000123"))

	got, err := reader.GetByID(context.Background(), "SHP-1")
	require.NoError(t, err)
	require.NotNil(t, got.InternationalAWB)
	assert.Equal(t, "INTL-000123", *got.InternationalAWB)
}
