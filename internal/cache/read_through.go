package cache

import (
	"context"

	"github.com/globeship/shipment-service/internal/repository"
)

type ShipmentStore interface {
	GetByID(ctx context.Context, id string) (*repository.Shipment, error)
	SetInternationalAWB(ctx context.Context, id, awb string) error
}

// ReadThrough serves shipment reads from the cache, falling back to the
// repository on miss. Writes invalidate, they never populate: the next read
// repopulates from the authoritative row.
type ReadThrough struct {
	cache *ShipmentCache
	store ShipmentStore
}

func NewReadThrough(cache *ShipmentCache, store ShipmentStore) *ReadThrough {
	return &ReadThrough{cache: cache, store: store}
}

func (r *ReadThrough) GetByID(ctx context.Context, id string) (*repository.Shipment, error) {
	if shipment, found := r.cache.Get(id); found {
		return shipment, nil
	}
	shipment, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Update(shipment)
	return shipment, nil
}

func (r *ReadThrough) SetInternationalAWB(ctx context.Context, id, awb string) error {
	if err := r.store.SetInternationalAWB(ctx, id, awb); err != nil {
		return err
	}
	r.cache.Delete(id)
	return nil
}

// Refresh installs the snapshot returned by an accepted mutation. The cache
// is forward-only by version, so a stale snapshot is dropped.
func (r *ReadThrough) Refresh(shipment *repository.Shipment) {
	r.cache.Update(shipment)
}
