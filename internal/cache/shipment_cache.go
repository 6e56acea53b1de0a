package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/repository"
)

type ShipmentSource interface {
	GetAllActive(ctx context.Context) ([]*repository.Shipment, error)
}

// ShipmentCache is a read cache of active shipments for the tracking read
// path. Writers go straight to the engine; the cache only ever moves forward,
// ignoring updates whose version is not newer than what it already holds.
type ShipmentCache struct {
	mu    sync.RWMutex
	cache map[string]*repository.Shipment
	repo  ShipmentSource
}

func NewShipmentCache(repo ShipmentSource) *ShipmentCache {
	return &ShipmentCache{
		cache: make(map[string]*repository.Shipment),
		repo:  repo,
	}
}

func (c *ShipmentCache) LoadInitialData(ctx context.Context) error {
	shipments, err := c.repo.GetAllActive(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, shipment := range shipments {
		shipmentCopy := *shipment
		c.cache[shipment.ID] = &shipmentCopy
	}
	zap.L().Info("loaded active shipments into cache", zap.Int("count", len(c.cache)))
	return nil
}

func (c *ShipmentCache) Get(shipmentID string) (*repository.Shipment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	shipment, found := c.cache[shipmentID]
	if !found {
		return nil, false
	}
	shipmentCopy := *shipment
	return &shipmentCopy, true
}

// Update installs a newer snapshot. Stale snapshots (version not above the
// cached one) are dropped, mirroring the observer contract.
func (c *ShipmentCache) Update(shipment *repository.Shipment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.cache[shipment.ID]
	if found && shipment.Version <= existing.Version {
		return false
	}
	shipmentCopy := *shipment
	c.cache[shipment.ID] = &shipmentCopy
	return true
}

func (c *ShipmentCache) Delete(shipmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, shipmentID)
}
