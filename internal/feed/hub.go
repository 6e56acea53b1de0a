package feed

import (
	"sync"

	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/repository"
)

// Hub fans timeline events out to per-shipment subscribers. Delivery is
// best-effort: a subscriber that cannot keep up loses events and is expected
// to Resync its view, which the subscription contract requires anyway.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

type Subscription struct {
	C          chan repository.ShipmentEventPayload
	shipmentID string
	hub        *Hub
	once       sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers an observer for one shipment. The caller must perform a
// full timeline refetch (View.Resync) before consuming the channel.
func (h *Hub) Subscribe(shipmentID string) *Subscription {
	sub := &Subscription{
		C:          make(chan repository.ShipmentEventPayload, 16),
		shipmentID: shipmentID,
		hub:        h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[shipmentID] == nil {
		h.subs[shipmentID] = make(map[*Subscription]struct{})
	}
	h.subs[shipmentID][sub] = struct{}{}
	return sub
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		delete(s.hub.subs[s.shipmentID], s)
		if len(s.hub.subs[s.shipmentID]) == 0 {
			delete(s.hub.subs, s.shipmentID)
		}
		close(s.C)
	})
}

func (h *Hub) Publish(event repository.ShipmentEventPayload) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.ShipmentID] {
		select {
		case sub.C <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("shipment_id", event.ShipmentID),
				zap.Int64("version", event.Version))
		}
	}
}
