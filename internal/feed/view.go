package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/globeship/shipment-service/internal/repository"
)

type TimelineFetcher interface {
	GetByShipmentID(ctx context.Context, shipmentID string) ([]*repository.TimelineEntry, error)
}

// View is an observer's local copy of one shipment's timeline. Push delivery
// is unreliable by assumption (duplicates, reordering, gaps while
// disconnected), so the view enforces the reconciliation contract itself:
// entries are deduplicated by id, materialized snapshots older than the
// highest version already seen are discarded, and Resync performs a full
// refetch that resets local state instead of trusting the push stream.
type View struct {
	mu sync.Mutex

	shipmentID string
	fetcher    TimelineFetcher

	lastKnownVersion int64
	seenEntryIDs     map[uuid.UUID]struct{}
	entries          []*repository.TimelineEntry
	current          *repository.Shipment
}

func NewView(shipmentID string, fetcher TimelineFetcher) *View {
	return &View{
		shipmentID:   shipmentID,
		fetcher:      fetcher,
		seenEntryIDs: make(map[uuid.UUID]struct{}),
	}
}

// Resync refetches the full timeline and resets the local state. Must be
// called on every (re)subscribe before trusting further push events.
func (v *View) Resync(ctx context.Context) error {
	entries, err := v.fetcher.GetByShipmentID(ctx, v.shipmentID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = entries
	v.seenEntryIDs = make(map[uuid.UUID]struct{}, len(entries))
	v.lastKnownVersion = 0
	for _, entry := range entries {
		v.seenEntryIDs[entry.ID] = struct{}{}
		if entry.Version > v.lastKnownVersion {
			v.lastKnownVersion = entry.Version
		}
	}
	return nil
}

// ApplyEvent merges one pushed timeline event. Returns false for duplicates.
func (v *View) ApplyEvent(event repository.ShipmentEventPayload) bool {
	if event.ShipmentID != v.shipmentID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, seen := v.seenEntryIDs[event.EntryID]; seen {
		return false
	}
	v.seenEntryIDs[event.EntryID] = struct{}{}
	v.entries = append(v.entries, &repository.TimelineEntry{
		ID:         event.EntryID,
		ShipmentID: event.ShipmentID,
		Status:     event.Status,
		Source:     event.Source,
		Version:    event.Version,
		CreatedAt:  event.OccurredAt,
	})
	if event.Version > v.lastKnownVersion {
		v.lastKnownVersion = event.Version
	}
	return true
}

// ApplySnapshot merges a pushed materialized shipment. Snapshots carrying a
// version lower than what the view has already seen are stale re-deliveries
// and are rejected.
func (v *View) ApplySnapshot(shipment *repository.Shipment) bool {
	if shipment.ID != v.shipmentID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if shipment.Version < v.lastKnownVersion {
		return false
	}
	v.current = shipment
	v.lastKnownVersion = shipment.Version
	return true
}

func (v *View) LastKnownVersion() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastKnownVersion
}

func (v *View) Entries() []*repository.TimelineEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*repository.TimelineEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

func (v *View) Current() *repository.Shipment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}
