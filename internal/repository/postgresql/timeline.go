package postgresql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/globeship/shipment-service/internal/db"
	"github.com/globeship/shipment-service/internal/repository"
)

type TimelineRepo struct {
	db db.DB
}

func NewTimelineRepo(db db.DB) *TimelineRepo {
	return &TimelineRepo{db: db}
}

// CreateTx appends one entry. The unique index on (shipment_id, version)
// makes a duplicate append for the same accepted transition a no-op, so an
// at-least-once caller can never double-count a business transition.
func (r *TimelineRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.TimelineEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO shipment_timeline (
            id, shipment_id, status, source, version, metadata, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (shipment_id, version) DO NOTHING
    `, entry.ID, entry.ShipmentID, entry.Status, entry.Source, entry.Version, entry.Metadata, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append timeline entry for shipment %s: %w", entry.ShipmentID, err)
	}
	return nil
}

func (r *TimelineRepo) GetByShipmentID(ctx context.Context, shipmentID string) ([]*repository.TimelineEntry, error) {
	var entries []*repository.TimelineEntry
	err := r.db.Select(ctx, &entries, `
        SELECT * FROM shipment_timeline
        WHERE shipment_id = $1
        ORDER BY created_at ASC, version ASC
    `, shipmentID)
	return entries, err
}
