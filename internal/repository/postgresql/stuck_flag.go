package postgresql

import (
	"context"
	"fmt"

	"github.com/globeship/shipment-service/internal/db"
	"github.com/globeship/shipment-service/internal/repository"
)

type StuckFlagRepo struct {
	db db.DB
}

func NewStuckFlagRepo(db db.DB) *StuckFlagRepo {
	return &StuckFlagRepo{db: db}
}

// Upsert raises a flag for a shipment. A shipment carries at most one open
// flag; flagging an already-flagged shipment only refreshes flagged_at.
func (r *StuckFlagRepo) Upsert(ctx context.Context, flag *repository.StuckFlag) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO stuck_flags (shipment_id, status, stalled_since, flagged_at, resolved)
        VALUES ($1, $2, $3, $4, FALSE)
        ON CONFLICT (shipment_id) WHERE NOT resolved
        DO UPDATE SET flagged_at = EXCLUDED.flagged_at
    `, flag.ShipmentID, flag.Status, flag.StalledSince, flag.FlaggedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert stuck flag for shipment %s: %w", flag.ShipmentID, err)
	}
	return nil
}

func (r *StuckFlagRepo) GetOpen(ctx context.Context) ([]*repository.StuckFlag, error) {
	var flags []*repository.StuckFlag
	err := r.db.Select(ctx, &flags, `
        SELECT * FROM stuck_flags
        WHERE resolved = FALSE
        ORDER BY flagged_at ASC
    `)
	return flags, err
}

func (r *StuckFlagRepo) Resolve(ctx context.Context, shipmentID string) error {
	_, err := r.db.Exec(ctx, "UPDATE stuck_flags SET resolved = TRUE WHERE shipment_id = $1 AND resolved = FALSE", shipmentID)
	return err
}
