package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/globeship/shipment-service/internal/db"
	"github.com/globeship/shipment-service/internal/repository"
)

type ShipmentRepo struct {
	db db.DB
}

func NewShipmentRepo(db db.DB) *ShipmentRepo {
	return &ShipmentRepo{db: db}
}

func (r *ShipmentRepo) CreateTx(ctx context.Context, tx db.Tx, shipment *repository.Shipment) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO shipments (
            id, owner_id, status, current_leg, version, domestic_awb, international_awb, simulated, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, shipment.ID, shipment.OwnerID, shipment.Status, shipment.CurrentLeg, shipment.Version,
		shipment.DomesticAWB, shipment.InternationalAWB, shipment.Simulated, shipment.CreatedAt, shipment.UpdatedAt)
	return err
}

func (r *ShipmentRepo) GetByID(ctx context.Context, id string) (*repository.Shipment, error) {
	var shipment repository.Shipment
	err := r.db.Get(ctx, &shipment, "SELECT * FROM shipments WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// UpdateStatusTx is the compare-and-swap write: the row is touched only if the
// persisted version still equals expectedVersion. Returns the number of rows
// affected; 0 means another writer advanced the version first (or the row is
// gone) and the caller must treat the whole transition as rejected.
func (r *ShipmentRepo) UpdateStatusTx(ctx context.Context, tx db.Tx, id, status, leg string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
        UPDATE shipments
        SET status = $1, current_leg = $2, version = version + 1, updated_at = $3
        WHERE id = $4 AND version = $5
    `, status, leg, updatedAt, id, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update shipment %s: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

func (r *ShipmentRepo) SetDomesticAWB(ctx context.Context, id, awb string) error {
	_, err := r.db.Exec(ctx, "UPDATE shipments SET domestic_awb = $1, updated_at = $2 WHERE id = $3", awb, time.Now().UTC(), id)
	return err
}

func (r *ShipmentRepo) SetInternationalAWB(ctx context.Context, id, awb string) error {
	_, err := r.db.Exec(ctx, "UPDATE shipments SET international_awb = $1, updated_at = $2 WHERE id = $3", awb, time.Now().UTC(), id)
	return err
}

// GetDomesticWithAWB returns shipments still on the domestic leg that have a
// carrier reference assigned, the working set of the carrier-sync worker.
func (r *ShipmentRepo) GetDomesticWithAWB(ctx context.Context) ([]*repository.Shipment, error) {
	var shipments []*repository.Shipment
	err := r.db.Select(ctx, &shipments, `
        SELECT * FROM shipments
        WHERE current_leg = 'DOMESTIC' AND domestic_awb IS NOT NULL
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get domestic shipments: %w", err)
	}
	return shipments, nil
}

// GetStalled returns domestic-leg shipments not touched since the cutoff.
func (r *ShipmentRepo) GetStalled(ctx context.Context, cutoff time.Time) ([]*repository.Shipment, error) {
	var shipments []*repository.Shipment
	err := r.db.Select(ctx, &shipments, `
        SELECT * FROM shipments
        WHERE current_leg = 'DOMESTIC' AND updated_at < $1
        ORDER BY updated_at ASC
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get stalled shipments: %w", err)
	}
	return shipments, nil
}

// GetSimulatedActive returns demo shipments that have not reached a terminal
// status, the working set of the simulation driver.
func (r *ShipmentRepo) GetSimulatedActive(ctx context.Context) ([]*repository.Shipment, error) {
	var shipments []*repository.Shipment
	err := r.db.Select(ctx, &shipments, `
        SELECT * FROM shipments
        WHERE simulated = TRUE AND status NOT IN ('DELIVERED', 'CANCELLED')
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get simulated shipments: %w", err)
	}
	return shipments, nil
}

// GetAllActive feeds the in-memory read cache on startup.
func (r *ShipmentRepo) GetAllActive(ctx context.Context) ([]*repository.Shipment, error) {
	var shipments []*repository.Shipment
	err := r.db.Select(ctx, &shipments, `
        SELECT * FROM shipments
        WHERE status NOT IN ('DELIVERED', 'CANCELLED')
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get active shipments: %w", err)
	}
	return shipments, nil
}
