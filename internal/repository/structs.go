package repository

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("not found")

// Shipment is the materialized row. Status/CurrentLeg/Source columns hold the
// string form of the model enums; version is the optimistic-concurrency token
// and every accepted write bumps it by exactly one.
type Shipment struct {
	ID               string    `db:"id"`
	OwnerID          string    `db:"owner_id"`
	Status           string    `db:"status"`
	CurrentLeg       string    `db:"current_leg"`
	Version          int64     `db:"version"`
	DomesticAWB      *string   `db:"domestic_awb"`
	InternationalAWB *string   `db:"international_awb"`
	Simulated        bool      `db:"simulated"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// TimelineEntry is append-only. (shipment_id, version) is unique so a retried
// append for the same accepted transition is a harmless no-op.
type TimelineEntry struct {
	ID         uuid.UUID       `db:"id"`
	ShipmentID string          `db:"shipment_id"`
	Status     string          `db:"status"`
	Source     string          `db:"source"`
	Version    int64           `db:"version"`
	Metadata   json.RawMessage `db:"metadata"`
	CreatedAt  time.Time       `db:"created_at"`
}

// StuckFlag is raised by the stuck-shipment detector for operator attention.
// One open flag per shipment.
type StuckFlag struct {
	ID           int64     `db:"id"`
	ShipmentID   string    `db:"shipment_id"`
	Status       string    `db:"status"`
	StalledSince time.Time `db:"stalled_since"`
	FlaggedAt    time.Time `db:"flagged_at"`
	Resolved     bool      `db:"resolved"`
}
