package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/db"
	"github.com/globeship/shipment-service/internal/metrics"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
)

const shipmentEventsTopic = "shipment-events"

type ShipmentRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, shipment *repository.Shipment) error
	GetByID(ctx context.Context, id string) (*repository.Shipment, error)
	UpdateStatusTx(ctx context.Context, tx db.Tx, id, status, leg string, expectedVersion int64, updatedAt time.Time) (int64, error)
}

type TimelineRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.TimelineEntry) error
	GetByShipmentID(ctx context.Context, shipmentID string) ([]*repository.TimelineEntry, error)
}

type OutboxRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
}

// Notifier is the best-effort notification collaborator. Failures are logged
// and never propagated: a slow or dead notification channel must not delay or
// roll back an accepted transition.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, shipmentID, ownerID string, status model.Status) error
	DispatchInvoice(ctx context.Context, shipmentID, ownerID string) error
}

// SnapshotSink receives the materialized shipment after every accepted write.
// Read-path caches hang off this hook so they stay current no matter which
// actor class drove the change; background workers mutate shipments without
// ever touching the HTTP layer.
type SnapshotSink interface {
	Refresh(shipment *repository.Shipment)
}

// Engine is the authoritative transition function for shipments. All four
// actor classes (carrier sync, staff endpoints, simulation driver, system
// jobs) go through Transition; there is no force path around the table.
type Engine struct {
	db        db.DB
	shipments ShipmentRepository
	timeline  TimelineRepository
	outbox    OutboxRepository
	notifier  Notifier
	snapshots SnapshotSink
	logger    *zap.Logger

	now func() time.Time
}

func NewEngine(database db.DB, shipments ShipmentRepository, timeline TimelineRepository, outbox OutboxRepository, notifier Notifier, snapshots SnapshotSink, logger *zap.Logger) *Engine {
	return &Engine{
		db:        database,
		shipments: shipments,
		timeline:  timeline,
		outbox:    outbox,
		notifier:  notifier,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

type BookingRequest struct {
	OwnerID     string
	DomesticAWB string
	Simulated   bool
}

// Book creates a shipment at BOOKED with version 1 and the first timeline
// entry, all in one transaction.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (*repository.Shipment, error) {
	now := e.now().UTC()
	shipment := &repository.Shipment{
		ID:         newShipmentID(),
		OwnerID:    req.OwnerID,
		Status:     string(model.StatusBooked),
		CurrentLeg: string(model.LegFor(model.StatusBooked)),
		Version:    1,
		Simulated:  req.Simulated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.DomesticAWB != "" {
		awb := req.DomesticAWB
		shipment.DomesticAWB = &awb
	}

	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin booking transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if err := e.shipments.CreateTx(ctx, tx, shipment); err != nil {
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	entry := &repository.TimelineEntry{
		ID:         uuid.New(),
		ShipmentID: shipment.ID,
		Status:     shipment.Status,
		Source:     string(model.SourceInternal),
		Version:    1,
		Metadata:   mustMarshalMetadata(map[string]string{"actor_id": req.OwnerID, "action": "book"}),
		CreatedAt:  now,
	}
	if err := e.timeline.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := e.enqueueEventTx(ctx, tx, entry, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(model.SourceInternal), shipment.Status).Inc()
	e.refreshSnapshot(shipment)
	e.notifyAsync(shipment.ID, shipment.OwnerID, model.StatusBooked)

	return shipment, nil
}

// Transition moves a shipment to targetStatus iff targetStatus is a direct
// successor of the current status and the persisted version still equals
// expectedVersion. The version bump, the timeline append and the outbox task
// commit atomically; when two writers race from the same version, the storage
// precondition lets exactly one through and the loser gets ErrVersionConflict.
func (e *Engine) Transition(ctx context.Context, shipmentID string, target model.Status, source model.Source, expectedVersion int64, metadata map[string]string) (*repository.Shipment, error) {
	if !target.IsValid() {
		metrics.InvalidTransitionsTotal.Inc()
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("unknown transition source %q", source)
	}

	shipment, err := e.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read shipment %s: %w", shipmentID, err)
	}

	current := model.Status(shipment.Status)
	if shipment.Version != expectedVersion {
		metrics.VersionConflictsTotal.Inc()
		return nil, fmt.Errorf("%w: expected version %d, have %d", ErrVersionConflict, expectedVersion, shipment.Version)
	}
	if !model.CanTransition(current, target) {
		metrics.InvalidTransitionsTotal.Inc()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	now := e.now().UTC()
	newVersion := expectedVersion + 1
	leg := model.LegFor(target)

	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transition transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	affected, err := e.shipments.UpdateStatusTx(ctx, tx, shipmentID, string(target), string(leg), expectedVersion, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Another writer advanced the version between our read and the
		// compare-and-swap. First writer wins; the caller restarts from a
		// fresh read.
		metrics.VersionConflictsTotal.Inc()
		return nil, fmt.Errorf("%w: shipment %s moved past version %d", ErrVersionConflict, shipmentID, expectedVersion)
	}

	entry := &repository.TimelineEntry{
		ID:         uuid.New(),
		ShipmentID: shipmentID,
		Status:     string(target),
		Source:     string(source),
		Version:    newVersion,
		Metadata:   mustMarshalMetadata(metadata),
		CreatedAt:  now,
	}
	if err := e.timeline.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := e.enqueueEventTx(ctx, tx, entry, metadata); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(source), string(target)).Inc()

	updated := *shipment
	updated.Status = string(target)
	updated.CurrentLeg = string(leg)
	updated.Version = newVersion
	updated.UpdatedAt = now

	e.refreshSnapshot(&updated)
	e.notifyAsync(shipmentID, shipment.OwnerID, target)

	return &updated, nil
}

// Timeline returns the full audit trail of a shipment, oldest first.
func (e *Engine) Timeline(ctx context.Context, shipmentID string) ([]*repository.TimelineEntry, error) {
	entries, err := e.timeline.GetByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if _, err := e.shipments.GetByID(ctx, shipmentID); errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
	}
	return entries, nil
}

// ReplayStatus folds the timeline back into a status, for audit tooling. The
// result must always match the materialized row.
func (e *Engine) ReplayStatus(ctx context.Context, shipmentID string) (model.Status, error) {
	entries, err := e.Timeline(ctx, shipmentID)
	if err != nil {
		return "", err
	}
	statuses := make([]model.Status, len(entries))
	for i, entry := range entries {
		statuses[i] = model.Status(entry.Status)
	}
	return model.Replay(statuses)
}

func (e *Engine) enqueueEventTx(ctx context.Context, tx db.Tx, entry *repository.TimelineEntry, metadata map[string]string) error {
	payload, err := json.Marshal(repository.ShipmentEventPayload{
		EntryID:    entry.ID,
		ShipmentID: entry.ShipmentID,
		Status:     entry.Status,
		Source:     entry.Source,
		Version:    entry.Version,
		Metadata:   metadata,
		OccurredAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal shipment event: %w", err)
	}
	return e.outbox.CreateTx(ctx, tx, &repository.OutboxTask{
		Payload: payload,
		Topic:   shipmentEventsTopic,
	})
}

func (e *Engine) refreshSnapshot(shipment *repository.Shipment) {
	if e.snapshots == nil {
		return
	}
	e.snapshots.Refresh(shipment)
}

// notifyAsync runs the owner notification off the critical path with its own
// timeout. Transition success is already committed at this point.
func (e *Engine) notifyAsync(shipmentID, ownerID string, status model.Status) {
	if e.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := e.notifier.NotifyStatusChange(ctx, shipmentID, ownerID, status); err != nil {
			e.logger.Warn("status notification failed",
				zap.String("shipment_id", shipmentID),
				zap.String("status", string(status)),
				zap.Error(err))
		}
		if status == model.StatusDelivered {
			if err := e.notifier.DispatchInvoice(ctx, shipmentID, ownerID); err != nil {
				e.logger.Warn("invoice dispatch failed",
					zap.String("shipment_id", shipmentID),
					zap.Error(err))
			}
		}
	}()
}

func newShipmentID() string {
	return "SHP-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

func mustMarshalMetadata(metadata map[string]string) json.RawMessage {
	if len(metadata) == 0 {
		return json.RawMessage("{}")
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
