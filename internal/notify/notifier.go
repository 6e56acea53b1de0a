package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/globeship/shipment-service/internal/kafka"
	"github.com/globeship/shipment-service/internal/model"
)

const (
	notificationsTopic = "shipment-notifications"
	invoicesTopic      = "invoice-dispatch"
)

// KafkaNotifier pushes owner notifications and invoice triggers through the
// shared producer. Best-effort by contract: callers treat every error as
// log-only.
type KafkaNotifier struct {
	producer kafka.Producer
}

func NewKafkaNotifier(producer kafka.Producer) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

type statusNotification struct {
	ShipmentID string    `json:"shipment_id"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
}

func (n *KafkaNotifier) NotifyStatusChange(ctx context.Context, shipmentID, ownerID string, status model.Status) error {
	payload, err := json.Marshal(statusNotification{
		ShipmentID: shipmentID,
		OwnerID:    ownerID,
		Status:     string(status),
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.producer.SendMessage(ctx, notificationsTopic, []byte(shipmentID), payload)
}

func (n *KafkaNotifier) DispatchInvoice(ctx context.Context, shipmentID, ownerID string) error {
	payload, err := json.Marshal(map[string]string{
		"shipment_id": shipmentID,
		"owner_id":    ownerID,
	})
	if err != nil {
		return err
	}
	return n.producer.SendMessage(ctx, invoicesTopic, []byte(shipmentID), payload)
}
