package feed_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/feed"
	"github.com/globeship/shipment-service/internal/repository"
)

func TestHub_PublishReachesSubscribersOfThatShipment(t *testing.T) {
	hub := feed.NewHub(zap.NewNop())

	sub1 := hub.Subscribe("SHP-1")
	defer sub1.Close()
	sub2 := hub.Subscribe("SHP-2")
	defer sub2.Close()

	published := repository.ShipmentEventPayload{
		EntryID:    uuid.New(),
		ShipmentID: "SHP-1",
		Status:     "BOOKED",
		Version:    1,
	}
	hub.Publish(published)

	select {
	case got := <-sub1.C:
		assert.Equal(t, published.EntryID, got.EntryID)
	default:
		t.Fatal("subscriber for SHP-1 did not receive the event")
	}

	select {
	case <-sub2.C:
		t.Fatal("subscriber for SHP-2 should not receive SHP-1 events")
	default:
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := feed.NewHub(zap.NewNop())

	sub := hub.Subscribe("SHP-1")
	defer sub.Close()

	// Overflow the buffer; Publish must never block.
	for i := 0; i < 100; i++ {
		hub.Publish(repository.ShipmentEventPayload{
			EntryID:    uuid.New(),
			ShipmentID: "SHP-1",
			Version:    int64(i + 1),
		})
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	require.Greater(t, received, 0)
	assert.Less(t, received, 100)
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := feed.NewHub(zap.NewNop())
	sub := hub.Subscribe("SHP-1")

	sub.Close()
	sub.Close()

	hub.Publish(repository.ShipmentEventPayload{EntryID: uuid.New(), ShipmentID: "SHP-1"})
}
