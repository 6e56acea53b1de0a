package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/db"
	"github.com/globeship/shipment-service/internal/feed"
	"github.com/globeship/shipment-service/internal/logger"
	"github.com/globeship/shipment-service/internal/repository"
	"github.com/globeship/shipment-service/internal/repository/postgresql"
)

const (
	kafkaTopic = "shipment-events"
	groupID    = "shipment-feed-consumer-group"
)

// Feed consumer: reads accepted-transition events from Kafka and maintains
// per-shipment observer views under the reconciliation contract (full
// refetch on first sight of a shipment, dedupe by entry id afterwards).
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zlog := logger.New()
	defer func() {
		_ = zlog.Sync()
	}()

	dbPool, err := db.NewDb(ctx)
	if err != nil {
		log.Fatalf("Database init error: %v", err)
	}
	timelineRepo := postgresql.NewTimelineRepo(dbPool)

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(brokers, ","),
		GroupID:        groupID,
		Topic:          kafkaTopic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		if err := r.Close(); err != nil {
			zlog.Error("error closing kafka reader", zap.Error(err))
		}
	}()

	zlog.Info("feed consumer connected", zap.String("topic", kafkaTopic), zap.String("brokers", brokers))

	hub := feed.NewHub(zlog)
	views := make(map[string]*feed.View)

	for {
		select {
		case <-ctx.Done():
			zlog.Info("shutdown signal received, stopping consumer")
			return
		default:
			m, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zlog.Error("error reading message", zap.Error(err))
				time.Sleep(5 * time.Second)
				continue
			}

			var event repository.ShipmentEventPayload
			if err := json.Unmarshal(m.Value, &event); err != nil {
				zlog.Warn("skipping malformed event", zap.Error(err))
				continue
			}

			view, ok := views[event.ShipmentID]
			if !ok {
				view = feed.NewView(event.ShipmentID, timelineRepo)
				if err := view.Resync(ctx); err != nil {
					zlog.Error("view resync failed",
						zap.String("shipment_id", event.ShipmentID), zap.Error(err))
					continue
				}
				views[event.ShipmentID] = view
			}

			hub.Publish(event)
			if view.ApplyEvent(event) {
				zlog.Info("shipment advanced",
					zap.String("shipment_id", event.ShipmentID),
					zap.String("status", event.Status),
					zap.String("source", event.Source),
					zap.Int64("version", event.Version))
			}
		}
	}
}
