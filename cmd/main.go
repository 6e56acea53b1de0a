package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/globeship/shipment-service/internal/cache"
	"github.com/globeship/shipment-service/internal/carrier"
	"github.com/globeship/shipment-service/internal/db"
	"github.com/globeship/shipment-service/internal/kafka"
	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/logger"
	"github.com/globeship/shipment-service/internal/notify"
	"github.com/globeship/shipment-service/internal/ratelimit"
	"github.com/globeship/shipment-service/internal/repository/postgresql"
	"github.com/globeship/shipment-service/internal/server"
	"github.com/globeship/shipment-service/internal/workers"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zlog := logger.New()
	defer func() {
		_ = zlog.Sync()
	}()

	dbPool, err := db.NewDb(ctx)
	if err != nil {
		fmt.Println("Database init error:", err)
		return
	}

	shipmentRepo := postgresql.NewShipmentRepo(dbPool)
	timelineRepo := postgresql.NewTimelineRepo(dbPool)
	stuckFlagRepo := postgresql.NewStuckFlagRepo(dbPool)
	outboxRepo := postgresql.NewOutboxTaskRepo()
	userRepo := postgresql.NewUserRepo(dbPool)

	producer := newProducer()
	notifier := notify.NewKafkaNotifier(producer)

	shipmentCache := cache.NewShipmentCache(shipmentRepo)
	if err := shipmentCache.LoadInitialData(ctx); err != nil {
		log.Printf("WARN: failed to warm shipment cache: %v", err)
	}
	reader := cache.NewReadThrough(shipmentCache, shipmentRepo)

	engine := lifecycle.NewEngine(dbPool, shipmentRepo, timelineRepo, outboxRepo, notifier, reader, zlog)

	publisher := kafka.NewPublisher(dbPool, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
		MaxAttempts:  5,
	}, zlog)
	go publisher.Run(ctx)

	carrierClient := newCarrierClient()
	carrierSync := workers.NewCarrierSync(engine, shipmentRepo, carrierClient, workers.CarrierSyncConfig{
		Interval:    5 * time.Minute,
		Concurrency: 4,
	}, zlog)
	go carrierSync.Run(ctx)

	stuckDetector := workers.NewStuckDetector(shipmentRepo, stuckFlagRepo, workers.StuckDetectorConfig{
		Interval:  time.Hour,
		Threshold: 48 * time.Hour,
	}, zlog)
	go stuckDetector.Run(ctx)

	simulation := workers.NewSimulationDriver(engine, shipmentRepo, workers.SimulationConfig{
		Interval: 30 * time.Second,
	}, zlog)
	go simulation.Run(ctx)

	limiter := ratelimit.New(ratelimit.DefaultLimits())

	srv := server.New(engine, reader, userRepo, limiter, zlog)

	go func() {
		if err := srv.Run(listenPort()); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", listenPort())

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown failed: %v", err)
	}
	publisher.Shutdown()

	log.Println("Shutdown complete")
}

func listenPort() string {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		return port
	}
	return "9000"
}

func newProducer() kafka.Producer {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return kafka.NewConsoleProducer()
	}
	return kafka.NewWriterProducer(strings.Split(brokers, ","))
}

func newCarrierClient() carrier.Client {
	baseURL := os.Getenv("CARRIER_BASE_URL")
	if baseURL == "" {
		return carrier.NewConsoleClient()
	}
	return carrier.NewHTTPClient(baseURL, os.Getenv("CARRIER_API_KEY"))
}
