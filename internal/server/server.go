//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/ratelimit"
	"github.com/globeship/shipment-service/internal/repository"
)

type Engine interface {
	Book(ctx context.Context, req lifecycle.BookingRequest) (*repository.Shipment, error)
	Transition(ctx context.Context, shipmentID string, target model.Status, source model.Source, expectedVersion int64, metadata map[string]string) (*repository.Shipment, error)
	Timeline(ctx context.Context, shipmentID string) ([]*repository.TimelineEntry, error)
}

type ShipmentReader interface {
	GetByID(ctx context.Context, id string) (*repository.Shipment, error)
	SetInternationalAWB(ctx context.Context, id, awb string) error
}

type UserRepo interface {
	ValidateUser(ctx context.Context, username, password string) (bool, error)
	IsAdmin(ctx context.Context, username string) (bool, error)
}

type Server struct {
	engine    Engine
	shipments ShipmentReader
	userRepo  UserRepo
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
	server    *http.Server
}

func New(engine Engine, shipments ShipmentReader, userRepo UserRepo, limiter *ratelimit.Limiter, logger *zap.Logger) *Server {
	return &Server{
		engine:    engine,
		shipments: shipments,
		userRepo:  userRepo,
		limiter:   limiter,
		logger:    logger,
	}
}

func (s *Server) Run(port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.logger.Info("server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.metricsMiddleware)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(s.basicAuthMiddleware)

	api.Handle("/shipments",
		s.rateLimitMiddleware(ratelimit.ActionBooking, http.HandlerFunc(s.handleBookShipment))).Methods(http.MethodPost)
	api.HandleFunc("/shipments/{id}", s.handleGetShipment).Methods(http.MethodGet)
	api.HandleFunc("/shipments/{id}/timeline", s.handleGetTimeline).Methods(http.MethodGet)

	admin := api.NewRoute().Subrouter()
	admin.Use(s.adminOnlyMiddleware)
	admin.Handle("/shipments/{id}/actions",
		s.rateLimitMiddleware(ratelimit.ActionAdmin, http.HandlerFunc(s.handleAdminAction))).Methods(http.MethodPost)
	admin.Handle("/shipments/{id}/dispatch",
		s.rateLimitMiddleware(ratelimit.ActionAdmin, http.HandlerFunc(s.handleDispatchInternational))).Methods(http.MethodPost)

	return router
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
