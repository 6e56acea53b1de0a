package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/lifecycle"
	"github.com/globeship/shipment-service/internal/model"
	"github.com/globeship/shipment-service/internal/repository"
	"github.com/globeship/shipment-service/internal/validation"
)

// adminActions maps an admin action kind to the status it drives toward. The
// transition table still decides whether the move is legal for the shipment's
// current status.
var adminActions = map[string]model.Status{
	"quality_check":    model.StatusQualityChecked,
	"package":          model.StatusPackaged,
	"approve_dispatch": model.StatusDispatchApproved,
	"cancel":           model.StatusCancelled,
}

func (s *Server) handleBookShipment(w http.ResponseWriter, r *http.Request) {
	var payload validation.BookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.OwnerID == "" {
		payload.OwnerID = actorFrom(r.Context())
	}
	if err := validation.NormalizeBooking(&payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	shipment, err := s.engine.Book(r.Context(), lifecycle.BookingRequest{
		OwnerID:     payload.OwnerID,
		DomesticAWB: payload.DomesticAWB,
		Simulated:   payload.Simulated,
	})
	if err != nil {
		s.logger.Error("booking failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Please try again")
		return
	}

	respondJSON(w, http.StatusCreated, shipment)
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	shipment, err := s.shipments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Shipment not found")
			return
		}
		s.logger.Error("shipment lookup failed", zap.String("shipment_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Please try again")
		return
	}

	respondJSON(w, http.StatusOK, shipment)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entries, err := s.engine.Timeline(r.Context(), id)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Shipment not found")
			return
		}
		s.logger.Error("timeline lookup failed", zap.String("shipment_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Please try again")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var payload validation.AdminActionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.NormalizeAdminAction(&payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, ok := adminActions[payload.Action]
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown action: "+payload.Action)
		return
	}

	shipment, err := s.engine.Transition(r.Context(), id, target, model.SourceInternal, payload.ExpectedVersion, map[string]string{
		"actor_id": actorFrom(r.Context()),
		"action":   payload.Action,
	})
	if err != nil {
		s.respondTransitionError(w, id, err)
		return
	}

	respondJSON(w, http.StatusOK, shipment)
}

func (s *Server) handleDispatchInternational(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var payload validation.DispatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.NormalizeDispatch(&payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	shipment, err := s.engine.Transition(r.Context(), id, model.StatusDispatched, model.SourceInternal, payload.ExpectedVersion, map[string]string{
		"actor_id": actorFrom(r.Context()),
		"action":   "dispatch_international",
	})
	if err != nil {
		s.respondTransitionError(w, id, err)
		return
	}

	if payload.InternationalAWB != "" {
		if err := s.shipments.SetInternationalAWB(r.Context(), id, payload.InternationalAWB); err != nil {
			s.logger.Error("failed to store international awb",
				zap.String("shipment_id", id), zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, shipment)
}

func (s *Server) respondTransitionError(w http.ResponseWriter, shipmentID string, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		respondError(w, http.StatusNotFound, "Shipment not found")
	case errors.Is(err, lifecycle.ErrVersionConflict):
		respondError(w, http.StatusConflict, "Shipment was updated concurrently, please try again")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		respondError(w, http.StatusBadRequest, "This status change is not allowed")
	default:
		s.logger.Error("transition failed", zap.String("shipment_id", shipmentID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Please try again")
	}
}
