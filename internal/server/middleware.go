package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/globeship/shipment-service/internal/metrics"
	"github.com/globeship/shipment-service/internal/ratelimit"
)

type contextKey string

const actorKey contextKey = "actor"

func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		valid, err := s.userRepo.ValidateUser(r.Context(), username, password)
		if err != nil || !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r.Context())
		admin, err := s.userRepo.IsAdmin(r.Context(), actor)
		if err != nil {
			s.logger.Error("role lookup failed", zap.String("actor", actor), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		if !admin {
			respondError(w, http.StatusForbidden, "Forbidden: admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware sits strictly in front of the engine: a rejected
// request never touches persisted state.
func (s *Server) rateLimitMiddleware(action ratelimit.Action, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r.Context())

		result := s.limiter.Check(actor, action)
		if !result.Allowed {
			metrics.RateLimitedTotal.WithLabelValues(string(action)).Inc()
			retryAfterSec := int(math.Ceil(result.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
			respondError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Too many requests, retry after %ds", retryAfterSec))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(recorder.status)).
			Observe(time.Since(start).Seconds())
	})
}
