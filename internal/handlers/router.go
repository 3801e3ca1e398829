package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/middleware"
	"github.com/xelth-com/ecklinen/internal/scan"
)

// Router wraps the mux router and the scan service
type Router struct {
	*mux.Router
	svc *scan.Service
	log *zap.SugaredLogger
}

// NewRouter creates the HTTP router with all routes. /api routes require a
// bearer token signed with secret.
func NewRouter(svc *scan.Service, secret string, gatherer prometheus.Gatherer, log *zap.SugaredLogger) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		svc:    svc,
		log:    log,
	}
	r.Use(middleware.Logging(log))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(secret, log))

	// Device routes
	devices := api.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("/register", r.registerDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{uuid}/heartbeat", r.heartbeat).Methods(http.MethodPost)
	devices.HandleFunc("/{uuid}/deactivate", r.deactivateDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{uuid}/sync-status", r.getSyncStatus).Methods(http.MethodGet)

	// Scan routes
	sc := api.PathPrefix("/scan").Subrouter()
	sc.HandleFunc("/sessions", r.startSession).Methods(http.MethodPost)
	sc.HandleFunc("/sessions/{id}", r.getSession).Methods(http.MethodGet)
	sc.HandleFunc("/sessions/{id}/end", r.endSession).Methods(http.MethodPost)
	sc.HandleFunc("/sessions/{id}/metadata", r.updateMetadata).Methods(http.MethodPatch)
	sc.HandleFunc("/sessions/{id}/readings", r.ingestReadings).Methods(http.MethodPost)
	sc.HandleFunc("/sessions/{id}/reproject", r.reproject).Methods(http.MethodPost)
	sc.HandleFunc("/sync", r.syncOffline).Methods(http.MethodPost)
	sc.HandleFunc("/registry/refresh", r.refreshRegistry).Methods(http.MethodPost)
	sc.HandleFunc("/conflicts", r.listConflicts).Methods(http.MethodGet)
	sc.HandleFunc("/conflicts/{id}/resolve", r.resolveConflict).Methods(http.MethodPost)

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// actor returns the authenticated caller; Auth guarantees one on /api
func actor(req *http.Request) scan.Actor {
	a, _ := middleware.ActorFrom(req.Context())
	return a
}

// decode reads a JSON body into dst
func decode(w http.ResponseWriter, req *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, NewBadPayloadError())
		return false
	}
	return true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
