package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/ecklinen/internal/scan"
)

// registerDevice creates a device or refreshes a known one
func (r *Router) registerDevice(w http.ResponseWriter, req *http.Request) {
	var body scan.RegisterDeviceInput
	if !decode(w, req, &body) {
		return
	}
	device, created, err := r.svc.RegisterDevice(req.Context(), actor(req), body)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, device)
}

func (r *Router) heartbeat(w http.ResponseWriter, req *http.Request) {
	device, err := r.svc.Heartbeat(req.Context(), actor(req), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, device)
}

func (r *Router) deactivateDevice(w http.ResponseWriter, req *http.Request) {
	device, err := r.svc.DeactivateDevice(req.Context(), actor(req), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, device)
}

func (r *Router) getSyncStatus(w http.ResponseWriter, req *http.Request) {
	status, err := r.svc.GetSyncStatus(req.Context(), actor(req), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (r *Router) refreshRegistry(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.InvalidateSnapshot(req.Context(), actor(req)); err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
