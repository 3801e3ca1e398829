package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/ecklinen/internal/scan"
)

// ReadingsRequest is the body of a bulk ingest call
type ReadingsRequest struct {
	Readings []scan.Reading `json:"readings"`
}

func (r *Router) startSession(w http.ResponseWriter, req *http.Request) {
	var body scan.StartInput
	if !decode(w, req, &body) {
		return
	}
	session, err := r.svc.StartSession(req.Context(), actor(req), body)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (r *Router) getSession(w http.ResponseWriter, req *http.Request) {
	session, err := r.svc.GetSession(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (r *Router) endSession(w http.ResponseWriter, req *http.Request) {
	var body scan.EndInput
	// An empty body ends the session with the counted items
	if req.ContentLength != 0 && !decode(w, req, &body) {
		return
	}
	session, err := r.svc.EndSession(req.Context(), actor(req), mux.Vars(req)["id"], body)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (r *Router) updateMetadata(w http.ResponseWriter, req *http.Request) {
	var patch map[string]interface{}
	if !decode(w, req, &patch) {
		return
	}
	session, err := r.svc.UpdateSessionMetadata(req.Context(), actor(req), mux.Vars(req)["id"], patch)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (r *Router) ingestReadings(w http.ResponseWriter, req *http.Request) {
	var body ReadingsRequest
	if !decode(w, req, &body) {
		return
	}
	result, err := r.svc.IngestBulk(req.Context(), actor(req), mux.Vars(req)["id"], body.Readings)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) reproject(w http.ResponseWriter, req *http.Request) {
	result, err := r.svc.Reproject(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
