package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/ecklinen/internal/scan"
)

// SyncRequest is the body of an offline sync call. Sessions are decoded
// one by one so a malformed session fails alone.
type SyncRequest struct {
	DeviceID string            `json:"deviceId"`
	Sessions []json.RawMessage `json:"sessions"`
}

// syncOffline replays a device's offline sessions. The response carries one
// outcome per submitted session, even when some failed.
func (r *Router) syncOffline(w http.ResponseWriter, req *http.Request) {
	var body SyncRequest
	if !decode(w, req, &body) {
		return
	}
	if body.DeviceID == "" {
		respondJSON(w, http.StatusBadRequest, ValidationError{Field: "deviceId", BaseError: BaseError{Error: "field not present"}})
		return
	}
	result, err := r.svc.SyncOfflineJSON(req.Context(), actor(req), body.DeviceID, body.Sessions)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) listConflicts(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := scan.ConflictFilter{Tag: q.Get("tag")}

	if v := q.Get("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, NewInvalidParameterError("resolved"))
			return
		}
		filter.Resolved = &resolved
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondJSON(w, http.StatusBadRequest, NewInvalidParameterError("limit"))
			return
		}
		filter.Limit = limit
	}

	conflicts, err := r.svc.ListConflicts(req.Context(), actor(req), filter)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

func (r *Router) resolveConflict(w http.ResponseWriter, req *http.Request) {
	var body scan.ResolveInput
	if !decode(w, req, &body) {
		return
	}
	conflict, err := r.svc.ResolveConflict(req.Context(), actor(req), mux.Vars(req)["id"], body)
	if err != nil {
		respondServiceError(w, r.log, err)
		return
	}
	respondJSON(w, http.StatusOK, conflict)
}
