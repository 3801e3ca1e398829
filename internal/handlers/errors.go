package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/scan"
)

// BaseError is the base type for API errors
type BaseError struct {
	Error string `json:"error"`
}

// ValidationError is returned in the body of an HTTP 400
type ValidationError struct {
	BaseError
	Field string `json:"field,omitempty"`
}

// NotFoundError is returned in the body of an HTTP 404
type NotFoundError struct {
	BaseError
	Resource string `json:"resource,omitempty"`
}

// NotAllowedError is returned in the body of an HTTP 403
type NotAllowedError struct {
	BaseError
	Reason string `json:"reason,omitempty"`
}

// InvalidStateError is returned in the body of an HTTP 409
type InvalidStateError struct {
	BaseError
	Reason string `json:"reason,omitempty"`
}

func NewBadPayloadError() ValidationError {
	return ValidationError{BaseError: BaseError{Error: "request json is invalid"}}
}

func NewInvalidParameterError(param string) ValidationError {
	return ValidationError{Field: param, BaseError: BaseError{Error: "query parameter invalid"}}
}

// respondServiceError maps a scan error to its HTTP status and body
func respondServiceError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	var e *scan.Error
	if !errors.As(err, &e) {
		e = &scan.Error{Kind: scan.KindInternal, Err: err}
	}

	switch e.Kind {
	case scan.KindValidation:
		respondJSON(w, http.StatusBadRequest, ValidationError{Field: e.Field, BaseError: BaseError{Error: e.Msg}})
	case scan.KindNotFound:
		respondJSON(w, http.StatusNotFound, NotFoundError{Resource: e.Resource, BaseError: BaseError{Error: "not found"}})
	case scan.KindForbidden:
		respondJSON(w, http.StatusForbidden, NotAllowedError{Reason: e.Msg, BaseError: BaseError{Error: "operation not allowed"}})
	case scan.KindInvalidState:
		respondJSON(w, http.StatusConflict, InvalidStateError{Reason: e.Msg, BaseError: BaseError{Error: "invalid session state"}})
	default:
		log.Errorw("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, BaseError{Error: "internal server error"})
	}
}
