package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/bridgesim/internal/legacy"
	"github.com/nerrad567/bridgesim/internal/ownership"
	"github.com/nerrad567/bridgesim/internal/resource"
	"github.com/nerrad567/bridgesim/internal/stream"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeRaw writes an already encoded JSON document.
func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(data)
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a store, arbiter or decoder error onto a status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resource.ErrNotFound),
		errors.Is(err, resource.ErrChannelNotFound),
		errors.Is(err, resource.ErrUnknownKind),
		errors.Is(err, legacy.ErrNotFound),
		errors.Is(err, legacy.ErrLightNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, resource.ErrInvalidPosition),
		errors.Is(err, legacy.ErrInvalidPosition),
		errors.Is(err, stream.ErrUnsupportedColorMode):
		writeBadRequest(w, err.Error())
	case errors.Is(err, resource.ErrNoFreeChannel),
		errors.Is(err, legacy.ErrNoFreeLight),
		errors.Is(err, ownership.ErrOwnershipConflict):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, resource.ErrUnavailable),
		errors.Is(err, legacy.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
