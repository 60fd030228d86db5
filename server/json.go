package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/synco-portal/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeError maps a classified error onto an HTTP status
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, errors.ErrAuthentication), errors.Is(err, errors.ErrSessionNotFound):
		writeJSONError(w, "authentication_required", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, errors.ErrForbidden):
		writeJSONError(w, "forbidden", err.Error(), http.StatusForbidden)
	case errors.Is(err, errors.ErrFileUnavailable), errors.Is(err, errors.ErrNotFound):
		writeJSONError(w, "not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, errors.ErrConnectivity), errors.Is(err, errors.ErrServer):
		writeJSONError(w, "upstream_error", err.Error(), http.StatusBadGateway)
	default:
		writeJSONError(w, "internal_error", err.Error(), http.StatusInternalServerError)
	}
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
