package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"resto-be/pkg/errors"
	"resto-be/pkg/logger"
)

// writeJSON encodes v as the JSON response body
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps any error onto the JSON error envelope. Raw internal
// causes never reach the client, only the human-readable message.
func writeError(w http.ResponseWriter, err error, log *logger.Logger) {
	appErr := errors.AsAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(appErr).Error("Request failed")
	} else {
		log.WithError(appErr).Debug("Request rejected")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	writeJSON(w, appErr.StatusCode, response, log)
}

// decodeBody parses a JSON request body into dst
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewValidationError("Invalid request body", nil)
	}
	return nil
}
