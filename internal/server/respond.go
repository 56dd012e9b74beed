package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"songshelf/internal/validation"

	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// respondJSON writes v as a JSON body with the given status
func (ms *MusicServer) respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ms.logger.WithError(err).Error("Failed to encode response")
	}
}

// respondWithValidationError sends a structured validation error response
func (ms *MusicServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []validation.FieldError) {
	ms.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	ms.respondJSON(w, http.StatusBadRequest, validation.Result{
		Valid:  false,
		Errors: errors,
	})
}

// respondWithError sends a structured error response
func (ms *MusicServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ms.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	ms.respondJSON(w, statusCode, map[string]any{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
