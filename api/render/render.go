// Package render writes JSON responses and maps ledger errors to HTTP
// statuses.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/logger"
)

// Error codes returned in the body of failed requests.
const (
	CodeInvalidInput       = "invalid_input"
	CodeCapacityExceeded   = "capacity_exceeded"
	CodeNotFound           = "not_found"
	CodeStorageUnavailable = "storage_unavailable"
	CodeUnauthorized       = "unauthorized"
	CodeInternal           = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Status maps err to an HTTP status and error code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, ledger.ErrCapacityExceeded):
		return http.StatusConflict, CodeCapacityExceeded
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// Error writes err. Internal errors are logged and their text is not exposed.
func Error(w http.ResponseWriter, log logger.Logger, err error) {
	status, code := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.OrNop(log).Errorf("request failed: %v", err)
		msg = http.StatusText(status)
	}
	JSON(w, status, ErrorBody{Code: code, Message: msg})
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return nil
}
