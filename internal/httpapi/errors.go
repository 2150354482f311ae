package httpapi

import (
	"net/http"

	"segmentd/pkg/types"
)

// validationMessage is the envelope message for parameter validation failures.
const validationMessage = "Input payload validation failed"

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Message: msg})
}

// writeValidationError reports per-parameter failures with 400.
func writeValidationError(w http.ResponseWriter, errs map[string]string) {
	writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Message: validationMessage, Errors: errs})
}

// statusFor maps err to an HTTP status when it carries one.
func statusFor(err error, fallback int) int {
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return fallback
}
