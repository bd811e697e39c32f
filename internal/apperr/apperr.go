// Package apperr maps the processing error taxonomy onto HTTP status codes
// and the JSON error envelope served to clients, adapted from the teacher's
// pkg/errors error-type pattern.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"imgproxy/internal/processor"
)

// Response is the JSON body for a failed request: {"detail": "...",
// "error_type": "<kind>"}, per spec.md §6. error_type is omitted when the
// failure isn't a processor.Error (e.g. a bad API key).
type Response struct {
	Detail    string `json:"detail"`
	ErrorType string `json:"error_type,omitempty"`
}

// StatusFor returns the HTTP status code for err, per spec.md §4.7/§7:
// NotFound maps to 404, every other processor.Error kind to 400.
func StatusFor(err error) int {
	var pe *processor.Error
	if errors.As(err, &pe) && pe.Kind == processor.KindNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// WriteJSON writes err as the standard error envelope with the status
// StatusFor(err) computes.
func WriteJSON(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := Response{Detail: err.Error()}

	var pe *processor.Error
	if errors.As(err, &pe) {
		resp.Detail = pe.Detail
		resp.ErrorType = errorType(pe.Kind)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// errorType renders a processor.ErrorKind as the snake_case token spec.md §8
// asserts in its error_type field (e.g. "not_found", "processed_images_limit").
func errorType(kind processor.ErrorKind) string {
	switch kind {
	case processor.KindUnsupportingExtension:
		return "unsupporting_extension"
	case processor.KindNotFound:
		return "not_found"
	case processor.KindFileApiError:
		return "file_api_error"
	case processor.KindProcessedImagesLimit:
		return "processed_images_limit"
	case processor.KindInvalidSize:
		return "invalid_size"
	default:
		return string(kind)
	}
}

// WriteUnauthorized writes the 401 envelope used for a missing/mismatched
// X-API-Key.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(Response{Detail: detail})
}
