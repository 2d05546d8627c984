package api

import (
	"encoding/json"
	"net/http"

	"cardgen/internal/logger"
)

// ErrorResponse is the error envelope returned by every failing endpoint.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code plus a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse is the plain acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to encode response")
	}
}

// OK writes the {"status":"ok"} acknowledgement.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

// PayloadTooLarge writes a 413 error.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", message)
}

// TooManyRequests writes a 429 error.
func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down")
}

// InternalError logs the cause and writes an opaque 500 error.
func InternalError(w http.ResponseWriter, err error) {
	logger.Log.Error().Err(err).Msg("Internal error")
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
