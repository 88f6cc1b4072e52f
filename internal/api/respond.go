package api

import (
	"encoding/json"
	"net/http"

	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// apologyMessage is the canned reply for unexpected failures. Raw errors and
// stack traces never reach the client.
const apologyMessage = "I'm sorry, something went wrong while processing your request. Please try again in a moment."

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Get().Warnf("encode response: %v", err)
	}
}

// writeError maps a domain error chain to a transport status and a safe body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest), errors.Is(err, errors.ErrInvalidInput), errors.Is(err, errors.ErrInvalidSymbol):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: errors.UserMessage(err),
		})
	case errors.Is(err, errors.ErrUnknownTask), errors.Is(err, errors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: "the requested resource does not exist",
		})
	case errors.Is(err, errors.ErrUpstreamUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "upstream_unavailable",
			Message: errors.UserMessage(err),
		})
	case errors.Is(err, errors.ErrProviderUnavailable), errors.Is(err, errors.ErrRateLimitExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "provider_unavailable",
			Message: errors.UserMessage(err),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal_error",
			Message: apologyMessage,
		})
	}
}
