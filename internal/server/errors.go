package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"alexa-gateway/internal/gateway"
	"alexa-gateway/internal/skill"
)

// Error is the body of a failed request that has no Alexa document to
// return.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeUnsupported = "unsupported"
	ErrCodeGateway     = "gateway_error"
	ErrCodeInternal    = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

// statusFor maps a handler or gateway error onto an HTTP status and code.
func statusFor(err error) (int, string) {
	var statusErr *gateway.StatusError
	switch {
	case errors.Is(err, skill.ErrUnknownEntity):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, skill.ErrUnsupported):
		return http.StatusUnprocessableEntity, ErrCodeUnsupported
	case errors.Is(err, skill.ErrInvalidDirective):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.As(err, &statusErr),
		errors.Is(err, gateway.ErrNoToken),
		errors.Is(err, gateway.ErrTokenRefresh):
		return http.StatusBadGateway, ErrCodeGateway
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
