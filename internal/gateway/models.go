package gateway

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoToken is returned when no access token has been granted yet.
	ErrNoToken = errors.New("gateway: no token, waiting for AcceptGrant")

	// ErrTokenRefresh is returned when the token endpoint rejects a refresh.
	ErrTokenRefresh = errors.New("gateway: token refresh failed")
)

// ErrorResponse is the error body the event gateway returns
type ErrorResponse struct {
	Header struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
		MessageID string `json:"messageId"`
	} `json:"header"`
	Payload struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"payload"`
}

// StatusError reports a non-2xx answer from the event gateway.
type StatusError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("event gateway error %d (code: %s): %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("event gateway request failed with status %d: %s", e.StatusCode, e.Body)
}

// cachedToken is the JSON document stored in the token cache file.
type cachedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiration   time.Time `json:"expiration"`
}
