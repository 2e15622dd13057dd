package api

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials indicates that the login endpoint rejected the
// supplied email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrSessionExpired indicates that the current credential can no longer
// be refreshed and the user must log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// errorResponse is the wire shape of an API error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError is a non-auth error returned by the DojoDesk API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// validateTokenResponse validates an issued credential before it is
// accepted and persisted.
func validateTokenResponse(token, tokenType string, expiresIn int) error {
	if token == "" {
		return errors.New("token is empty")
	}

	if len(token) < 10 {
		return fmt.Errorf("token is too short (length: %d)", len(token))
	}

	if expiresIn <= 0 {
		return fmt.Errorf("expires_in must be positive, got: %d", expiresIn)
	}

	// Token type is optional, but if present, should be "Bearer"
	if tokenType != "" && tokenType != "Bearer" {
		return fmt.Errorf("unexpected token_type: %s (expected Bearer)", tokenType)
	}

	return nil
}
