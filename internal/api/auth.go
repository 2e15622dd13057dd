// Package api contains the typed HTTP clients for the DojoDesk backend.
// AuthClient talks to the session-lifecycle endpoints directly (its
// calls must never pass through the authorization interceptor, which
// would recurse on refresh); Client covers the domain resources and is
// expected to sit on top of the shared intercepted transport.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"golang.org/x/oauth2"
)

// Timeout configuration for session-lifecycle operations
const (
	loginTimeout   = 10 * time.Second
	refreshTimeout = 10 * time.Second
	profileTimeout = 10 * time.Second
	logoutTimeout  = 5 * time.Second
)

// AuthClient handles communication with the authentication endpoints.
type AuthClient struct {
	baseURL string
	client  *retry.Client
}

// NewAuthClient creates an AuthClient for the given server. The retry
// client handles transient transport failures; auth-level failures (401,
// invalid_grant) are never retried here.
func NewAuthClient(baseURL string, client *retry.Client) *AuthClient {
	return &AuthClient{baseURL: baseURL, client: client}
}

// Login exchanges an email/password pair for a bearer credential and the
// user's profile. A rejected pair yields ErrInvalidCredentials.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*oauth2.Token, *Identity, error) {
	reqCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		reqCtx,
		http.MethodPost,
		c.baseURL+"/api/v1/auth/login",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.DoWithContext(reqCtx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, decodeError(resp.StatusCode, body)
	}

	var loginResp loginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	if err := validateTokenResponse(
		loginResp.Token,
		loginResp.TokenType,
		loginResp.ExpiresIn,
	); err != nil {
		return nil, nil, fmt.Errorf("invalid token response: %w", err)
	}

	token := &oauth2.Token{
		AccessToken: loginResp.Token,
		TokenType:   loginResp.TokenType,
		Expiry:      time.Now().Add(time.Duration(loginResp.ExpiresIn) * time.Second),
	}

	return token, &loginResp.User, nil
}

// Refresh exchanges the current credential for a new one. A credential
// the server no longer accepts yields ErrSessionExpired.
func (c *AuthClient) Refresh(ctx context.Context, current string) (*oauth2.Token, error) {
	reqCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx, http.MethodPost, c.baseURL+"/api/v1/auth/refresh", nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+current)

	resp, err := c.client.DoWithContext(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			// Check if the credential is expired or invalid
			if errResp.Error == "invalid_token" || errResp.Error == "invalid_grant" {
				return nil, ErrSessionExpired
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("refresh failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if err := validateTokenResponse(
		tokenResp.Token,
		tokenResp.TokenType,
		tokenResp.ExpiresIn,
	); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}

	return &oauth2.Token{
		AccessToken: tokenResp.Token,
		TokenType:   tokenResp.TokenType,
		Expiry:      time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// Me validates a credential against the identity endpoint and returns
// the associated profile.
func (c *AuthClient) Me(ctx context.Context, token string) (*Identity, error) {
	reqCtx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx, http.MethodGet, c.baseURL+"/api/v1/auth/me", nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.DoWithContext(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrSessionExpired
		}
		return nil, decodeError(resp.StatusCode, body)
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse identity response: %w", err)
	}

	return &identity, nil
}

// Logout notifies the server that the credential should be revoked.
// Callers treat this as best-effort; local state is cleared regardless.
func (c *AuthClient) Logout(ctx context.Context, token string) error {
	reqCtx, cancel := context.WithTimeout(ctx, logoutTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx, http.MethodPost, c.baseURL+"/api/v1/auth/logout", nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.DoWithContext(reqCtx, req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout failed with status %d", resp.StatusCode)
	}
	return nil
}

// decodeError turns a non-auth error body into an *APIError.
func decodeError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: statusCode, Message: string(body)}
	}
	return &APIError{StatusCode: statusCode, Code: errResp.Error, Message: errResp.Message}
}
