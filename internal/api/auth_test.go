package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryClient(t *testing.T) *retry.Client {
	t.Helper()
	client, err := retry.NewClient()
	require.NoError(t, err)
	return client
}

func TestAuthClient_Login(t *testing.T) {
	t.Run("successful login returns token and identity", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@b.com", body["email"])
			assert.Equal(t, "pw", body["password"])

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"token":      "T1-abcdefghij",
				"token_type": "Bearer",
				"expires_in": 3600,
				"user": map[string]any{
					"id":         "user-1",
					"email":      "a@b.com",
					"first_name": "Aiko",
					"last_name":  "Tanaka",
					"role":       "admin",
					"is_active":  true,
					"created_at": time.Now().Format(time.RFC3339),
				},
			})
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		token, identity, err := c.Login(context.Background(), "a@b.com", "pw")

		require.NoError(t, err)
		assert.Equal(t, "T1-abcdefghij", token.AccessToken)
		assert.True(t, token.Expiry.After(time.Now()))
		assert.Equal(t, RoleAdmin, identity.Role)
		assert.Equal(t, "Aiko Tanaka", identity.FullName())
	})

	t.Run("rejected credentials map to ErrInvalidCredentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(errorResponse{Error: "invalid_credentials"})
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		_, _, err := c.Login(context.Background(), "a@b.com", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("malformed token response is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"token":      "short",
				"token_type": "Bearer",
				"expires_in": 3600,
			})
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		_, _, err := c.Login(context.Background(), "a@b.com", "pw")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "token is too short")
	})
}

func TestAuthClient_Refresh(t *testing.T) {
	t.Run("success returns the new token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/auth/refresh", r.URL.Path)
			assert.Equal(t, "Bearer T1-abcdefghij", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"token":      "T2-abcdefghij",
				"token_type": "Bearer",
				"expires_in": 3600,
			})
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		token, err := c.Refresh(context.Background(), "T1-abcdefghij")

		require.NoError(t, err)
		assert.Equal(t, "T2-abcdefghij", token.AccessToken)
	})

	t.Run("invalid_token error maps to ErrSessionExpired", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errorResponse{Error: "invalid_token"})
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		_, err := c.Refresh(context.Background(), "stale")

		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("plain 401 maps to ErrSessionExpired", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		_, err := c.Refresh(context.Background(), "stale")

		assert.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestAuthClient_Me(t *testing.T) {
	t.Run("returns the identity", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
			assert.Equal(t, "Bearer T1-abcdefghij", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(Identity{
				ID:        "user-1",
				Email:     "a@b.com",
				FirstName: "Aiko",
				LastName:  "Tanaka",
				Role:      RoleInstructor,
			})
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		identity, err := c.Me(context.Background(), "T1-abcdefghij")

		require.NoError(t, err)
		assert.Equal(t, RoleInstructor, identity.Role)
	})

	t.Run("401 maps to ErrSessionExpired", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewAuthClient(server.URL, newRetryClient(t))
		_, err := c.Me(context.Background(), "stale")

		assert.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestValidateTokenResponse(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		tokenType   string
		expiresIn   int
		wantErr     bool
		errContains string
	}{
		{
			name:      "valid token response",
			token:     "valid-token-123456",
			tokenType: "Bearer",
			expiresIn: 3600,
		},
		{
			name:      "valid token with empty type (optional field)",
			token:     "valid-token-123456",
			tokenType: "",
			expiresIn: 3600,
		},
		{
			name:        "empty token",
			token:       "",
			tokenType:   "Bearer",
			expiresIn:   3600,
			wantErr:     true,
			errContains: "token is empty",
		},
		{
			name:        "token too short",
			token:       "short",
			tokenType:   "Bearer",
			expiresIn:   3600,
			wantErr:     true,
			errContains: "token is too short",
		},
		{
			name:        "zero expires_in",
			token:       "valid-token-123456",
			tokenType:   "Bearer",
			expiresIn:   0,
			wantErr:     true,
			errContains: "expires_in must be positive",
		},
		{
			name:        "negative expires_in",
			token:       "valid-token-123456",
			tokenType:   "Bearer",
			expiresIn:   -3600,
			wantErr:     true,
			errContains: "expires_in must be positive",
		},
		{
			name:        "invalid token type",
			token:       "valid-token-123456",
			tokenType:   "Basic",
			expiresIn:   3600,
			wantErr:     true,
			errContains: "unexpected token_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTokenResponse(tt.token, tt.tokenType, tt.expiresIn)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
