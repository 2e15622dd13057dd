// Package session owns the process-wide authentication state: the
// current user identity, the authenticated flag, and the four lifecycle
// operations (login, logout, refresh, profile sync). It is the single
// source of truth the rest of the application consumes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dojodesk/dojoctl/internal/api"
	"github.com/dojodesk/dojoctl/internal/credstore"
)

// State is the lifecycle phase of the session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Store is the credential persistence contract the Manager depends on.
type Store interface {
	Read() (string, error)
	Save(token string) error
	Clear() error
}

// AuthAPI is the slice of the backend the Manager talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*oauth2.Token, *api.Identity, error)
	Refresh(ctx context.Context, current string) (*oauth2.Token, error)
	Me(ctx context.Context, token string) (*api.Identity, error)
	Logout(ctx context.Context, token string) error
}

// Manager holds the session for one running application instance.
// Construct with NewManager; there is exactly one per process, but tests
// can instantiate isolated copies.
type Manager struct {
	store Store
	auth  AuthAPI
	log   *slog.Logger

	notifyTimeout time.Duration

	mu       sync.Mutex
	state    State
	identity *api.Identity
	// epoch increments on every logout. A refresh that resolves against
	// a stale epoch is discarded instead of re-authenticating the user.
	epoch uint64

	group singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for background failures.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithNotifyTimeout bounds the fire-and-forget server logout call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) { m.notifyTimeout = d }
}

// NewManager creates a Manager over the given store and auth endpoints.
func NewManager(store Store, auth AuthAPI, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		auth:          auth,
		log:           slog.Default(),
		notifyTimeout: 5 * time.Second,
		state:         StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether an identity is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity != nil
}

// Identity returns the current user identity, or nil when
// unauthenticated. The returned value is a copy.
func (m *Manager) Identity() *api.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

// Initialize runs once at startup. A stored credential is validated
// against the identity endpoint; any failure clears it and leaves the
// session unauthenticated. Startup validation failure is an expected
// path, so it is never surfaced to the caller.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	m.state = StateLoading
	m.mu.Unlock()

	token, err := m.store.Read()
	if err != nil {
		if !errors.Is(err, credstore.ErrNoCredential) {
			m.log.Warn("failed to read stored credential", "error", err)
		}
		m.setUnauthenticated()
		return
	}

	identity, err := m.auth.Me(ctx, token)
	if err != nil {
		// Stored credential is stale or invalid; silently downgrade.
		m.log.Debug("stored credential rejected, clearing", "error", err)
		if clearErr := m.store.Clear(); clearErr != nil {
			m.log.Warn("failed to clear rejected credential", "error", clearErr)
		}
		m.setUnauthenticated()
		return
	}

	m.mu.Lock()
	m.identity = identity
	m.state = StateAuthenticated
	m.mu.Unlock()
}

// Login authenticates with the given email/password pair. On success the
// returned credential is persisted and the identity populated; on any
// failure no state changes and the error is returned for the caller to
// display.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	token, identity, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Persist before touching identity: either both token and identity
	// are set, or neither is.
	if err := m.store.Save(token.AccessToken); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	m.identity = identity
	m.state = StateAuthenticated
	return nil
}

// Logout clears the credential and identity immediately. The server-side
// revocation is a detached best-effort call whose failure is logged and
// never blocks or rolls back the local transition.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token, readErr := m.store.Read()
	if err := m.store.Clear(); err != nil {
		m.log.Warn("failed to clear credential store", "error", err)
	}
	m.identity = nil
	m.state = StateUnauthenticated
	m.epoch++
	m.mu.Unlock()

	if readErr != nil || token == "" {
		return
	}

	// Detached task: result ignored, errors logged, never awaited.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.notifyTimeout)
	go func() {
		defer cancel()
		if err := m.auth.Logout(notifyCtx, token); err != nil {
			m.log.Debug("server logout notification failed", "error", err)
		}
	}()
}

// Refresh exchanges the current credential for a new one. Concurrent
// callers share a single upstream refresh. On failure the session is
// logged out before the error is returned, so callers observe both the
// error and the cleared state.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.group.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.Lock()
	start := m.epoch
	m.mu.Unlock()

	current, err := m.store.Read()
	if err != nil {
		m.Logout(ctx)
		return api.ErrSessionExpired
	}

	token, err := m.auth.Refresh(ctx, current)
	if err != nil {
		m.log.Debug("credential refresh failed", "error", err)
		m.Logout(ctx)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != start {
		// A logout happened while the refresh was in flight; discard the
		// new credential rather than silently re-authenticating.
		m.log.Debug("discarding refresh result issued before logout")
		return api.ErrSessionExpired
	}

	if err := m.store.Save(token.AccessToken); err != nil {
		return fmt.Errorf("failed to persist refreshed credential: %w", err)
	}
	return nil
}

// UpdateProfile re-fetches the identity and replaces it wholesale. On
// failure the error is returned and the current identity is untouched.
func (m *Manager) UpdateProfile(ctx context.Context) error {
	token, err := m.store.Read()
	if err != nil {
		return api.ErrSessionExpired
	}

	identity, err := m.auth.Me(ctx, token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()
	return nil
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	m.identity = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()
}
