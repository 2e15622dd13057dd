// Package transport implements the authorization interceptor chain: a
// RoundTripper that attaches the stored bearer credential to every
// outbound request and, on an authorization failure, drives exactly one
// silent refresh-and-retry before giving up.
package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader carries a correlation ID so server logs can tie the
// original attempt and its retry back to one logical request.
const requestIDHeader = "X-Request-ID"

// TokenReader is the read-side of the credential store.
type TokenReader interface {
	Read() (string, error)
}

// RefreshFunc renews the stored credential. It must persist the new
// credential on success and clear the session on failure.
type RefreshFunc func(ctx context.Context) error

// Transport is an http.RoundTripper that authorizes outbound requests.
type Transport struct {
	base    http.RoundTripper
	creds   TokenReader
	refresh RefreshFunc
	log     *slog.Logger

	// onAuthFailure fires once per logical request whose refresh-and-
	// retry did not recover it, so the application can send the user
	// back to the login surface.
	onAuthFailure func()
}

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the underlying RoundTripper (default http.DefaultTransport).
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithLogger sets the logger for refresh/retry events.
func WithLogger(log *slog.Logger) Option {
	return func(t *Transport) { t.log = log }
}

// WithAuthFailureHook sets the hook invoked when a request is
// terminally unauthorized.
func WithAuthFailureHook(hook func()) Option {
	return func(t *Transport) { t.onAuthFailure = hook }
}

// New creates a Transport reading credentials from creds and renewing
// them through refresh.
func New(creds TokenReader, refresh RefreshFunc, opts ...Option) *Transport {
	t := &Transport{
		base:          http.DefaultTransport,
		creds:         creds,
		refresh:       refresh,
		log:           slog.Default(),
		onAuthFailure: func() {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip authorizes req and executes it. A 401 on the first attempt
// triggers one refresh; on refresh success the request is resubmitted
// once with the new credential and that outcome is returned as the
// logical response. The retry path never re-enters the 401 handler, so a
// logical request can never trigger a second refresh. Non-authorization
// failures (other statuses, transport errors) pass through untouched.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// One correlation ID per logical request, shared by both attempts.
	reqID := req.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	// The first attempt shares the caller's body; only a retry needs to
	// rewind it through GetBody.
	first := req.Clone(req.Context())
	t.authorize(first, reqID)

	resp, err := t.base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A request whose body was already consumed cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}
	var retryBody io.ReadCloser
	if req.GetBody != nil {
		retryBody, err = req.GetBody()
		if err != nil {
			// Body cannot be rewound, so the first 401 stands.
			t.log.Debug("cannot rewind request body for retry", "error", err)
			return resp, nil
		}
	}

	// First 401: attempt exactly one silent refresh.
	t.log.Debug("request unauthorized, refreshing credential",
		"method", req.Method,
		"url", req.URL.Path,
	)
	drain(resp)

	if refreshErr := t.refresh(req.Context()); refreshErr != nil {
		// Session state is already cleared by the refresh; send the user
		// to the login surface and hand the refresh error to the caller.
		if retryBody != nil {
			retryBody.Close()
		}
		t.onAuthFailure()
		return nil, refreshErr
	}

	retry := req.Clone(req.Context())
	retry.Body = retryBody
	t.authorize(retry, reqID)

	retryResp, err := t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if retryResp.StatusCode == http.StatusUnauthorized {
		// Retry rejected too: terminal. Surface the response as-is.
		t.log.Debug("retried request still unauthorized",
			"method", req.Method,
			"url", req.URL.Path,
		)
		t.onAuthFailure()
	}
	return retryResp, nil
}

// authorize attaches the current credential and the correlation ID to a
// cloned request. A missing credential sends the request
// unauthenticated; this phase never fails the request.
func (t *Transport) authorize(r *http.Request, reqID string) {
	if token, err := t.creds.Read(); err == nil && token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	r.Header.Set(requestIDHeader, reqID)
}

// drain discards and closes a response body so the underlying
// connection can be reused.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
