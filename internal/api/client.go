package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Timeout configuration for domain operations
const (
	requestTimeout  = 15 * time.Second
	downloadTimeout = 60 * time.Second
)

// Client handles communication with the DojoDesk domain resources.
// The caller hands in an http.Client whose transport carries the
// authorization interceptor (with transient-failure retry beneath it),
// so a terminal auth error from the interceptor reaches Client calls
// directly instead of being re-driven by a retry layer.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a domain client for the given server.
func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: baseURL, client: client}
}

// StudentFilter narrows ListStudents results. Zero value means no filter.
type StudentFilter struct {
	Rank   string
	Active *bool
}

// ListStudents returns student records matching the filter.
func (c *Client) ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	q := url.Values{}
	if filter.Rank != "" {
		q.Set("rank", filter.Rank)
	}
	if filter.Active != nil {
		q.Set("active", strconv.FormatBool(*filter.Active))
	}

	path := "/api/v1/students"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Students []Student `json:"students"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// GetStudent returns a single student record.
func (c *Client) GetStudent(ctx context.Context, id string) (*Student, error) {
	var s Student
	if err := c.do(ctx, http.MethodGet, "/api/v1/students/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStudent creates a student record and returns it.
func (c *Client) CreateStudent(ctx context.Context, in StudentInput) (*Student, error) {
	var s Student
	if err := c.do(ctx, http.MethodPost, "/api/v1/students", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStudent replaces the writable fields of a student record.
func (c *Client) UpdateStudent(ctx context.Context, id string, in StudentInput) (*Student, error) {
	var s Student
	if err := c.do(ctx, http.MethodPut, "/api/v1/students/"+url.PathEscape(id), in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStudent removes a student record.
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/students/"+url.PathEscape(id), nil, nil)
}

// ListPromotions returns a student's belt progression history.
func (c *Client) ListPromotions(ctx context.Context, studentID string) ([]Promotion, error) {
	var out struct {
		Promotions []Promotion `json:"promotions"`
	}
	path := "/api/v1/students/" + url.PathEscape(studentID) + "/promotions"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Promotions, nil
}

// RecordPromotion records a belt promotion for a student. Rank-ladder
// rules are enforced server-side.
func (c *Client) RecordPromotion(ctx context.Context, studentID, toRank, examinedBy string) (*Promotion, error) {
	in := map[string]string{
		"to_rank":     toRank,
		"examined_by": examinedBy,
	}
	var p Promotion
	path := "/api/v1/students/" + url.PathEscape(studentID) + "/promotions"
	if err := c.do(ctx, http.MethodPost, path, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListTechniques returns the technique catalog, optionally filtered by
// the rank it is examined at.
func (c *Client) ListTechniques(ctx context.Context, rank string) ([]Technique, error) {
	path := "/api/v1/techniques"
	if rank != "" {
		path += "?rank=" + url.QueryEscape(rank)
	}

	var out struct {
		Techniques []Technique `json:"techniques"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Techniques, nil
}

// CreateTechnique adds a catalog entry.
func (c *Client) CreateTechnique(ctx context.Context, in Technique) (*Technique, error) {
	var t Technique
	if err := c.do(ctx, http.MethodPost, "/api/v1/techniques", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DownloadCertificate streams the rendered certificate PDF for a
// promotion into w and returns the number of bytes written.
func (c *Client) DownloadCertificate(ctx context.Context, promotionID string, w io.Writer) (int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	path := "/api/v1/promotions/" + url.PathEscape(promotionID) + "/certificate"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create certificate request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("certificate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			return 0, ErrSessionExpired
		}
		return 0, decodeError(resp.StatusCode, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write certificate: %w", err)
	}
	return n, nil
}

// do executes one JSON round trip. A nil in means no request body; a nil
// out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The interceptor already attempted its one refresh-and-retry;
		// a 401 surfacing here is terminal for this session.
		return ErrSessionExpired
	case resp.StatusCode >= 400:
		return decodeError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
