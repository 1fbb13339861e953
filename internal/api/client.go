// Package api implements the authenticated HTTP client for the expense API:
// bearer token attachment, single-flight token refresh with request queuing
// on auth failure, and the typed endpoint functions built on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spendwise/spendwise/internal/token"
)

// ErrRefreshFailed wraps any failure of the token refresh call. Every request
// queued behind the failed refresh is rejected with the same error.
var ErrRefreshFailed = errors.New("token refresh failed")

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// refreshOutcome is delivered to every request waiting on an in-flight
// refresh: either the new token or the refresh's own error.
type refreshOutcome struct {
	token string
	err   error
}

// Client talks to the expense API. All requests carry a bearer token when one
// is present; a 401/403 response triggers the one-shot refresh protocol and a
// single replay of the original request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     token.Store

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome
}

// NewClient creates a client for the API rooted at baseURL (including the
// /api prefix). The token store provides and receives bearer tokens.
func NewClient(baseURL string, tokens token.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
}

// do performs one API request. On a 401/403 response it runs the refresh
// protocol exactly once and replays the request with the new token; any other
// error status is returned unchanged as *Error. A JSON response body is
// decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, out any) error {
	tok := c.tokens.Get()

	status, data, err := c.send(ctx, method, path, query, body, contentType, tok)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		// Single retry: this path runs at most once per request, so a
		// rejected replay surfaces instead of looping.
		newTok, refreshErr := c.refresh(ctx, tok)
		if refreshErr != nil {
			return refreshErr
		}
		status, data, err = c.send(ctx, method, path, query, body, contentType, newTok)
		if err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &Error{StatusCode: status, Body: strings.TrimSpace(string(data))}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// send issues a single HTTP request and reads the full response body. Network
// failures are returned as errors; HTTP error statuses are left to the
// caller.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, contentType, tok string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// refresh exchanges the stale token for a new one, guaranteeing at most one
// refresh call is outstanding. Requests that hit an auth failure while a
// refresh is in flight wait on an explicit queue of continuations; the queue
// is drained exactly once, in insertion order, when the refresh settles, with
// either the new token or the refresh's error.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case outcome := <-ch:
			return outcome.token, outcome.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	newTok, err := c.requestRefresh(ctx, stale)
	if err == nil {
		if storeErr := c.tokens.Set(newTok); storeErr != nil {
			slog.Warn("failed to persist refreshed token", "error", storeErr)
		}
	}

	// The in-flight flag clears and the queue drains on every settle path,
	// success or failure, so no queued request can hang.
	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshOutcome{token: newTok, err: err}
	}
	return newTok, err
}

// requestRefresh performs the actual refresh call: the current token, when
// known, travels both as the refresh credential in the body and as the bearer
// header.
func (c *Client) requestRefresh(ctx context.Context, stale string) (string, error) {
	payload := map[string]string{}
	if stale != "" {
		payload["refresh_token"] = stale
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stale != "" {
		req.Header.Set("Authorization", "Bearer "+stale)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrRefreshFailed, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in response", ErrRefreshFailed)
	}

	slog.Debug("access token refreshed")
	return out.AccessToken, nil
}

// get issues a GET request.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

// postJSON issues a POST with a JSON body. A nil in sends an empty body.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, body, contentType, out)
}

// patchJSON issues a PATCH with a JSON body.
func (c *Client) patchJSON(ctx context.Context, path string, in, out any) error {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, path, nil, body, contentType, out)
}

// del issues a DELETE request.
func (c *Client) del(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, "", nil)
}

func encodeJSON(in any) ([]byte, string, error) {
	if in == nil {
		return nil, "", nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return body, "application/json", nil
}
