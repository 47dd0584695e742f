// Package client is a Go client for the SIPODI API. It keeps the access token in memory,
// relies on the HttpOnly refresh cookie for session restoration and retries a request once
// after a successful refresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	refreshPath = "/auth/refresh"
	maxBodySize = 4 << 20
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for API calls. A cookie jar is attached when the
// given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTransferClient replaces the client used for direct uploads to object storage.
func WithTransferClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.transfer = hc
		}
	}
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the API under baseURL, for example http://localhost:8080/api/v1.
type Client struct {
	baseURL  string
	http     *http.Client
	transfer *http.Client
	logger   *zap.Logger

	mu    sync.RWMutex
	token string

	refreshMu sync.Mutex
}

// New builds a Client.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("client: base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}

	c := &Client{
		baseURL:  trimmed,
		http:     &http.Client{Timeout: 30 * time.Second},
		transfer: &http.Client{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	return c, nil
}

// Token returns the in-memory access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Authenticated reports whether an access token is held.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination"`
}

func (e *envelope) decode(out interface{}) error {
	if out == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// call performs an authenticated request. A 401 while a token is held triggers exactly one
// refresh and one retry.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in interface{}) (*envelope, error) {
	payload, err := encode(in)
	if err != nil {
		return nil, err
	}

	token := c.Token()
	status, body, err := c.roundTrip(ctx, method, path, query, payload, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && token != "" {
		if err := c.refresh(ctx, token); err != nil {
			return nil, err
		}
		status, body, err = c.roundTrip(ctx, method, path, query, payload, c.Token())
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.SetToken("")
		}
	}
	return parse(status, body)
}

// callAnonymous performs a request without the refresh-and-retry behaviour.
func (c *Client) callAnonymous(ctx context.Context, method, path string, in interface{}) (*envelope, error) {
	payload, err := encode(in)
	if err != nil {
		return nil, err
	}
	status, body, err := c.roundTrip(ctx, method, path, nil, payload, "")
	if err != nil {
		return nil, err
	}
	return parse(status, body)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, &NetworkError{Op: "read " + path, Err: err}
	}
	return resp.StatusCode, body, nil
}

// refresh rotates the refresh cookie. When another call already replaced the stale token the
// new one is reused instead of refreshing twice.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.Token(); current != "" && current != stale {
		return nil
	}

	env, err := c.callAnonymous(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		c.SetToken("")
		c.logger.Debug("token refresh failed", zap.Error(err))
		return &AuthError{
			APIError: APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "session expired"},
			Err:      err,
		}
	}

	var tokens tokenResponse
	if err := env.decode(&tokens); err != nil || tokens.AccessToken == "" {
		c.SetToken("")
		return &AuthError{
			APIError: APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "refresh returned no access token"},
			Err:      err,
		}
	}
	c.SetToken(tokens.AccessToken)
	return nil
}

func encode(in interface{}) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	return payload, nil
}

func parse(status int, body []byte) (*envelope, error) {
	if status < 200 || status > 299 {
		return nil, decodeError(status, body)
	}
	env := &envelope{}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("client: decode envelope: %w", err)
	}
	return env, nil
}
