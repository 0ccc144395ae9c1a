// Package httpjson is the HTTP plumbing shared by the external service
// adapters: base URL, header-based auth, extra headers, JSON encoding, and
// typed errors for non-2xx responses.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultTimeout bounds requests made with the client's fallback *http.Client.
const DefaultTimeout = 2 * time.Minute

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// RateLimitError is returned when the API responds with HTTP 429. RetryAfter
// is parsed from the Retry-After header; callers decide whether to retry.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds or an
// HTTP-date. Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Auth holds header-based API authentication.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// apply sets the auth header on h. Nothing is set when Key is empty.
func (a Auth) apply(h http.Header) {
	if a.Key == "" {
		return
	}

	header := a.Header
	if header == "" {
		header = "Authorization"
	}

	value := a.Key
	if header == "Authorization" {
		scheme := a.Scheme
		if scheme == "" {
			scheme = "Bearer"
		}
		value = scheme + " " + value
	} else if a.Scheme != "" {
		value = a.Scheme + " " + value
	}

	h.Set(header, value)
}

// Client is embeddable HTTP state for a JSON API. The zero value is usable
// once BaseURL is set.
type Client struct {
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Authentication settings.
	HTTP    *http.Client      // HTTP client; falls back to a client with DefaultTimeout.
	Headers map[string]string // Extra headers applied to every request.

	clientOnce    sync.Once
	defaultClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	c.clientOnce.Do(func() {
		c.defaultClient = &http.Client{Timeout: DefaultTimeout}
	})

	return c.defaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	c.Auth.apply(req.Header)
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// DoJSON sends payload (if non-nil) as a JSON body, checks for a 2xx status,
// and decodes the response into dest (if non-nil). Non-2xx responses yield
// *RateLimitError for 429 and *StatusError otherwise.
func (c *Client) DoJSON(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// GetJSON is DoJSON with GET and no body.
func (c *Client) GetJSON(ctx context.Context, path string, dest any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, dest)
}

// PostJSON is DoJSON with POST.
func (c *Client) PostJSON(ctx context.Context, path string, payload, dest any) error {
	return c.DoJSON(ctx, http.MethodPost, path, payload, dest)
}
