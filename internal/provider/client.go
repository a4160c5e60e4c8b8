package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response body ends up in an error.
const maxErrorBody = 512

// Client is the shared HTTP transport for every provider family. It carries the
// gateway base URL and the credential source so adapters never read ambient state.
type Client struct {
	baseURL     string
	credentials CredentialSource
	httpClient  *http.Client
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(pc *Client) {
		pc.httpClient = c
	}
}

// WithCredentials sets the source of the bearer token.
func WithCredentials(src CredentialSource) ClientOption {
	return func(pc *Client) {
		pc.credentials = src
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(pc *Client) {
		pc.httpClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a provider client for the gateway at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: StaticCredential(""),
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the gateway base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasCredential reports whether a token is currently available.
func (c *Client) HasCredential() bool {
	return strings.TrimSpace(c.credentials.Current()) != ""
}

func (c *Client) token() (string, error) {
	tok := strings.TrimSpace(c.credentials.Current())
	if tok == "" {
		return "", ErrNoCredential
	}
	return tok, nil
}

// postJSON marshals payload, sends it to path and returns the raw response body.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body))
}

// get sends a GET to path and returns the raw response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

// do performs a single authenticated request. There is no retry: every call is
// one attempt and the caller decides what a failure means.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	tok, err := c.token()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := truncate(string(respBody), maxErrorBody)
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, snippet)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, snippet)
		}
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, snippet)
	}

	return respBody, nil
}

// fetch downloads hosted media without credentials, returning the bytes and
// the reported content type.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: fetch %s returned status %d", ErrRequestFailed, url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read fetched media: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// decodeAny parses a JSON body into the minimal structural value type.
func decodeAny(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return v, nil
}

// dig walks a decoded JSON value along path. Numeric segments index arrays.
func dig(v any, path ...string) any {
	cur := v
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// firstString returns the first non-empty string found at any of paths.
// Each path is a dot-separated list of segments.
func firstString(v any, paths ...string) string {
	for _, p := range paths {
		switch val := dig(v, strings.Split(p, ".")...).(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
