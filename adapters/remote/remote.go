// Package remote provides the HTTP adapter for the data backend.
// The backend owns the resources; this client only moves bytes and reports
// the status it answered with.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/adminkit/ports"
)

// HeaderRequestID is sent on every backend call.
const HeaderRequestID = "X-Request-ID"

// maxBodySize bounds how much of a backend response is read.
const maxBodySize = 10 << 20

// Client provides HTTP communication with the backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	headers    map[string]string
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Headers map[string]string

	// Transport overrides the default HTTP transport (tests, proxies).
	Transport http.RoundTripper
}

// NewClient creates a new backend client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: cfg.Transport},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		headers:    cfg.Headers,
	}
}

// Do sends req to the backend. Every HTTP status is returned as a
// response; an error means no response was received.
func (c *Client) Do(ctx context.Context, req ports.BackendRequest) (ports.BackendResponse, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), bodyReader)
	if err != nil {
		return ports.BackendResponse{}, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	if httpReq.Header.Get(HeaderRequestID) == "" {
		httpReq.Header.Set(HeaderRequestID, uuid.New().String())
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.BackendResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return ports.BackendResponse{}, fmt.Errorf("read response: %w", err)
	}

	return ports.BackendResponse{
		Status: resp.StatusCode,
		Body:   body,
		Header: resp.Header,
	}, nil
}

// url joins the base URL with the request path. Absolute request URLs are
// used as they are.
func (c *Client) url(req ports.BackendRequest) string {
	u := req.URL()
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return c.baseURL + u
}

// ForwardHeaders copies the named headers from in. Names are matched
// case-insensitively; missing headers are skipped.
func ForwardHeaders(in http.Header, names []string) http.Header {
	out := make(http.Header)
	for _, name := range names {
		if vs := in.Values(name); len(vs) > 0 {
			out[http.CanonicalHeaderKey(name)] = append([]string(nil), vs...)
		}
	}
	return out
}

// Ensure interface compliance.
var _ ports.Backend = (*Client)(nil)
