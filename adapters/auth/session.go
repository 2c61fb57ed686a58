package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artpar/adminkit/domain/gate"
)

// RemoteSession asks an external endpoint whether the caller's session may
// use the admin. The caller's Authorization and Cookie headers are forwarded.
//
// A 2xx answer allows unless the body is a JSON object with "allowed": false.
// 401 and 403 deny. Any other status is an error, which the gate treats as
// a deny.
type RemoteSession struct {
	client *http.Client
	url    string
}

// RemoteSessionConfig configures a RemoteSession.
type RemoteSessionConfig struct {
	URL     string
	Timeout time.Duration
}

// NewRemoteSession creates a remote session checker.
func NewRemoteSession(cfg RemoteSessionConfig) *RemoteSession {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RemoteSession{
		client: &http.Client{Timeout: timeout},
		url:    cfg.URL,
	}
}

// Check performs the session lookup.
func (s *RemoteSession) Check(ctx context.Context, r *http.Request) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for _, h := range []string{"Authorization", "Cookie"} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("session lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, fmt.Errorf("session lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Allowed *bool `json:"allowed"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &body); err == nil && body.Allowed != nil {
		return *body.Allowed, nil
	}
	return true, nil
}

// Ensure interface compliance.
var _ gate.Checker = (*RemoteSession)(nil)
