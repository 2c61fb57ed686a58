// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/artpar/adminkit/domain/patch"
	"github.com/artpar/adminkit/domain/user"
)

// -----------------------------------------------------------------------------
// Backend Port
// -----------------------------------------------------------------------------

// Backend performs HTTP calls against the data backend that owns the
// resources. It is constructed once and passed to the service explicitly.
type Backend interface {
	// Do sends req and returns the raw response. A non-nil error means no
	// response was received (transport failure, timeout, cancellation);
	// any HTTP status, including 4xx and 5xx, is returned as a response.
	Do(ctx context.Context, req BackendRequest) (BackendResponse, error)
}

// BackendRequest is an outbound call to the backend.
type BackendRequest struct {
	Method string
	Path   string

	// Query is an encoded query string without the leading "?".
	Query string

	Body []byte

	// Header carries headers forwarded from the inbound request.
	Header http.Header
}

// URL returns path and query joined.
func (r BackendRequest) URL() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// BackendResponse is the raw backend answer.
type BackendResponse struct {
	Status int
	Body   []byte
	Header http.Header
}

// OK reports whether the status is 2xx.
func (r BackendResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// -----------------------------------------------------------------------------
// Observability Port
// -----------------------------------------------------------------------------

// Recorder receives operation measurements.
type Recorder interface {
	// RecordOperation counts a finished resource operation.
	// outcome is "ok" or a failure kind.
	RecordOperation(resource, action, outcome string)

	// ObserveBackend records the latency of a backend call.
	// status is 0 when no response was received.
	ObserveBackend(resource, action string, status int, d time.Duration)

	// RecordGateDenial counts a request denied by the auth gate.
	RecordGateDenial(reason string)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string, string)            {}
func (NopRecorder) ObserveBackend(string, string, int, time.Duration) {}
func (NopRecorder) RecordGateDenial(string)                           {}

// -----------------------------------------------------------------------------
// Demo Store Port
// -----------------------------------------------------------------------------

// UserStore persists the demo backend's users.
type UserStore interface {
	// List returns one page of users and the total matching count.
	List(ctx context.Context, q user.ListQuery) ([]user.User, int, error)

	// Get retrieves a user by ID.
	Get(ctx context.Context, id int64) (user.User, error)

	// Create stores a new user and returns it with its assigned ID.
	Create(ctx context.Context, u user.User) (user.User, error)

	// Replace overwrites every writable column of an existing user.
	Replace(ctx context.Context, u user.User) (user.User, error)

	// Update writes only the fields present in p.
	Update(ctx context.Context, id int64, p patch.Patch) (user.User, error)

	// Delete removes a user.
	Delete(ctx context.Context, id int64) error
}
