package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/adminkit/app"
	"github.com/artpar/adminkit/core/registry"
	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/failure"
	"github.com/artpar/adminkit/domain/gate"
	"github.com/artpar/adminkit/domain/patch"
	"github.com/artpar/adminkit/domain/query"
	"github.com/artpar/adminkit/ports"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type reply struct {
	status int
	body   string
	err    error
}

// fakeBackend answers by "METHOD URL" and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	replies  map[string]reply
	requests []ports.BackendRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: make(map[string]reply)}
}

func (b *fakeBackend) on(method, url string, status int, body string) {
	b.replies[method+" "+url] = reply{status: status, body: body}
}

func (b *fakeBackend) fail(method, url string, err error) {
	b.replies[method+" "+url] = reply{err: err}
}

func (b *fakeBackend) Do(_ context.Context, req ports.BackendRequest) (ports.BackendResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)

	r, ok := b.replies[req.Method+" "+req.URL()]
	if !ok {
		return ports.BackendResponse{Status: http.StatusTeapot}, nil
	}
	if r.err != nil {
		return ports.BackendResponse{}, r.err
	}
	return ports.BackendResponse{Status: r.status, Body: []byte(r.body)}, nil
}

func (b *fakeBackend) last() ports.BackendRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

type countingRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	denials    map[string]int
}

func newRecorder() *countingRecorder {
	return &countingRecorder{operations: map[string]int{}, denials: map[string]int{}}
}

func (r *countingRecorder) RecordOperation(res, action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[res+"."+action+"."+outcome]++
}

func (r *countingRecorder) ObserveBackend(string, string, int, time.Duration) {}

func (r *countingRecorder) RecordGateDenial(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denials[reason]++
}

// -----------------------------------------------------------------------------
// Setup
// -----------------------------------------------------------------------------

var usersResource = resource.Resource{
	Name:     "users",
	Endpoint: "/api/admin/users",
	Filters: []resource.Filter{
		{Key: "role", Type: resource.FilterSelect, Options: []string{"admin", "user"}},
	},
	Form: resource.Form{Fields: []resource.Field{
		{Key: "id", Type: resource.FieldNumber, Readonly: true},
		{Key: "name", Required: true},
		{Key: "email", Type: resource.FieldEmail, Required: true},
		{Key: "role", Type: resource.FieldSelect, Options: []string{"admin", "user"}},
	}},
}

func newService(t *testing.T, backend ports.Backend, policy gate.Policy, defs ...resource.Resource) (*app.ResourceService, *countingRecorder) {
	t.Helper()
	if len(defs) == 0 {
		defs = []resource.Resource{usersResource}
	}
	reg, err := registry.Build(defs)
	require.NoError(t, err)

	rec := newRecorder()
	svc := app.NewResourceService(
		app.ResourceDeps{Backend: backend, Recorder: rec, Logger: zerolog.Nop()},
		app.ResourceConfig{Title: "Admin", Registry: reg, Policy: policy},
	)
	return svc, rec
}

func call(name string) app.Call {
	return app.Call{
		Request:  httptest.NewRequest(http.MethodGet, "/admin/api/"+name, nil),
		Resource: name,
	}
}

func allowAll() gate.Policy {
	return gate.Policy{Checker: gate.CheckFunc(func(context.Context, *http.Request) (bool, error) { return true, nil })}
}

// -----------------------------------------------------------------------------
// Show
// -----------------------------------------------------------------------------

func TestShow_ResolvesConventionPath(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/7", 200, `{"id":7,"name":"Ann"}`)
	svc, rec := newService(t, backend, allowAll())

	got, err := svc.Show(context.Background(), call("users"), "7")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got["name"])

	req := backend.last()
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/api/admin/users/7", req.Path)
	assert.Equal(t, 1, rec.operations["users.show.ok"])
}

func TestShow_NotFoundUsesDefaultMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/7", 404, `{"message":"User not found"}`)
	svc, rec := newService(t, backend, allowAll())

	_, err := svc.Show(context.Background(), call("users"), "7")

	f, ok := failure.As(err)
	require.True(t, ok, "err = %v", err)
	assert.Equal(t, failure.KindNotFound, f.Kind)
	assert.Equal(t, "Not found", f.Message)
	assert.Equal(t, "User not found", f.Detail)
	assert.Equal(t, "users", f.Resource)
	assert.Equal(t, "show", f.Action)
	assert.Equal(t, 1, rec.operations["users.show.not_found"])
}

func TestShow_ConfiguredMessage(t *testing.T) {
	res := usersResource
	res.Messages = map[int]string{404: "Custom not found", 500: "Backend exploded"}

	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/7", 404, ``)
	backend.on("GET", "/api/admin/users/8", 500, `oops`)
	svc, _ := newService(t, backend, allowAll(), res)

	_, err := svc.Show(context.Background(), call("users"), "7")
	f, _ := failure.As(err)
	assert.Equal(t, "Custom not found", f.Message)

	_, err = svc.Show(context.Background(), call("users"), "8")
	f, _ = failure.As(err)
	assert.Equal(t, failure.KindUpstream, f.Kind)
	assert.Equal(t, "Backend exploded", f.Message)
	assert.Equal(t, 500, f.HTTPStatus())
}

func TestShow_ErrorKeyInSuccessPayload(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/7", 200, `{"errors":[{"field":"id","message":"bad id"}]}`)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.Show(context.Background(), call("users"), "7")
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindValidation, f.Kind)
	assert.Equal(t, []failure.FieldError{{Field: "id", Message: "bad id"}}, f.Fields)
}

func TestShow_NullErrorKeyKeepsRecord(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/7", 200, `{"id":7,"name":"Ann","errors":null}`)
	svc, rec := newService(t, backend, allowAll())

	got, err := svc.Show(context.Background(), call("users"), "7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ann", got["name"])
	assert.Equal(t, 1, rec.operations["users.show.ok"])
}

func TestShow_TransportFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.fail("GET", "/api/admin/users/7", errors.New("connection refused"))
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.Show(context.Background(), call("users"), "7")
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindUpstream, f.Kind)
	assert.Equal(t, http.StatusBadGateway, f.HTTPStatus())
	assert.Equal(t, "Server error", f.Message)
}

func TestShow_EscapesID(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/a%20b", 200, `{}`)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.Show(context.Background(), call("users"), "a b")
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// List
// -----------------------------------------------------------------------------

func TestList(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users?page=2&limit=20&sort=name&order=asc&search=ann&role=admin", 200,
		`{"data":[{"id":1},{"id":2}],"total":5}`)
	svc, _ := newService(t, backend, allowAll())

	list, err := svc.List(context.Background(), call("users"), query.State{
		Page: 2, Limit: 20, SortKey: "name", SortOrder: "asc", Search: "ann",
		Filters: map[string]any{"role": "admin"},
	})
	require.NoError(t, err)
	assert.Len(t, list.Records, 2)
	assert.Equal(t, 5, list.Total)
}

func TestList_AdapterError(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users", 200, `[{"id":1}]`)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.List(context.Background(), call("users"), query.State{})
	assert.True(t, failure.IsKind(err, failure.KindAdapter), "err = %v", err)
}

func TestList_NotFoundIsUpstream(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users", 404, ``)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.List(context.Background(), call("users"), query.State{})
	assert.True(t, failure.IsKind(err, failure.KindUpstream), "a list 404 targets no record: %v", err)
}

// -----------------------------------------------------------------------------
// Create / Update / Delete
// -----------------------------------------------------------------------------

func TestCreate(t *testing.T) {
	backend := newFakeBackend()
	backend.on("POST", "/api/admin/users", 201, `{"id":4,"name":"Dan","email":"dan@example.com","role":"user"}`)
	svc, _ := newService(t, backend, allowAll())

	rec, err := svc.Create(context.Background(), call("users"), []byte(`{"name":"Dan","email":"dan@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("4"), rec["id"])

	assert.JSONEq(t, `{"name":"Dan","email":"dan@example.com"}`, string(backend.last().Body))
}

func TestCreate_ValidationNeverReachesBackend(t *testing.T) {
	res := usersResource
	res.Messages = map[int]string{422: "Please fix the form"}

	backend := newFakeBackend()
	svc, _ := newService(t, backend, allowAll(), res)

	_, err := svc.Create(context.Background(), call("users"), []byte(`{"name":"Dan","admin":true}`))
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindValidation, f.Kind)
	assert.Equal(t, "Please fix the form", f.Message)
	assert.Len(t, f.Fields, 2) // email required, admin unknown
	assert.Empty(t, backend.requests)
}

func TestCreate_BackendValidationErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.on("POST", "/api/admin/users", 422, `{"errors":{"email":["already taken"]},"message":"Invalid"}`)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.Create(context.Background(), call("users"), []byte(`{"name":"Dan","email":"dan@example.com"}`))
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindValidation, f.Kind)
	assert.Equal(t, "Validation failed", f.Message)
	assert.Equal(t, "Invalid", f.Detail)
	assert.Equal(t, []failure.FieldError{{Field: "email", Message: "already taken"}}, f.Fields)
}

func TestUpdate_Full(t *testing.T) {
	backend := newFakeBackend()
	backend.on("PUT", "/api/admin/users/2", 200, `{"id":2,"name":"Rob","email":"rob@example.com","role":"user"}`)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.Update(context.Background(), call("users"), "2", []byte(`{"name":"Rob","email":"rob@example.com"}`), patch.Full)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Rob","email":"rob@example.com"}`, string(backend.last().Body))
}

func TestUpdate_PartialMergesStoredRecord(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/1", 200, `{"id":1,"name":"Alice Admin","email":"alice@example.com","role":"admin","created_at":"2024-01-01"}`)
	backend.on("PUT", "/api/admin/users/1", 200, `{"id":1,"name":"Alice Admin","email":"alice@example.com","role":"user"}`)
	svc, _ := newService(t, backend, allowAll())

	rec, err := svc.Update(context.Background(), call("users"), "1", []byte(`{"role":"user"}`), patch.Partial)
	require.NoError(t, err)
	assert.Equal(t, "user", rec["role"])

	sent := backend.last()
	assert.Equal(t, "PUT", sent.Method)
	assert.JSONEq(t, `{"name":"Alice Admin","email":"alice@example.com","role":"user"}`, string(sent.Body))
}

func TestUpdate_PartialPatchEndpointSendsOnlyChanges(t *testing.T) {
	orders := resource.Resource{
		Name: "orders",
		Endpoints: resource.Endpoints{
			Edit: &resource.Endpoint{Path: "/api/orders/:id", Method: resource.MethodPatch},
		},
		Form: resource.Form{Fields: []resource.Field{
			{Key: "customer", Required: true},
			{Key: "status"},
		}},
	}
	backend := newFakeBackend()
	backend.on("PATCH", "/api/orders/5", 200, `{"id":5,"customer":"Ann","status":"paid"}`)
	svc, _ := newService(t, backend, allowAll(), orders)

	rec, err := svc.Update(context.Background(), call("orders"), "5", []byte(`{"status":"paid"}`), patch.Partial)
	require.NoError(t, err)
	assert.Equal(t, "paid", rec["status"])

	require.Len(t, backend.requests, 1)
	sent := backend.last()
	assert.Equal(t, "PATCH", sent.Method)
	assert.JSONEq(t, `{"status":"paid"}`, string(sent.Body))
}

func TestUpdate_PartialMissingRecord(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users/9", 404, ``)
	svc, _ := newService(t, backend, allowAll())

	_, err := svc.Update(context.Background(), call("users"), "9", []byte(`{"role":"user"}`), patch.Partial)
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindNotFound, f.Kind)
	assert.Equal(t, "edit", f.Action)
}

func TestDelete(t *testing.T) {
	backend := newFakeBackend()
	backend.on("DELETE", "/api/admin/users/3", 200, `{"success":true,"id":3}`)
	backend.on("DELETE", "/api/admin/users/abc", 204, ``)
	backend.on("DELETE", "/api/admin/users/4", 200, `false`)
	svc, _ := newService(t, backend, allowAll())

	got, err := svc.Delete(context.Background(), call("users"), "3")
	require.NoError(t, err)
	assert.Equal(t, app.DeleteResult{Success: true, ID: int64(3)}, got)

	got, err = svc.Delete(context.Background(), call("users"), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)

	_, err = svc.Delete(context.Background(), call("users"), "4")
	assert.True(t, failure.IsKind(err, failure.KindUpstream))
}

// -----------------------------------------------------------------------------
// Endpoints and registry
// -----------------------------------------------------------------------------

func TestOverrideEndpoint(t *testing.T) {
	res := resource.Resource{
		Name:     "orders",
		Endpoint: "/api/orders",
		Endpoints: resource.Endpoints{
			Delete: &resource.Endpoint{Path: "/api/orders/:id/cancel", Method: "POST"},
		},
	}
	backend := newFakeBackend()
	backend.on("POST", "/api/orders/17/cancel", 200, `{}`)
	svc, _ := newService(t, backend, allowAll(), res)

	_, err := svc.Delete(context.Background(), call("orders"), "17")
	require.NoError(t, err)
}

func TestMissingEndpointIsConfigError(t *testing.T) {
	res := resource.Resource{
		Name:      "reports",
		Endpoints: resource.Endpoints{List: &resource.Endpoint{Path: "/api/reports", Method: "GET"}},
	}
	backend := newFakeBackend()
	svc, rec := newService(t, backend, allowAll(), res)

	_, err := svc.Show(context.Background(), call("reports"), "1")
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindConfig, f.Kind)
	assert.Equal(t, http.StatusInternalServerError, f.HTTPStatus())
	assert.Empty(t, backend.requests)
	assert.Equal(t, 1, rec.operations["reports.show.config_error"])
}

func TestUnknownResource(t *testing.T) {
	svc, _ := newService(t, newFakeBackend(), allowAll())

	_, err := svc.Show(context.Background(), call("widgets"), "1")
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindNotFound, f.Kind)
	assert.Contains(t, f.Detail, "widgets")
}

func TestUpdateConfig_SwapsSnapshot(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/v2/users/1", 200, `{"id":1}`)
	svc, _ := newService(t, backend, allowAll())

	reg, err := registry.Build([]resource.Resource{{Name: "users", Endpoint: "/v2/users"}})
	require.NoError(t, err)
	svc.UpdateConfig("Ops", reg)

	_, err = svc.Show(context.Background(), call("users"), "1")
	require.NoError(t, err)
	assert.Equal(t, "Ops", svc.Config().Title)
}

// -----------------------------------------------------------------------------
// Gate
// -----------------------------------------------------------------------------

func TestGate_DenyShortCircuits(t *testing.T) {
	backend := newFakeBackend()
	deny := gate.Policy{Checker: gate.CheckFunc(func(context.Context, *http.Request) (bool, error) { return false, nil })}
	svc, rec := newService(t, backend, deny)

	_, err := svc.Show(context.Background(), call("users"), "7")
	f, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindUnauthorized, f.Kind)
	assert.Equal(t, "Not authorized", f.Message)
	assert.Empty(t, backend.requests)
	assert.Equal(t, 1, rec.denials["denied"])
}

func TestGate_ThrowingCheckRedirects(t *testing.T) {
	backend := newFakeBackend()
	policy := gate.Policy{
		Checker:    gate.CheckFunc(func(context.Context, *http.Request) (bool, error) { panic("boom") }),
		RedirectTo: "/login",
	}
	svc, rec := newService(t, backend, policy)

	_, err := svc.List(context.Background(), call("users"), query.State{})

	var redirect *app.RedirectError
	require.True(t, errors.As(err, &redirect), "err = %v", err)
	assert.Equal(t, "/login", redirect.Location)
	assert.False(t, failure.IsKind(err, failure.KindUnauthorized))
	assert.Empty(t, backend.requests)
	assert.Equal(t, 1, rec.denials["error"])
}

func TestAdminConfig(t *testing.T) {
	svc, _ := newService(t, newFakeBackend(), allowAll())

	cfg, err := svc.AdminConfig(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "Admin", cfg.Title)
	require.Len(t, cfg.Resources, 1)
	assert.Equal(t, "data", cfg.Resources[0].Response.DataKey)
}

func TestListValues(t *testing.T) {
	backend := newFakeBackend()
	backend.on("GET", "/api/admin/users?page=2&role=admin", 200, `{"data":[{"id":1}],"total":1}`)
	svc, _ := newService(t, backend, allowAll())

	list, err := svc.ListValues(context.Background(), call("users"), url.Values{"page": {"2"}, "role": {"admin"}})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}

func TestListValues_BadParameter(t *testing.T) {
	backend := newFakeBackend()
	svc, rec := newService(t, backend, allowAll())

	_, err := svc.ListValues(context.Background(), call("users"), url.Values{"limit": {"many"}})
	var perr *query.ParamError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "limit", perr.Param)
	assert.Empty(t, backend.requests, "backend must not be called")
	assert.Equal(t, 1, rec.operations["users.list.bad_request"])
}
