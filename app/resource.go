// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/adminkit/core/convention"
	"github.com/artpar/adminkit/core/registry"
	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/envelope"
	"github.com/artpar/adminkit/domain/failure"
	"github.com/artpar/adminkit/domain/gate"
	"github.com/artpar/adminkit/domain/messages"
	"github.com/artpar/adminkit/domain/patch"
	"github.com/artpar/adminkit/domain/query"
	"github.com/artpar/adminkit/ports"
)

// ResourceService runs CRUD operations for configured resources against
// the backend. Each call is independent; the only shared state is the
// current registry snapshot, which is swapped atomically on reload.
type ResourceService struct {
	backend  ports.Backend
	recorder ports.Recorder
	logger   zerolog.Logger

	// Static configuration (requires restart)
	policy gate.Policy

	// Dynamic configuration (hot-reloadable)
	dynamicCfg atomic.Pointer[DynamicConfig]
}

// DynamicConfig contains hot-reloadable configuration.
type DynamicConfig struct {
	Title    string
	Registry *registry.Registry
}

// ResourceDeps contains dependencies for ResourceService.
type ResourceDeps struct {
	Backend  ports.Backend
	Recorder ports.Recorder
	Logger   zerolog.Logger
}

// ResourceConfig contains configuration for ResourceService.
type ResourceConfig struct {
	Title    string
	Registry *registry.Registry
	Policy   gate.Policy
}

// NewResourceService creates a new resource service.
func NewResourceService(deps ResourceDeps, cfg ResourceConfig) *ResourceService {
	s := &ResourceService{
		backend:  deps.Backend,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		policy:   cfg.Policy,
	}
	if s.recorder == nil {
		s.recorder = ports.NopRecorder{}
	}

	s.UpdateConfig(cfg.Title, cfg.Registry)
	return s
}

// UpdateConfig swaps in a new registry snapshot.
// Calls already running keep the snapshot they started with.
func (s *ResourceService) UpdateConfig(title string, reg *registry.Registry) {
	if reg == nil {
		reg, _ = registry.Build(nil)
	}
	s.dynamicCfg.Store(&DynamicConfig{Title: title, Registry: reg})
}

// Config returns the current configuration snapshot.
func (s *ResourceService) Config() *DynamicConfig {
	return s.dynamicCfg.Load()
}

// Call identifies the inbound request an operation runs for.
type Call struct {
	// Request is evaluated by the auth gate.
	Request *http.Request

	// Resource is the registry name of the target resource.
	Resource string

	// Header is forwarded to the backend.
	Header http.Header
}

// RedirectError is returned when the gate denies a call and the policy
// names a redirect target.
type RedirectError struct {
	Location string
	Err      error
}

func (e *RedirectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redirect to %s: %v", e.Location, e.Err)
	}
	return "redirect to " + e.Location
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// DeleteResult is the canonical delete acknowledgement.
type DeleteResult struct {
	Success bool `json:"success"`
	ID      any  `json:"id"`
}

// AdminConfig is the serializable admin configuration.
type AdminConfig struct {
	Title     string              `json:"title"`
	Resources []resource.Resource `json:"resources"`
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// Authorize evaluates the auth gate for r. It returns a *RedirectError or an
// unauthorized failure on deny. messageTable is used for the 401 message.
func (s *ResourceService) Authorize(ctx context.Context, r *http.Request, messageTable map[int]string) error {
	d := gate.Evaluate(ctx, s.policy, r)
	if d.Allowed {
		return nil
	}

	reason := "denied"
	if d.Err != nil {
		reason = "error"
		s.logger.Warn().Err(d.Err).Msg("auth check failed")
	}
	s.recorder.RecordGateDenial(reason)

	if d.Redirect() {
		return &RedirectError{Location: d.RedirectTo, Err: d.Err}
	}
	return failure.Unauthorized(http.StatusUnauthorized,
		messages.Map(messageTable, http.StatusUnauthorized), d.Err)
}

// AdminConfig returns the title and every normalized resource description.
func (s *ResourceService) AdminConfig(ctx context.Context, r *http.Request) (AdminConfig, error) {
	if err := s.Authorize(ctx, r, nil); err != nil {
		return AdminConfig{}, err
	}

	cfg := s.Config()
	return AdminConfig{Title: cfg.Title, Resources: cfg.Registry.List()}, nil
}

// List fetches one page of records.
func (s *ResourceService) List(ctx context.Context, c Call, state query.State) (envelope.List, error) {
	op, err := s.begin(ctx, c, resource.ActionList)
	if err != nil {
		return envelope.List{}, err
	}
	return op.list(ctx, state)
}

// ListValues is List with the state parsed from admin API query parameters.
// Parsing happens after the gate and the resource lookup, against the
// resource's filters. A parameter that cannot be parsed is returned as a
// *query.ParamError without calling the backend.
func (s *ResourceService) ListValues(ctx context.Context, c Call, v url.Values) (envelope.List, error) {
	op, err := s.begin(ctx, c, resource.ActionList)
	if err != nil {
		return envelope.List{}, err
	}

	state, err := query.StateFromValues(op.res, v)
	if err != nil {
		return envelope.List{}, op.done(err)
	}
	return op.list(ctx, state)
}

func (op *operation) list(ctx context.Context, state query.State) (envelope.List, error) {
	resp, err := op.call(ctx, ports.BackendRequest{
		Method: op.endpoint.Method,
		Path:   op.endpoint.Path,
		Query:  query.Build(op.res, state),
		Header: op.header,
	})
	if err != nil {
		return envelope.List{}, op.done(err)
	}

	list, err := envelope.AdaptList(op.res.Response, resp.Body)
	if err != nil {
		return envelope.List{}, op.done(err)
	}
	return list, op.done(nil)
}

// Show fetches one record.
func (s *ResourceService) Show(ctx context.Context, c Call, id string) (envelope.Record, error) {
	op, err := s.begin(ctx, c, resource.ActionShow)
	if err != nil {
		return nil, err
	}

	rec, err := op.record(ctx, id, nil)
	return rec, op.done(err)
}

// Create validates body against the resource's fields and creates a record.
func (s *ResourceService) Create(ctx context.Context, c Call, body []byte) (envelope.Record, error) {
	op, err := s.begin(ctx, c, resource.ActionCreate)
	if err != nil {
		return nil, err
	}

	p, err := patch.Build(op.res.Form.Fields, body, patch.Full)
	if err != nil {
		return nil, op.done(op.localize(err))
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, op.done(fmt.Errorf("encode record: %w", err))
	}

	rec, err := op.record(ctx, "", payload)
	return rec, op.done(err)
}

// Update validates body against the resource's fields and updates a record.
//
// In partial mode against a PATCH edit endpoint only the submitted fields
// are sent. Against any other method the stored record is fetched first and
// the patch merged into its declared fields, so the endpoint receives a
// complete set of writable fields.
func (s *ResourceService) Update(ctx context.Context, c Call, id string, body []byte, mode patch.Mode) (envelope.Record, error) {
	op, err := s.begin(ctx, c, resource.ActionEdit)
	if err != nil {
		return nil, err
	}

	p, err := patch.Build(op.res.Form.Fields, body, mode)
	if err != nil {
		return nil, op.done(op.localize(err))
	}

	values := p.Map()
	if mode == patch.Partial && op.endpoint.Method != resource.MethodPatch {
		existing, err := s.fetch(ctx, c, op.res, id)
		if err != nil {
			return nil, op.done(err)
		}
		values = writableFields(op.res, p.Apply(existing))
	}

	payload, err := json.Marshal(values)
	if err != nil {
		return nil, op.done(fmt.Errorf("encode record: %w", err))
	}

	rec, err := op.record(ctx, id, payload)
	return rec, op.done(err)
}

// Delete removes a record. The result echoes the identifier, coerced to a
// number when it parses as one.
func (s *ResourceService) Delete(ctx context.Context, c Call, id string) (DeleteResult, error) {
	op, err := s.begin(ctx, c, resource.ActionDelete)
	if err != nil {
		return DeleteResult{}, err
	}

	resp, err := op.call(ctx, ports.BackendRequest{
		Method: op.endpoint.Method,
		Path:   convention.Expand(op.endpoint.Path, id),
		Header: c.Header,
	})
	if err != nil {
		return DeleteResult{}, op.done(err)
	}

	if ack := envelope.AdaptDelete(resp.Body); !ack.Success {
		return DeleteResult{}, op.done(failure.Upstream(resp.Status,
			messages.Map(op.res.Messages, http.StatusBadGateway), errors.New("backend did not acknowledge delete")))
	}

	return DeleteResult{Success: true, ID: convention.CoerceID(id)}, op.done(nil)
}

// -----------------------------------------------------------------------------
// Operation plumbing
// -----------------------------------------------------------------------------

// operation carries one resolved call through its backend round trip.
type operation struct {
	s        *ResourceService
	res      resource.Resource
	action   resource.Action
	endpoint resource.Endpoint
	header   http.Header
	start    time.Time
	status   int
}

// begin runs the gate, looks up the resource and resolves its endpoint.
func (s *ResourceService) begin(ctx context.Context, c Call, action resource.Action) (*operation, error) {
	reg := s.Config().Registry
	res, known := reg.Get(c.Resource)

	if err := s.Authorize(ctx, c.Request, res.Messages); err != nil {
		return nil, err
	}

	if !known {
		f := failure.NotFound(http.StatusNotFound, messages.Map(nil, http.StatusNotFound))
		f.Detail = fmt.Sprintf("unknown resource %q", c.Resource)
		return nil, f.In(c.Resource, string(action))
	}

	op := &operation{s: s, res: res, action: action, header: c.Header, start: time.Now()}

	ep, err := convention.Resolve(res, action)
	if err != nil {
		return nil, op.done(err)
	}
	op.endpoint = ep
	return op, nil
}

// call performs the backend request and classifies non-2xx answers.
func (op *operation) call(ctx context.Context, req ports.BackendRequest) (ports.BackendResponse, error) {
	started := time.Now()
	resp, err := op.s.backend.Do(ctx, req)
	op.s.recorder.ObserveBackend(op.res.Name, string(op.action), resp.Status, time.Since(started))

	if err != nil {
		return resp, failure.Upstream(http.StatusBadGateway,
			messages.Map(op.res.Messages, http.StatusBadGateway), err)
	}
	op.status = resp.Status

	if !resp.OK() {
		return resp, classify(op.res, op.action, resp)
	}
	return resp, nil
}

// record performs a single-record call (show, create, edit) and adapts
// the payload.
func (op *operation) record(ctx context.Context, id string, body []byte) (envelope.Record, error) {
	path := op.endpoint.Path
	if op.action.TargetsRecord() {
		path = convention.Expand(path, id)
	}

	resp, err := op.call(ctx, ports.BackendRequest{
		Method: op.endpoint.Method,
		Path:   path,
		Body:   body,
		Header: op.header,
	})
	if err != nil {
		return nil, err
	}

	rec, problem, err := envelope.AdaptRecord(op.res.Response, resp.Body)
	if err != nil {
		return nil, err
	}
	if problem != nil {
		f := failure.Validation(http.StatusUnprocessableEntity,
			messages.Map(op.res.Messages, http.StatusUnprocessableEntity), problem.Fields)
		f.Detail = problem.Message
		return nil, f
	}
	return rec, nil
}

// done stamps err with the resource and action, logs and records the
// outcome, and returns err.
func (op *operation) done(err error) error {
	name, action := op.res.Name, string(op.action)

	if err == nil {
		op.s.recorder.RecordOperation(name, action, "ok")
		op.s.logger.Debug().
			Str("resource", name).
			Str("action", action).
			Int("status", op.status).
			Dur("duration", time.Since(op.start)).
			Msg("resource operation")
		return nil
	}

	outcome := "error"
	var perr *query.ParamError
	if errors.As(err, &perr) {
		outcome = "bad_request"
	} else if f, ok := failure.As(err); ok {
		f.In(name, action)
		outcome = string(f.Kind)

		if f.Kind == failure.KindUpstream || f.Kind == failure.KindAdapter || f.Kind == failure.KindConfig {
			op.s.logger.Warn().
				Err(err).
				Str("resource", name).
				Str("action", action).
				Int("status", f.Status).
				Msg("resource operation failed")
		}
	} else {
		op.s.logger.Error().Err(err).Str("resource", name).Str("action", action).Msg("resource operation failed")
	}

	op.s.recorder.RecordOperation(name, action, outcome)
	return err
}

// localize replaces a failure's message with the resource's configured
// message for its status.
func (op *operation) localize(err error) error {
	if f, ok := failure.As(err); ok && f.Status != 0 {
		f.Message = messages.Map(op.res.Messages, f.Status)
	}
	return err
}

// fetch loads the stored record for a partial update through the show
// endpoint, without running the gate a second time.
func (s *ResourceService) fetch(ctx context.Context, c Call, res resource.Resource, id string) (envelope.Record, error) {
	ep, err := convention.Resolve(res, resource.ActionShow)
	if err != nil {
		return nil, err
	}

	op := &operation{s: s, res: res, action: resource.ActionShow, endpoint: ep, header: c.Header, start: time.Now()}
	return op.record(ctx, id, nil)
}

// classify turns a non-2xx backend response into a failure.
func classify(res resource.Resource, action resource.Action, resp ports.BackendResponse) error {
	msg := messages.Map(res.Messages, resp.Status)
	problem := envelope.ExtractError(res.Response, resp.Body)

	detail := ""
	if problem != nil {
		detail = problem.Message
	}

	var f *failure.Error
	switch {
	case problem != nil && len(problem.Fields) > 0:
		f = failure.Validation(resp.Status, msg, problem.Fields)
	case resp.Status == http.StatusNotFound && action.TargetsRecord():
		f = failure.NotFound(resp.Status, msg)
	default:
		f = failure.Upstream(resp.Status, msg, nil)
	}
	f.Detail = detail
	return f
}

// writableFields keeps only the declared, writable fields of rec.
func writableFields(res resource.Resource, rec map[string]any) map[string]any {
	out := make(map[string]any)
	for _, f := range res.Form.Fields {
		if f.Readonly {
			continue
		}
		if v, ok := rec[f.Key]; ok {
			out[f.Key] = v
		}
	}
	return out
}
