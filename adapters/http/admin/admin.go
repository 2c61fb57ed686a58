// Package admin provides HTTP handlers for the admin resource API.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/adminkit/adapters/remote"
	"github.com/artpar/adminkit/app"
	"github.com/artpar/adminkit/domain/failure"
	"github.com/artpar/adminkit/domain/patch"
	"github.com/artpar/adminkit/domain/query"
	"github.com/artpar/adminkit/pkg/jsonapi"
)

// MaxBodyBytes limits create and update request bodies.
const MaxBodyBytes = 1 << 20

// Handler provides admin API endpoints.
type Handler struct {
	service        *app.ResourceService
	logger         zerolog.Logger
	forwardHeaders []string
}

// Deps contains dependencies for the admin handler.
type Deps struct {
	Service *app.ResourceService
	Logger  zerolog.Logger

	// ForwardHeaders names the inbound headers copied to backend calls.
	ForwardHeaders []string
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		service:        deps.Service,
		logger:         deps.Logger,
		forwardHeaders: deps.ForwardHeaders,
	}
}

// Router returns the admin API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/_config", h.Config)

		r.Get("/{resource}", h.List)
		r.Post("/{resource}", h.Create)
		r.Get("/{resource}/{id}", h.Show)
		r.Put("/{resource}/{id}", h.Replace)
		r.Patch("/{resource}/{id}", h.Patch)
		r.Delete("/{resource}/{id}", h.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("no admin route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, jsonapi.ErrMethodNotAllowed(r.Method))
	})

	return r
}

// Config returns the title and every normalized resource description.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.AdminConfig(r.Context(), r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// List returns one page of records.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListValues(r.Context(), h.call(r), r.URL.Query())
	if err != nil {
		var perr *query.ParamError
		if errors.As(err, &perr) {
			e := jsonapi.ErrBadRequest(perr.Error())
			e.Source = &jsonapi.ErrorSource{Parameter: perr.Param}
			jsonapi.WriteError(w, e)
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Show returns one record.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Show(r.Context(), h.call(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Create creates a record.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Create(r.Context(), h.call(r), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Replace updates a record with a complete set of fields.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, patch.Full)
}

// Patch updates only the fields present in the body.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, patch.Partial)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, mode patch.Mode) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Update(r.Context(), h.call(r), chi.URLParam(r, "id"), body, mode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete removes a record.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Delete(r.Context(), h.call(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// call describes the inbound request for the resource service.
func (h *Handler) call(r *http.Request) app.Call {
	header := remote.ForwardHeaders(r.Header, h.forwardHeaders)
	if id := middleware.GetReqID(r.Context()); id != "" {
		header.Set(remote.HeaderRequestID, id)
	}

	return app.Call{
		Request:  r,
		Resource: chi.URLParam(r, "resource"),
		Header:   header,
	}
}

// fail writes err as a redirect or a JSON:API error document.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var redirect *app.RedirectError
	if errors.As(err, &redirect) {
		http.Redirect(w, r, redirect.Location, http.StatusFound)
		return
	}

	if _, ok := failure.As(err); !ok {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("admin request failed")
	}
	var meta jsonapi.Meta
	if id := middleware.GetReqID(r.Context()); id != "" {
		meta = jsonapi.Meta{"request_id": id}
	}
	jsonapi.WriteFailure(w, err, meta)
}

// readBody reads a bounded request body. It writes the error response and
// returns false on failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonapi.WriteError(w, jsonapi.NewError(http.StatusRequestEntityTooLarge, "body_too_large", "Request Entity Too Large").
				Detail(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)).
				Build())
			return nil, false
		}
		jsonapi.WriteError(w, jsonapi.ErrBadRequest("could not read request body"))
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
