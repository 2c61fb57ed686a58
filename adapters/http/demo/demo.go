// Package demo serves the playground users backend that the admin API can
// be pointed at. It speaks the conventional envelope: lists are
// {"data":[...],"total":N}, failures carry "message" and "errors".
package demo

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/adminkit/domain/failure"
	"github.com/artpar/adminkit/domain/patch"
	"github.com/artpar/adminkit/domain/user"
	"github.com/artpar/adminkit/ports"
)

const maxBodyBytes = 1 << 20

// Handler serves the demo users API.
type Handler struct {
	users  ports.UserStore
	logger zerolog.Logger
}

// NewHandler creates a demo backend handler.
func NewHandler(users ports.UserStore, logger zerolog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// Router returns the demo backend router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Get("/users/{id}", h.GetUser)
	r.Put("/users/{id}", h.ReplaceUser)
	r.Patch("/users/{id}", h.PatchUser)
	r.Delete("/users/{id}", h.DeleteUser)

	return r
}

// ListUsers returns one page of users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := user.ListQuery{
		Page:   parseIntQuery(r, "page", 1),
		Limit:  parseIntQuery(r, "limit", 0),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
		Search: q.Get("search"),
		Role:   q.Get("role"),
	}

	users, total, err := h.users.List(r.Context(), lq)
	if err != nil {
		h.internal(w, err, "failed to list users")
		return
	}
	if users == nil {
		users = []user.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  users,
		"total": total,
	})
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateUser creates a user. An absent role defaults to "user".
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r, patch.Full)
	if !ok {
		return
	}

	u, err := h.users.Create(r.Context(), fromPatch(p))
	if err != nil {
		h.internal(w, err, "failed to create user")
		return
	}

	h.logger.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("demo user created")
	writeJSON(w, http.StatusCreated, u)
}

// ReplaceUser replaces every writable field of a user.
func (h *Handler) ReplaceUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	p, ok := h.decode(w, r, patch.Full)
	if !ok {
		return
	}

	u := fromPatch(p)
	u.ID = id
	u, err := h.users.Replace(r.Context(), u)
	if err != nil {
		h.storeError(w, err, "failed to replace user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// PatchUser updates only the fields present in the body.
func (h *Handler) PatchUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	p, ok := h.decode(w, r, patch.Partial)
	if !ok {
		return
	}

	u, err := h.users.Update(r.Context(), id, p)
	if err != nil {
		h.storeError(w, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser deletes a user.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.storeError(w, err, "failed to delete user")
		return
	}

	h.logger.Info().Int64("user_id", id).Msg("demo user deleted")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// decode validates the body against the user fields. It writes the error
// response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, mode patch.Mode) (patch.Patch, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return patch.Patch{}, false
	}

	p, err := patch.Build(user.Fields, body, mode)
	if err != nil {
		if f, ok := failure.As(err); ok {
			writeError(w, http.StatusUnprocessableEntity, f.Message, f.Fields)
			return patch.Patch{}, false
		}
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return patch.Patch{}, false
	}
	return p, true
}

func (h *Handler) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, user.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	h.internal(w, err, msg)
}

func (h *Handler) internal(w http.ResponseWriter, err error, msg string) {
	h.logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "Internal server error", nil)
}

// userID parses the {id} path parameter. A non-numeric id names no user.
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return 0, false
	}
	return id, true
}

func fromPatch(p patch.Patch) user.User {
	return user.User{
		Name:  p.Text("name"),
		Email: p.Text("email"),
		Role:  p.Text("role"),
	}.WithDefaults()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, fields []failure.FieldError) {
	body := map[string]any{"message": message}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}

func parseIntQuery(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
