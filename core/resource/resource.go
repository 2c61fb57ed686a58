// Package resource defines the declarative description of an admin resource.
// A resource names its CRUD endpoints, list columns, edit fields, filters,
// query parameter names and response envelope keys. Everything a generic
// consumer needs is derived from this single description.
package resource

import (
	"fmt"
	"strings"
)

// Resource is the root description of an admin resource.
// Only Name is mandatory; every other field has a convention-derived default.
type Resource struct {
	// Name is the unique key of the resource within a registry (e.g. "users").
	Name string `yaml:"name" json:"name"`

	// Endpoint is the shorthand base path from which all five CRUD
	// endpoints are derived by convention.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Endpoints holds explicit per-action overrides. An override always
	// wins over the shorthand Endpoint.
	Endpoints Endpoints `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`

	// Query maps logical query roles to concrete parameter names.
	Query QueryMap `yaml:"query,omitempty" json:"query"`

	// Filters is the ordered list of list-view filters.
	Filters []Filter `yaml:"filters,omitempty" json:"filters,omitempty"`

	// Table describes the list view.
	Table Table `yaml:"table,omitempty" json:"table"`

	// Form describes the create/edit view.
	Form Form `yaml:"form,omitempty" json:"form"`

	// Response maps logical envelope roles to concrete JSON keys.
	Response ResponseMap `yaml:"response,omitempty" json:"response"`

	// Messages maps HTTP status codes to display strings.
	Messages map[int]string `yaml:"messages,omitempty" json:"messages,omitempty"`
}

// Table holds the list-view columns.
type Table struct {
	Columns []Column `yaml:"columns,omitempty" json:"columns"`
}

// Form holds the create/edit fields.
type Form struct {
	Fields []Field `yaml:"fields,omitempty" json:"fields"`
}

// QueryMap names the query parameters used for list requests.
type QueryMap struct {
	Page   string `yaml:"page,omitempty" json:"page"`
	Limit  string `yaml:"limit,omitempty" json:"limit"`
	Sort   string `yaml:"sort,omitempty" json:"sort"`
	Order  string `yaml:"order,omitempty" json:"order"`
	Search string `yaml:"search,omitempty" json:"search"`
}

// ResponseMap names the keys of the backend response envelope.
type ResponseMap struct {
	DataKey    string `yaml:"dataKey,omitempty" json:"dataKey"`
	TotalKey   string `yaml:"totalKey,omitempty" json:"totalKey"`
	ErrorKey   string `yaml:"errorKey,omitempty" json:"errorKey"`
	MessageKey string `yaml:"messageKey,omitempty" json:"messageKey"`
}

// Endpoint is a concrete (path, method) pair.
type Endpoint struct {
	Path   string `yaml:"path" json:"path"`
	Method string `yaml:"method" json:"method"`
}

// Endpoints holds optional per-action overrides.
type Endpoints struct {
	List   *Endpoint `yaml:"list,omitempty" json:"list,omitempty"`
	Show   *Endpoint `yaml:"show,omitempty" json:"show,omitempty"`
	Create *Endpoint `yaml:"create,omitempty" json:"create,omitempty"`
	Edit   *Endpoint `yaml:"edit,omitempty" json:"edit,omitempty"`
	Delete *Endpoint `yaml:"delete,omitempty" json:"delete,omitempty"`
}

// For returns the override for the given action, or nil.
func (e Endpoints) For(a Action) *Endpoint {
	switch a {
	case ActionList:
		return e.List
	case ActionShow:
		return e.Show
	case ActionCreate:
		return e.Create
	case ActionEdit:
		return e.Edit
	case ActionDelete:
		return e.Delete
	}
	return nil
}

// set stores an override for the given action.
func (e *Endpoints) set(a Action, ep *Endpoint) {
	switch a {
	case ActionList:
		e.List = ep
	case ActionShow:
		e.Show = ep
	case ActionCreate:
		e.Create = ep
	case ActionEdit:
		e.Edit = ep
	case ActionDelete:
		e.Delete = ep
	}
}

// Clone returns a deep copy so the result shares no pointers with e.
func (e Endpoints) Clone() Endpoints {
	var out Endpoints
	for _, a := range Actions() {
		if ep := e.For(a); ep != nil {
			cp := *ep
			out.set(a, &cp)
		}
	}
	return out
}

// IsZero reports whether no override is set. Used by yaml omitempty.
func (e Endpoints) IsZero() bool {
	for _, a := range Actions() {
		if e.For(a) != nil {
			return false
		}
	}
	return true
}

// Action is one of the five CRUD actions.
type Action string

const (
	ActionList   Action = "list"
	ActionShow   Action = "show"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Actions returns all CRUD actions in canonical order.
func Actions() []Action {
	return []Action{ActionList, ActionShow, ActionCreate, ActionEdit, ActionDelete}
}

// ParseAction converts a string to an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// TargetsRecord reports whether the action addresses a single identifier.
func (a Action) TargetsRecord() bool {
	return a == ActionShow || a == ActionEdit || a == ActionDelete
}

// HTTP methods accepted in endpoint definitions.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// ValidMethod reports whether m is an accepted endpoint method.
func ValidMethod(m string) bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// Lookup returns the field with the given key.
func (r Resource) Lookup(key string) (Field, bool) {
	for _, f := range r.Form.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Column returns the column with the given key.
func (r Resource) Column(key string) (Column, bool) {
	for _, c := range r.Table.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}
