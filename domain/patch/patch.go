// Package patch validates request bodies for create and update operations
// against a resource's declared form fields.
//
// Only declared fields are accepted. Each value is checked against its
// field type before it is merged; unknown and read-only keys are rejected.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"slices"
	"sort"
	"time"

	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/failure"
	"github.com/artpar/adminkit/domain/messages"
)

// Mode selects how required fields are enforced.
type Mode int

const (
	// Full is used for create and full update: every required field must be present.
	Full Mode = iota
	// Partial is used for partial update: only supplied fields are checked.
	Partial
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Partial {
		return "partial"
	}
	return "full"
}

// Accepted date and datetime layouts.
var (
	dateLayouts     = []string{time.DateOnly}
	datetimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}
)

// Patch is a validated set of field values in declared field order.
type Patch struct {
	keys   []string
	values map[string]any
}

// Keys returns the supplied field keys in declared order.
func (p Patch) Keys() []string {
	return slices.Clone(p.keys)
}

// Get returns the value supplied for key.
func (p Patch) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key was supplied.
func (p Patch) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Text returns the value for key as a string, or "" if absent or not a string.
func (p Patch) Text(key string) string {
	s, _ := p.values[key].(string)
	return s
}

// Len returns the number of supplied fields.
func (p Patch) Len() int {
	return len(p.keys)
}

// Map returns a copy of the supplied values.
func (p Patch) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the supplied values as a JSON object.
func (p Patch) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// Apply returns a copy of rec with the patch values merged in.
// rec itself is not modified.
func (p Patch) Apply(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec)+len(p.values))
	for k, v := range rec {
		out[k] = v
	}
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Build decodes body as a JSON object and validates it against fields.
// On failure it returns a *failure.Error of kind validation listing every
// problem found.
func Build(fields []resource.Field, body []byte, mode Mode) (Patch, error) {
	raw, err := decodeObject(body)
	if err != nil {
		return Patch{}, failure.Validation(http.StatusUnprocessableEntity,
			messages.Default(http.StatusUnprocessableEntity),
			[]failure.FieldError{{Message: err.Error()}})
	}

	p := Patch{values: make(map[string]any)}
	var problems []failure.FieldError

	for _, f := range fields {
		v, present := raw[f.Key]

		if f.Readonly {
			if present {
				problems = append(problems, failure.FieldError{Field: f.Key, Message: "is read-only"})
			}
			continue
		}

		if !present {
			if mode == Full && f.Required {
				problems = append(problems, failure.FieldError{Field: f.Key, Message: "is required"})
			}
			continue
		}

		if blank(v) {
			if f.Required {
				problems = append(problems, failure.FieldError{Field: f.Key, Message: "is required"})
				continue
			}
		} else if msg := check(f, v); msg != "" {
			problems = append(problems, failure.FieldError{Field: f.Key, Message: msg})
			continue
		}

		p.keys = append(p.keys, f.Key)
		p.values[f.Key] = v
	}

	unknown := make([]string, 0)
	for k := range raw {
		if !declared(fields, k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		problems = append(problems, failure.FieldError{Field: k, Message: "is not a known field"})
	}

	if len(problems) > 0 {
		return Patch{}, failure.Validation(http.StatusUnprocessableEntity,
			messages.Default(http.StatusUnprocessableEntity), problems)
	}
	return p, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("body is not valid JSON: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("body must be a JSON object")
	}
	return obj, nil
}

func declared(fields []resource.Field, key string) bool {
	return slices.ContainsFunc(fields, func(f resource.Field) bool { return f.Key == key })
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// check returns a problem message for v, or "" when v suits the field.
func check(f resource.Field, v any) string {
	switch f.Type {
	case resource.FieldNumber:
		if _, ok := v.(json.Number); !ok {
			return "must be a number"
		}

	case resource.FieldBoolean:
		if _, ok := v.(bool); !ok {
			return "must be a boolean"
		}

	case resource.FieldEmail:
		s, ok := v.(string)
		if !ok {
			return "must be a string"
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return "must be a valid email address"
		}

	case resource.FieldDate:
		if !parses(v, dateLayouts) {
			return "must be a date (YYYY-MM-DD)"
		}

	case resource.FieldDatetime:
		if !parses(v, datetimeLayouts) {
			return "must be a datetime (RFC 3339)"
		}

	case resource.FieldSelect:
		s, ok := v.(string)
		if !ok {
			return "must be a string"
		}
		if f.Enumerated() && !slices.Contains(f.Options, s) {
			return fmt.Sprintf("must be one of %v", f.Options)
		}

	case resource.FieldMultiselect:
		items, ok := v.([]any)
		if !ok {
			return "must be a list"
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return "must be a list of strings"
			}
			if f.Enumerated() && !slices.Contains(f.Options, s) {
				return fmt.Sprintf("%q is not one of %v", s, f.Options)
			}
		}

	default:
		if _, ok := v.(string); !ok {
			return "must be a string"
		}
	}
	return ""
}

func parses(v any, layouts []string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
