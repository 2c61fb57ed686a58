// Package failure provides the error taxonomy shared by every layer.
// A failure carries enough structure (kind, status, message and optional
// field-level detail) for a caller to render it directly.
package failure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindConfig is a malformed or incomplete resource description.
	KindConfig Kind = "config_error"
	// KindNotFound is a backend not-found for a specific identifier.
	KindNotFound Kind = "not_found"
	// KindValidation is a payload carrying field-level errors.
	KindValidation Kind = "validation_error"
	// KindUnauthorized is an auth gate denial with no redirect.
	KindUnauthorized Kind = "unauthorized"
	// KindAdapter is a response that does not match the expected envelope.
	KindAdapter Kind = "adapter_error"
	// KindUpstream is any other non-success status or transport failure.
	KindUpstream Kind = "upstream_error"
)

// FieldError is a validation message attached to one field.
// Field is empty for messages that apply to the record as a whole.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error is a classified failure (value type, returned by pointer).
type Error struct {
	Kind Kind

	// Status is the HTTP status the message was mapped from.
	// Zero for failures that never reached the backend.
	Status int

	// Message is the user-facing message.
	Message string

	// Detail is an optional backend-supplied message.
	Detail string

	// Fields holds field-level validation errors.
	Fields []FieldError

	// Resource and Action identify where the failure occurred, when known.
	Resource string
	Action   string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Resource != "" {
		b.WriteString(" [")
		b.WriteString(e.Resource)
		if e.Action != "" {
			b.WriteString(".")
			b.WriteString(e.Action)
		}
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Detail != "" && e.Detail != e.Message {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status a caller should answer with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindConfig:
		return http.StatusInternalServerError
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		if e.Status == http.StatusForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case KindAdapter:
		return http.StatusBadGateway
	case KindUpstream:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// In records the resource and action on the failure and returns it.
func (e *Error) In(resource, action string) *Error {
	e.Resource = resource
	e.Action = action
	return e
}

// Config creates a configuration failure from one or more problems.
func Config(resource string, problems ...string) *Error {
	msg := "invalid resource configuration"
	if len(problems) == 1 {
		msg = problems[0]
	} else if len(problems) > 1 {
		msg = fmt.Sprintf("validation errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return &Error{Kind: KindConfig, Message: msg, Resource: resource}
}

// NotFound creates a not-found failure.
func NotFound(status int, message string) *Error {
	return &Error{Kind: KindNotFound, Status: status, Message: message}
}

// Validation creates a validation failure with field errors.
func Validation(status int, message string, fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Status: status, Message: message, Fields: fields}
}

// Unauthorized creates a gate-denial failure.
func Unauthorized(status int, message string, cause error) *Error {
	return &Error{Kind: KindUnauthorized, Status: status, Message: message, Err: cause}
}

// Adapter creates an envelope mismatch failure.
func Adapter(format string, args ...any) *Error {
	return &Error{Kind: KindAdapter, Message: fmt.Sprintf(format, args...)}
}

// Upstream creates an upstream failure.
func Upstream(status int, message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: message, Err: cause}
}

// As extracts a *Error from err.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsKind reports whether err is a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}
