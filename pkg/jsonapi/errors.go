package jsonapi

import (
	"net/http"
	"strconv"

	"github.com/artpar/adminkit/domain/failure"
)

// ErrorBuilder provides a fluent API for building Error objects.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new ErrorBuilder with the given status, code, and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{
		err: Error{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
		},
	}
}

// Detail sets the error detail message.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Pointer sets the JSON pointer to the source of the error.
// Example: "/data/attributes/email"
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Pointer = pointer
	return b
}

// Parameter sets the query parameter that caused the error.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Parameter = param
	return b
}

// Meta adds metadata to the error.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// ErrBadRequest creates a 400 Bad Request error.
func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrNotFound creates a 404 Not Found error.
func ErrNotFound(detail string) Error {
	return NewError(http.StatusNotFound, "not_found", "Not Found").Detail(detail).Build()
}

// ErrMethodNotAllowed creates a 405 Method Not Allowed error.
func ErrMethodNotAllowed(method string) Error {
	return NewError(http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed").
		Detail(method + " is not supported on this route").
		Build()
}

// ErrInternal creates a 500 Internal Server Error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").Detail(detail).Build()
}

// FromFailure converts a failure into error objects. A validation failure
// yields one object per field error, pointing at the field; every other
// failure yields a single object. The title is the user-facing message.
func FromFailure(f *failure.Error) []Error {
	status := f.HTTPStatus()

	base := func() *ErrorBuilder {
		b := NewError(status, string(f.Kind), f.Message)
		if f.Resource != "" {
			b.Meta("resource", f.Resource)
		}
		if f.Action != "" {
			b.Meta("action", f.Action)
		}
		if f.Status != 0 && f.Status != status {
			b.Meta("backend_status", f.Status)
		}
		return b
	}

	if len(f.Fields) == 0 {
		b := base()
		if f.Detail != "" {
			b.Detail(f.Detail)
		}
		return []Error{b.Build()}
	}

	errs := make([]Error, 0, len(f.Fields))
	for _, fe := range f.Fields {
		b := base().Detail(fe.Message)
		if fe.Field != "" {
			b.Pointer("/data/attributes/" + fe.Field)
		}
		errs = append(errs, b.Build())
	}
	return errs
}

// ErrFromError creates error objects from a Go error. Failures keep their
// classification; anything else is an internal error whose cause is hidden.
func ErrFromError(err error) []Error {
	if f, ok := failure.As(err); ok {
		return FromFailure(f)
	}
	return []Error{ErrInternal("")}
}
