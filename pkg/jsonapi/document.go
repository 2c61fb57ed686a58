// Package jsonapi renders admin API failures as JSON:API error documents.
// See https://jsonapi.org/format/#errors.
package jsonapi

import (
	"encoding/json"
	"net/http"
)

// ContentType is the JSON:API media type.
const ContentType = "application/vnd.api+json"

// Document is a top-level error document.
type Document struct {
	Errors []Error `json:"errors"`
	Meta   Meta    `json:"meta,omitempty"`
}

// Error is a JSON:API error object.
type Error struct {
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
	Meta   Meta         `json:"meta,omitempty"`
}

// ErrorSource points at the part of the request that caused an error.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`   // e.g. /data/attributes/email
	Parameter string `json:"parameter,omitempty"` // query parameter name
}

// Meta holds non-standard members.
type Meta map[string]any

// Status returns the response status for errs. Errors that disagree are
// reported under the most general status of their class, 400 or 500.
func Status(errs []Error) int {
	if len(errs) == 0 {
		return http.StatusInternalServerError
	}

	status := errs[0].StatusCode()
	for _, e := range errs[1:] {
		if e.StatusCode() == status {
			continue
		}
		if status >= 500 || e.StatusCode() >= 500 {
			return http.StatusInternalServerError
		}
		status = http.StatusBadRequest
	}
	if status == 0 {
		return http.StatusInternalServerError
	}
	return status
}

// Write sends doc with the status derived from its errors.
func Write(w http.ResponseWriter, doc Document) {
	if len(doc.Errors) == 0 {
		doc.Errors = []Error{ErrInternal("")}
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(Status(doc.Errors))
	json.NewEncoder(w).Encode(doc)
}

// WriteError sends errs as one document.
func WriteError(w http.ResponseWriter, errs ...Error) {
	Write(w, Document{Errors: errs})
}

// WriteFailure sends err, classified by ErrFromError. meta is attached to
// the document, not to the individual errors.
func WriteFailure(w http.ResponseWriter, err error, meta Meta) {
	Write(w, Document{Errors: ErrFromError(err), Meta: meta})
}
