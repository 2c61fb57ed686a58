// Package messages maps HTTP status codes to user-facing error messages.
package messages

import "net/http"

// Default messages used when a resource configures none for a status.
const (
	NotFound       = "Not found"
	NotAuthorized  = "Not authorized"
	ValidationFail = "Validation failed"
	ServerError    = "Server error"
	RequestFailed  = "Request failed"
)

// Map returns the message for status. A message configured in table wins;
// otherwise the built-in default for the status class is used.
// Map never returns an empty string.
func Map(table map[int]string, status int) string {
	if msg, ok := table[status]; ok && msg != "" {
		return msg
	}
	return Default(status)
}

// Default returns the built-in message for status.
func Default(status int) string {
	switch {
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NotAuthorized
	case status == http.StatusUnprocessableEntity:
		return ValidationFail
	case status >= 500 && status <= 599:
		return ServerError
	}
	return RequestFailed
}
