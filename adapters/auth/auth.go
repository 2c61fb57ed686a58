// Package auth provides the predicates the admin gate can be configured with:
// allow-all, a static bcrypt-hashed token, JWT bearer tokens and a remote
// session check.
package auth

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/adminkit/domain/gate"
)

// TokenCookie is the cookie read when no Authorization header is present.
const TokenCookie = "admin_token"

// BearerToken extracts the token from "Authorization: Bearer <token>",
// falling back to the TokenCookie cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// AllowAll admits every request.
type AllowAll struct{}

// Check always allows.
func (AllowAll) Check(context.Context, *http.Request) (bool, error) {
	return true, nil
}

// StaticToken admits requests carrying a token matching a bcrypt hash.
type StaticToken struct {
	hash []byte
}

// NewStaticToken creates a checker for the given bcrypt hash.
func NewStaticToken(hash string) *StaticToken {
	return &StaticToken{hash: []byte(hash)}
}

// Check compares the request's bearer token with the hash.
func (s *StaticToken) Check(_ context.Context, r *http.Request) (bool, error) {
	token := BearerToken(r)
	if token == "" {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(s.hash, []byte(token)) == nil, nil
}

// HashToken hashes a plaintext token for use as a StaticToken hash.
func HashToken(token string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Ensure interface compliance.
var (
	_ gate.Checker = AllowAll{}
	_ gate.Checker = (*StaticToken)(nil)
)
