// Package gate decides whether a request may reach the admin API.
package gate

import (
	"context"
	"fmt"
	"net/http"
)

// Checker decides whether a request is allowed. Check may block on an
// external decision such as a remote session lookup; it must honor ctx.
type Checker interface {
	Check(ctx context.Context, r *http.Request) (bool, error)
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc func(ctx context.Context, r *http.Request) (bool, error)

// Check calls f(ctx, r).
func (f CheckFunc) Check(ctx context.Context, r *http.Request) (bool, error) {
	return f(ctx, r)
}

// Policy pairs a checker with the path a denied caller is sent to.
type Policy struct {
	Checker    Checker
	RedirectTo string
}

// Decision is the outcome of evaluating a policy.
type Decision struct {
	Allowed bool

	// RedirectTo is set on deny when the policy has a redirect target.
	RedirectTo string

	// Err is the checker failure that caused a deny, if any.
	Err error
}

// Redirect reports whether the caller should be redirected.
func (d Decision) Redirect() bool {
	return !d.Allowed && d.RedirectTo != ""
}

// Evaluate runs the policy checker for r. A checker that fails or panics
// denies the request, as does a context that is already done. A policy
// without a checker allows everything.
func Evaluate(ctx context.Context, p Policy, r *http.Request) (d Decision) {
	if p.Checker == nil {
		return Decision{Allowed: true}
	}

	defer func() {
		if rec := recover(); rec != nil {
			d = deny(p, fmt.Errorf("auth check panicked: %v", rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return deny(p, fmt.Errorf("auth check: %w", err))
	}

	ok, err := p.Checker.Check(ctx, r)
	if err != nil {
		return deny(p, fmt.Errorf("auth check: %w", err))
	}
	if !ok {
		return deny(p, nil)
	}
	return Decision{Allowed: true}
}

func deny(p Policy, err error) Decision {
	return Decision{RedirectTo: p.RedirectTo, Err: err}
}
