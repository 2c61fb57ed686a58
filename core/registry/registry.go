// Package registry holds the normalized resource descriptions of a process.
// A registry is built once and is read-only afterwards, so it is safe for
// unsynchronized concurrent reads. Configuration reloads build a new registry
// instead of mutating an existing one.
package registry

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/artpar/adminkit/core/convention"
	"github.com/artpar/adminkit/core/resource"
)

// Registry maps resource names to normalized descriptions.
type Registry struct {
	resources map[string]resource.Resource
	order     []string
}

// Build normalizes and registers every description.
//
// A description that fails normalization, or whose name is already taken,
// is left out of the registry; the returned *SetupError lists each of
// them. The registry is always non-nil and holds every description that
// was accepted.
func Build(defs []resource.Resource) (*Registry, error) {
	r := &Registry{
		resources: make(map[string]resource.Resource, len(defs)),
	}

	var setupErr SetupError
	for i, def := range defs {
		normalized, err := convention.Normalize(def)
		if err != nil {
			setupErr.Failures = append(setupErr.Failures, Failure{Index: i, Name: def.Name, Err: err})
			continue
		}

		if _, exists := r.resources[normalized.Name]; exists {
			setupErr.Failures = append(setupErr.Failures, Failure{
				Index: i,
				Name:  def.Name,
				Err:   fmt.Errorf("resource %q already registered", normalized.Name),
			})
			continue
		}

		r.resources[normalized.Name] = normalized
		r.order = append(r.order, normalized.Name)
	}

	if len(setupErr.Failures) > 0 {
		return r, &setupErr
	}
	return r, nil
}

// Get returns a resource by name.
func (r *Registry) Get(name string) (resource.Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Names returns resource names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List returns all resources in registration order.
func (r *Registry) List() []resource.Resource {
	return lo.Map(r.order, func(name string, _ int) resource.Resource {
		return r.resources[name]
	})
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	return len(r.order)
}

// Failure records one description rejected at setup.
type Failure struct {
	Index int
	Name  string
	Err   error
}

// SetupError reports every description rejected by Build.
type SetupError struct {
	Failures []Failure
}

// Error returns the setup error message.
func (e *SetupError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("#%d", f.Index)
		}
		msgs[i] = fmt.Sprintf("%s: %v", name, f.Err)
	}
	return fmt.Sprintf("resource setup failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Unwrap exposes each failure to errors.Is / errors.As.
func (e *SetupError) Unwrap() []error {
	return lo.Map(e.Failures, func(f Failure, _ int) error { return f.Err })
}
