package convention

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/failure"
)

// IDParam is the path template segment substituted with a record identifier.
const IDParam = ":id"

// Resolve returns the endpoint for an action.
//
// An explicit endpoints override is returned verbatim. Otherwise the
// endpoint is derived from the shorthand base path:
//
//	list   GET    base
//	show   GET    base/:id
//	create POST   base
//	edit   PUT    base/:id
//	delete DELETE base/:id
//
// A config failure is returned when the action has neither.
func Resolve(r resource.Resource, a resource.Action) (resource.Endpoint, error) {
	if _, err := resource.ParseAction(string(a)); err != nil {
		return resource.Endpoint{}, failure.Config(r.Name, err.Error())
	}

	if ep := r.Endpoints.For(a); ep != nil {
		return *ep, nil
	}

	if r.Endpoint == "" {
		return resource.Endpoint{}, failure.Config(r.Name,
			fmt.Sprintf("action %q has neither an endpoints override nor a shorthand endpoint", a))
	}

	base := strings.TrimRight(r.Endpoint, "/")
	item := base + "/" + IDParam

	switch a {
	case resource.ActionList:
		return resource.Endpoint{Method: resource.MethodGet, Path: r.Endpoint}, nil
	case resource.ActionShow:
		return resource.Endpoint{Method: resource.MethodGet, Path: item}, nil
	case resource.ActionCreate:
		return resource.Endpoint{Method: resource.MethodPost, Path: r.Endpoint}, nil
	case resource.ActionEdit:
		return resource.Endpoint{Method: resource.MethodPut, Path: item}, nil
	default:
		return resource.Endpoint{Method: resource.MethodDelete, Path: item}, nil
	}
}

// ResolveAll resolves every action. Actions that cannot be resolved are
// absent from the result; their failures are returned alongside.
func ResolveAll(r resource.Resource) (map[resource.Action]resource.Endpoint, []error) {
	out := make(map[resource.Action]resource.Endpoint, 5)
	var errs []error
	for _, a := range resource.Actions() {
		ep, err := Resolve(r, a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[a] = ep
	}
	return out, errs
}

// Expand substitutes the identifier into every ":id" path segment.
// The identifier is opaque and escaped as a single path segment.
func Expand(path, id string) string {
	if !strings.Contains(path, IDParam) {
		return path
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == IDParam {
			segments[i] = url.PathEscape(id)
		}
	}
	return strings.Join(segments, "/")
}

// CoerceID returns id as an int64 when it parses as an integer and the
// original string otherwise. It is a display convenience for echoing
// identifiers back and is never used for lookups.
func CoerceID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
