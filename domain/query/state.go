package query

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/artpar/adminkit/core/resource"
)

// Canonical parameter names accepted by the admin API. They are independent
// of the names a backend expects; Build translates between the two.
const (
	ParamPage   = "page"
	ParamLimit  = "limit"
	ParamSort   = "sort"
	ParamOrder  = "order"
	ParamSearch = "search"

	RangeFromSuffix = "_from"
	RangeToSuffix   = "_to"
)

// StateFromValues reads list state from canonical admin API parameters.
// Filters are read by filter key; a daterange filter reads <key>_from and
// <key>_to. Parameters that match no declared filter are ignored.
func StateFromValues(r resource.Resource, v url.Values) (State, error) {
	var s State
	var err error

	if s.Page, err = positiveInt(v, ParamPage); err != nil {
		return State{}, err
	}
	if s.Limit, err = positiveInt(v, ParamLimit); err != nil {
		return State{}, err
	}

	s.SortKey = v.Get(ParamSort)
	s.SortOrder = v.Get(ParamOrder)
	if s.SortOrder != "" && normalizeOrder(s.SortOrder) == "" {
		return State{}, paramError(ParamOrder, "%q must be asc or desc", s.SortOrder)
	}
	s.Search = v.Get(ParamSearch)

	for _, f := range r.Filters {
		if f.IsRange() {
			rng := Range{From: v.Get(f.Key + RangeFromSuffix), To: v.Get(f.Key + RangeToSuffix)}
			if rng.From != "" || rng.To != "" {
				if s.Filters == nil {
					s.Filters = make(map[string]any)
				}
				s.Filters[f.Key] = rng
			}
			continue
		}

		raw := v.Get(f.Key)
		if raw == "" {
			continue
		}

		val, err := filterValue(f, raw)
		if err != nil {
			return State{}, err
		}
		if s.Filters == nil {
			s.Filters = make(map[string]any)
		}
		s.Filters[f.Key] = val
	}

	return s, nil
}

func filterValue(f resource.Filter, raw string) (any, error) {
	switch f.Type {
	case resource.FilterBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, paramError(f.Key, "%q is not a boolean", raw)
		}
		return b, nil
	case resource.FilterSelect:
		if len(f.Options) > 0 && !slices.Contains(f.Options, raw) {
			return nil, paramError(f.Key, "%q is not one of %v", raw, f.Options)
		}
	}
	return raw, nil
}

func positiveInt(v url.Values, key string) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, paramError(key, "%q must be a positive integer", raw)
	}
	return n, nil
}

// ParamError reports a query parameter that could not be parsed.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return e.Param + ": " + e.Reason
}

func paramError(param, format string, args ...any) error {
	return &ParamError{Param: param, Reason: fmt.Sprintf(format, args...)}
}
