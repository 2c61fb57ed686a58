// Package query builds list-request query strings from runtime list state.
// Parameter order is fixed so identical state always yields the identical
// string: pagination, sort, search, then filters in declared order.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/artpar/adminkit/core/resource"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// State is the runtime state of a list view.
// Zero values mean "absent" and produce no parameter.
type State struct {
	Page      int
	Limit     int
	SortKey   string
	SortOrder string
	Search    string

	// Filters maps filter keys to values. Daterange filters take a Range;
	// other filters take a string, bool or number. Keys that match no
	// declared filter are ignored.
	Filters map[string]any
}

// Range is the value of a daterange filter.
type Range struct {
	From string
	To   string
}

// Complete reports whether both bounds are present.
func (r Range) Complete() bool {
	return r.From != "" && r.To != ""
}

// Build returns the query string (without a leading "?") for a list request
// against a normalized resource.
func Build(r resource.Resource, s State) string {
	var p params

	if s.Page > 0 {
		p.add(r.Query.Page, strconv.Itoa(s.Page))
	}
	if s.Limit > 0 {
		p.add(r.Query.Limit, strconv.Itoa(s.Limit))
	}

	if s.SortKey != "" {
		order := normalizeOrder(s.SortOrder)
		if col, ok := r.Column(s.SortKey); ok && col.Sort != nil {
			if order == Desc {
				p.add(col.Sort.Param, col.Sort.Desc)
			} else {
				p.add(col.Sort.Param, col.Sort.Asc)
			}
		} else {
			p.add(r.Query.Sort, s.SortKey)
			if order != "" {
				p.add(r.Query.Order, order)
			}
		}
	}

	if s.Search != "" {
		p.add(r.Query.Search, s.Search)
	}

	for _, f := range r.Filters {
		v, ok := s.Filters[f.Key]
		if !ok {
			continue
		}

		if f.IsRange() {
			rng, ok := v.(Range)
			if !ok || !rng.Complete() {
				continue
			}
			p.add(f.Params.From, rng.From)
			p.add(f.Params.To, rng.To)
			continue
		}

		if str, ok := formatValue(v); ok {
			p.add(f.Param, str)
		}
	}

	return p.encode()
}

// normalizeOrder maps sort order spellings to asc/desc. An unknown or empty
// order is returned empty so no order parameter is sent.
func normalizeOrder(order string) string {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "asc", "ascending", "1":
		return Asc
	case "desc", "descending", "-1":
		return Desc
	}
	return ""
}

// formatValue renders a simple filter value. Empty strings and nil are absent.
func formatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	}
	return "", false
}

type pair struct {
	key, value string
}

// params is an ordered query parameter list. url.Values would sort keys.
type params []pair

func (p *params) add(key, value string) {
	*p = append(*p, pair{key: key, value: value})
}

func (p params) encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.value))
	}
	return b.String()
}
