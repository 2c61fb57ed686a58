// Package convention derives defaults from minimal resource descriptions.
// It applies naming conventions, default query and envelope keys, default
// types and labels, and resolves per-action endpoints.
package convention

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/failure"
)

// Default query parameter names.
const (
	DefaultPageParam   = "page"
	DefaultLimitParam  = "limit"
	DefaultSortParam   = "sort"
	DefaultOrderParam  = "order"
	DefaultSearchParam = "search"
)

// Default response envelope keys.
const (
	DefaultDataKey    = "data"
	DefaultTotalKey   = "total"
	DefaultErrorKey   = "errors"
	DefaultMessageKey = "message"
)

// Normalize expands a partial resource description into its fully-resolved
// form. The result shares no slices, maps or pointers with the input.
//
// Normalize is pure and idempotent: Normalize(Normalize(r)) == Normalize(r).
// All problems of a description are reported together as one config failure.
func Normalize(r resource.Resource) (resource.Resource, error) {
	if strings.TrimSpace(r.Name) == "" {
		return resource.Resource{}, failure.Config("", "name is required")
	}

	var problems []string
	if strings.ContainsAny(r.Name, "/ \t\n") {
		problems = append(problems, fmt.Sprintf("name %q must not contain slashes or whitespace", r.Name))
	}

	out := resource.Resource{
		Name:     r.Name,
		Endpoint: normalizeBase(r.Endpoint),
		Query:    normalizeQuery(r.Query),
		Response: normalizeResponse(r.Response),
	}

	out.Endpoints, problems = normalizeEndpoints(r.Endpoints, problems)
	out.Filters, problems = normalizeFilters(r.Filters, problems)
	out.Table.Columns, problems = normalizeColumns(r.Table.Columns, problems)
	out.Form.Fields, problems = normalizeFields(r.Form.Fields, problems)
	out.Messages, problems = normalizeMessages(r.Messages, problems)

	if len(problems) > 0 {
		return resource.Resource{}, failure.Config(r.Name, problems...)
	}
	return out, nil
}

// normalizeBase drops every trailing slash. A base of only slashes is "/".
func normalizeBase(base string) string {
	trimmed := strings.TrimRight(base, "/")
	if trimmed == "" && base != "" {
		return "/"
	}
	return trimmed
}

func normalizeQuery(q resource.QueryMap) resource.QueryMap {
	return resource.QueryMap{
		Page:   orDefault(q.Page, DefaultPageParam),
		Limit:  orDefault(q.Limit, DefaultLimitParam),
		Sort:   orDefault(q.Sort, DefaultSortParam),
		Order:  orDefault(q.Order, DefaultOrderParam),
		Search: orDefault(q.Search, DefaultSearchParam),
	}
}

func normalizeResponse(m resource.ResponseMap) resource.ResponseMap {
	return resource.ResponseMap{
		DataKey:    orDefault(m.DataKey, DefaultDataKey),
		TotalKey:   orDefault(m.TotalKey, DefaultTotalKey),
		ErrorKey:   orDefault(m.ErrorKey, DefaultErrorKey),
		MessageKey: orDefault(m.MessageKey, DefaultMessageKey),
	}
}

func normalizeEndpoints(in resource.Endpoints, problems []string) (resource.Endpoints, []string) {
	out := in.Clone()
	for _, a := range resource.Actions() {
		ep := out.For(a)
		if ep == nil {
			continue
		}
		ep.Method = strings.ToUpper(strings.TrimSpace(ep.Method))
		if ep.Path == "" {
			problems = append(problems, fmt.Sprintf("endpoints.%s: path is required", a))
		}
		if !resource.ValidMethod(ep.Method) {
			problems = append(problems, fmt.Sprintf("endpoints.%s: method %q must be one of GET, POST, PUT, PATCH, DELETE", a, ep.Method))
		}
	}
	return out, problems
}

func normalizeFilters(in []resource.Filter, problems []string) ([]resource.Filter, []string) {
	if in == nil {
		return nil, problems
	}

	out := make([]resource.Filter, len(in))
	for i, f := range in {
		where := fmt.Sprintf("filters[%d]", i)
		if !resource.IsValidIdentifier(f.Key) {
			problems = append(problems, keyProblem(where, f.Key))
		}

		f.Type = resource.FilterType(orDefault(string(f.Type), string(resource.FilterText)))
		f.Label = orDefault(f.Label, Humanize(f.Key))
		f.Options = slices.Clone(f.Options)

		switch {
		case !resource.ValidFilterType(f.Type):
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", where, f.Type))
		case f.IsRange():
			if f.Params == nil || f.Params.From == "" || f.Params.To == "" {
				problems = append(problems, fmt.Sprintf("%s: daterange requires params.from and params.to", where))
			} else {
				p := *f.Params
				f.Params = &p
			}
			if f.Param != "" {
				problems = append(problems, fmt.Sprintf("%s: daterange takes params, not param", where))
			}
		default:
			if f.Params != nil {
				problems = append(problems, fmt.Sprintf("%s: only daterange filters take params", where))
			}
			f.Param = orDefault(f.Param, f.Key)
		}

		out[i] = f
	}

	for _, dup := range lo.FindDuplicatesBy(out, func(f resource.Filter) string { return f.Key }) {
		problems = append(problems, fmt.Sprintf("filters: duplicate key %q", dup.Key))
	}
	return out, problems
}

func normalizeColumns(in []resource.Column, problems []string) ([]resource.Column, []string) {
	if in == nil {
		return nil, problems
	}

	out := make([]resource.Column, len(in))
	for i, c := range in {
		where := fmt.Sprintf("table.columns[%d]", i)
		if !resource.IsValidIdentifier(c.Key) {
			problems = append(problems, keyProblem(where, c.Key))
		}

		c.Type = resource.ColumnType(orDefault(string(c.Type), string(resource.ColumnText)))
		c.Label = orDefault(c.Label, Humanize(c.Key))
		if !resource.ValidColumnType(c.Type) {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", where, c.Type))
		}

		if c.Sort != nil {
			s := *c.Sort
			if s.Param == "" || s.Asc == "" || s.Desc == "" {
				problems = append(problems, fmt.Sprintf("%s: sort requires param, asc and desc", where))
			}
			c.Sort = &s
		}

		out[i] = c
	}

	for _, dup := range lo.FindDuplicatesBy(out, func(c resource.Column) string { return c.Key }) {
		problems = append(problems, fmt.Sprintf("table.columns: duplicate key %q", dup.Key))
	}
	return out, problems
}

func normalizeFields(in []resource.Field, problems []string) ([]resource.Field, []string) {
	if in == nil {
		return nil, problems
	}

	out := make([]resource.Field, len(in))
	for i, f := range in {
		where := fmt.Sprintf("form.fields[%d]", i)
		if !resource.IsValidIdentifier(f.Key) {
			problems = append(problems, keyProblem(where, f.Key))
		}

		f.Type = resource.FieldType(orDefault(string(f.Type), string(resource.FieldText)))
		f.Label = orDefault(f.Label, Humanize(f.Key))
		f.Options = slices.Clone(f.Options)
		if !resource.ValidFieldType(f.Type) {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", where, f.Type))
		}

		out[i] = f
	}

	for _, dup := range lo.FindDuplicatesBy(out, func(f resource.Field) string { return f.Key }) {
		problems = append(problems, fmt.Sprintf("form.fields: duplicate key %q", dup.Key))
	}
	return out, problems
}

func normalizeMessages(in map[int]string, problems []string) (map[int]string, []string) {
	if in == nil {
		return nil, problems
	}

	out := make(map[int]string, len(in))
	for code, msg := range in {
		if code < 100 || code > 599 {
			problems = append(problems, fmt.Sprintf("messages: %d is not an HTTP status code", code))
		}
		out[code] = msg
	}
	return out, problems
}

func keyProblem(where, key string) string {
	if key == "" {
		return where + ": key is required"
	}
	return fmt.Sprintf("%s: key %q is not a valid identifier", where, key)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Humanize turns a record key into a display label ("created_at" -> "Created At").
func Humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
