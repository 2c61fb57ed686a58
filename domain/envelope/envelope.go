// Package envelope unwraps backend response payloads into canonical shapes.
// Lists become {records, total}; show/create/update payloads are the
// canonical record itself; error payloads become structured problems.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/failure"
)

// Record is a canonical, envelope-free resource instance.
type Record map[string]any

// List is a canonical list result.
type List struct {
	Records []Record `json:"data"`
	Total   int      `json:"total"`
}

// Problem is an error payload extracted from a backend response.
type Problem struct {
	// Fields holds structured validation errors from the error key.
	Fields []failure.FieldError

	// Message holds the top-level message from the message key.
	Message string
}

// Ack is a canonical delete acknowledgement.
type Ack struct {
	Success bool
}

// AdaptList extracts records and total from a list payload.
// The total defaults to the number of records when the total key is absent.
func AdaptList(m resource.ResponseMap, body []byte) (List, error) {
	payload, err := decode(body)
	if err != nil {
		return List{}, failure.Adapter("list response is not valid JSON: %v", err)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return List{}, failure.Adapter("list response is not an object")
	}

	raw, ok := obj[m.DataKey]
	if !ok {
		return List{}, failure.Adapter("list response has no %q key", m.DataKey)
	}
	items, ok := raw.([]any)
	if !ok {
		return List{}, failure.Adapter("list response %q is not a sequence", m.DataKey)
	}

	records := make([]Record, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return List{}, failure.Adapter("list response %q[%d] is not an object", m.DataKey, i)
		}
		records[i] = rec
	}

	total := len(records)
	if rawTotal, ok := obj[m.TotalKey]; ok && rawTotal != nil {
		n, err := toInt(rawTotal)
		if err != nil {
			return List{}, failure.Adapter("list response %q: %v", m.TotalKey, err)
		}
		total = n
	}

	return List{Records: records, Total: total}, nil
}

// AdaptRecord treats the payload as the canonical record. When the payload
// carries a non-null error key it is an error payload regardless of HTTP
// status, and the problem is returned instead of a record. A null error
// key is ignored. An empty body yields an empty record.
func AdaptRecord(m resource.ResponseMap, body []byte) (Record, *Problem, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Record{}, nil, nil
	}

	payload, err := decode(body)
	if err != nil {
		return nil, nil, failure.Adapter("record response is not valid JSON: %v", err)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, nil, failure.Adapter("record response is not an object")
	}

	if obj[m.ErrorKey] != nil {
		return nil, extract(m, obj), nil
	}

	return obj, nil, nil
}

// AdaptDelete reads a delete acknowledgement. An empty body, any object and
// true acknowledge success; the literal false or {"success": false} do not.
// Any other content is ignored.
func AdaptDelete(body []byte) Ack {
	payload, err := decode(body)
	if err != nil || payload == nil {
		return Ack{Success: true}
	}

	switch v := payload.(type) {
	case bool:
		return Ack{Success: v}
	case map[string]any:
		if s, ok := v["success"].(bool); ok {
			return Ack{Success: s}
		}
	}
	return Ack{Success: true}
}

// ExtractError extracts a problem from an error payload. It returns nil when
// the payload carries neither the error key nor the message key.
func ExtractError(m resource.ResponseMap, body []byte) *Problem {
	payload, err := decode(body)
	if err != nil {
		return nil
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	return extract(m, obj)
}

func extract(m resource.ResponseMap, obj map[string]any) *Problem {
	if raw, ok := obj[m.ErrorKey]; ok && raw != nil {
		p := &Problem{Fields: fieldErrors(raw)}
		if msg, ok := obj[m.MessageKey].(string); ok {
			p.Message = msg
		}
		return p
	}
	if msg, ok := obj[m.MessageKey].(string); ok && msg != "" {
		return &Problem{Message: msg}
	}
	return nil
}

// fieldErrors converts the many shapes backends use for validation errors:
//
//	"message"
//	["message", ...]
//	[{"field": "email", "message": "taken"}, ...]
//	{"email": "taken", "name": ["too short", "required"]}
func fieldErrors(raw any) []failure.FieldError {
	switch v := raw.(type) {
	case string:
		return []failure.FieldError{{Message: v}}
	case []any:
		out := make([]failure.FieldError, 0, len(v))
		for _, item := range v {
			out = append(out, itemError(item))
		}
		return out
	case map[string]any:
		fields := make([]string, 0, len(v))
		for k := range v {
			fields = append(fields, k)
		}
		sort.Strings(fields)

		var out []failure.FieldError
		for _, field := range fields {
			switch msgs := v[field].(type) {
			case []any:
				for _, msg := range msgs {
					out = append(out, failure.FieldError{Field: field, Message: text(msg)})
				}
			default:
				out = append(out, failure.FieldError{Field: field, Message: text(msgs)})
			}
		}
		return out
	}
	return []failure.FieldError{{Message: text(raw)}}
}

func itemError(item any) failure.FieldError {
	obj, ok := item.(map[string]any)
	if !ok {
		return failure.FieldError{Message: text(item)}
	}

	var fe failure.FieldError
	for _, k := range []string{"field", "path", "key", "name"} {
		if s, ok := obj[k].(string); ok && s != "" {
			fe.Field = s
			break
		}
	}
	for _, k := range []string{"message", "msg", "error", "detail"} {
		if s, ok := obj[k].(string); ok && s != "" {
			fe.Message = s
			break
		}
	}
	if fe.Message == "" {
		fe.Message = text(item)
	}
	return fe
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%s is not an integer", n)
		}
		return int(f), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%v is not an integer", v)
}
