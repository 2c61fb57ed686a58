package formatter

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatList formats records as {"count": N, "data": [...]}.
func (f *JSONFormatter) FormatList(w io.Writer, columns []string, records []map[string]any, opts FormatOptions) error {
	rows := project(columns, records)

	enc := json.NewEncoder(w)
	if !opts.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(map[string]any{
		"count": len(rows),
		"data":  rows,
	})
}

func init() {
	Register(NewJSONFormatter())
}
