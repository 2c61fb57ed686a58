package formatter

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatList formats records as a YAML document with count and data keys.
func (f *YAMLFormatter) FormatList(w io.Writer, columns []string, records []map[string]any, opts FormatOptions) error {
	rows := project(columns, records)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{
		"count": len(rows),
		"data":  rows,
	}); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	Register(NewYAMLFormatter())
}
