package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Optional modules.
const (
	ModuleMetrics = "metrics"
	ModuleDemo    = "demo"
)

// KnownModules lists every module name accepted in the modules list.
func KnownModules() []string {
	return []string{ModuleMetrics, ModuleDemo}
}

// ModuleEntry is one entry of the modules list. In YAML it is either a
// bare name or a two-element sequence of name and options:
//
//	modules:
//	  - metrics
//	  - [demo, {path: /demo, dsn: demo.db}]
type ModuleEntry struct {
	Name    string
	Options map[string]any

	// WithOptions records that the entry was written in sequence form,
	// which may carry an empty options map.
	WithOptions bool
}

// UnmarshalYAML decodes the scalar and sequence forms.
func (m *ModuleEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		*m = ModuleEntry{Name: name}
		return nil

	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: module entry must be [name, options], got %d elements", node.Line, len(node.Content))
		}
		var name string
		if err := node.Content[0].Decode(&name); err != nil {
			return fmt.Errorf("line %d: module name: %w", node.Line, err)
		}
		var opts map[string]any
		if err := node.Content[1].Decode(&opts); err != nil {
			return fmt.Errorf("line %d: module %q options: %w", node.Line, name, err)
		}
		if opts == nil {
			opts = map[string]any{}
		}
		*m = ModuleEntry{Name: name, Options: opts, WithOptions: true}
		return nil
	}
	return fmt.Errorf("line %d: module entry must be a name or [name, options]", node.Line)
}

// MarshalYAML encodes the entry in the form it was read in. Entries built
// in code use the sequence form only when they carry options.
func (m ModuleEntry) MarshalYAML() (any, error) {
	if !m.WithOptions && len(m.Options) == 0 {
		return m.Name, nil
	}
	opts := m.Options
	if opts == nil {
		opts = map[string]any{}
	}
	return []any{m.Name, opts}, nil
}

// Option returns a string option, or def when it is absent or not a string.
func (m ModuleEntry) Option(key, def string) string {
	if v, ok := m.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Modules is the ordered modules list.
type Modules []ModuleEntry

// HasModule reports whether the named module is enabled.
func (ms Modules) HasModule(name string) bool {
	_, ok := ms.Lookup(name)
	return ok
}

// Lookup returns the entry for the named module.
func (ms Modules) Lookup(name string) (ModuleEntry, bool) {
	for _, m := range ms {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleEntry{}, false
}

func (ms Modules) validate() error {
	known := make(map[string]bool)
	for _, name := range KnownModules() {
		known[name] = true
	}

	var errs []error
	seen := make(map[string]bool)
	for i, m := range ms {
		switch {
		case m.Name == "":
			errs = append(errs, fmt.Errorf("modules[%d]: name is required", i))
		case !known[m.Name]:
			errs = append(errs, fmt.Errorf("modules[%d]: unknown module %q", i, m.Name))
		case seen[m.Name]:
			errs = append(errs, fmt.Errorf("modules[%d]: module %q listed twice", i, m.Name))
		}
		seen[m.Name] = true
	}
	return errors.Join(errs...)
}
