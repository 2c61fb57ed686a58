package resource

// FilterType is the kind of a list filter.
type FilterType string

const (
	FilterText      FilterType = "text"
	FilterSelect    FilterType = "select"
	FilterBoolean   FilterType = "boolean"
	FilterDateRange FilterType = "daterange"
)

// Filter is a list-view filter.
//
// A daterange filter carries Params (a from/to parameter pair) and never
// Param; every other type carries Param and never Params.
type Filter struct {
	Key     string      `yaml:"key" json:"key"`
	Label   string      `yaml:"label,omitempty" json:"label"`
	Type    FilterType  `yaml:"type,omitempty" json:"type"`
	Param   string      `yaml:"param,omitempty" json:"param,omitempty"`
	Options []string    `yaml:"options,omitempty" json:"options,omitempty"`
	Params  *RangeParam `yaml:"params,omitempty" json:"params,omitempty"`
}

// RangeParam names the two query parameters of a daterange filter.
type RangeParam struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// IsRange reports whether the filter is a daterange filter.
func (f Filter) IsRange() bool {
	return f.Type == FilterDateRange
}

// ColumnType is the display type of a list column.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnDate     ColumnType = "date"
	ColumnDatetime ColumnType = "datetime"
	ColumnBadge    ColumnType = "badge"
	ColumnBoolean  ColumnType = "boolean"
	ColumnNumber   ColumnType = "number"
)

// Column is a list-view column.
type Column struct {
	Key      string      `yaml:"key" json:"key"`
	Label    string      `yaml:"label,omitempty" json:"label"`
	Type     ColumnType  `yaml:"type,omitempty" json:"type"`
	Sortable bool        `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	Badge    bool        `yaml:"badge,omitempty" json:"badge,omitempty"`
	Sort     *ColumnSort `yaml:"sort,omitempty" json:"sort,omitempty"`
}

// ColumnSort overrides how sorting by a column is sent to the backend:
// the column is sorted with Param=Asc or Param=Desc instead of the
// resource-wide sort/order pair.
type ColumnSort struct {
	Param string `yaml:"param" json:"param"`
	Asc   string `yaml:"asc" json:"asc"`
	Desc  string `yaml:"desc" json:"desc"`
}

// FieldType is the input type of a form field.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldEmail       FieldType = "email"
	FieldNumber      FieldType = "number"
	FieldPassword    FieldType = "password"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldDate        FieldType = "date"
	FieldDatetime    FieldType = "datetime"
	FieldBoolean     FieldType = "boolean"
	FieldTextarea    FieldType = "textarea"
)

// Field is a create/edit form field.
type Field struct {
	Key      string    `yaml:"key" json:"key"`
	Label    string    `yaml:"label,omitempty" json:"label"`
	Type     FieldType `yaml:"type,omitempty" json:"type"`
	Options  []string  `yaml:"options,omitempty" json:"options,omitempty"`
	Readonly bool      `yaml:"readonly,omitempty" json:"readonly,omitempty"`
	Required bool      `yaml:"required,omitempty" json:"required,omitempty"`
}

// Enumerated reports whether the field restricts values to Options.
func (f Field) Enumerated() bool {
	return (f.Type == FieldSelect || f.Type == FieldMultiselect) && len(f.Options) > 0
}

// ValidFilterType reports whether t is a known filter type.
func ValidFilterType(t FilterType) bool {
	switch t {
	case FilterText, FilterSelect, FilterBoolean, FilterDateRange:
		return true
	}
	return false
}

// ValidColumnType reports whether t is a known column type.
func ValidColumnType(t ColumnType) bool {
	switch t {
	case ColumnText, ColumnDate, ColumnDatetime, ColumnBadge, ColumnBoolean, ColumnNumber:
		return true
	}
	return false
}

// ValidFieldType reports whether t is a known field type.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldText, FieldEmail, FieldNumber, FieldPassword, FieldSelect,
		FieldMultiselect, FieldDate, FieldDatetime, FieldBoolean, FieldTextarea:
		return true
	}
	return false
}

// IsValidIdentifier reports whether s can be used as a column, field or
// filter key: a letter or underscore followed by letters, digits or underscores.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
