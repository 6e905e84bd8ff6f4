// Package schema models the declarative JSON Schema documents that describe
// each admin table: its ordered fields, their types, formats, widgets and
// validation bounds.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Field types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Formats.
const (
	FormatDateTime = "date-time"
	FormatDate     = "date"
	FormatEmail    = "email"
	FormatURI      = "uri"
	FormatRichText = "rich_text"
)

// Widgets.
const (
	WidgetRichText = "rich_text"
	WidgetTextarea = "textarea"
	WidgetFileURL  = "file_url"
	WidgetMediaURL = "media_url"
	WidgetWebURL   = "web_url"
	WidgetCheckbox = "checkbox"
)

// Columns the store manages itself.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Field describes one column. Name is the property key and is not part of
// the JSON body.
type Field struct {
	Name        string   `json:"-"`
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Format      string   `json:"format,omitempty"`
	Widget      string   `json:"widget,omitempty"`
	ReadOnly    bool     `json:"readOnly,omitempty"`
	PrimaryKey  bool     `json:"primaryKey,omitempty"`
	Unique      bool     `json:"unique,omitempty"`
	Index       bool     `json:"index,omitempty"`
	Enum        []any    `json:"enum,omitempty"`
	EnumNames   []string `json:"enumNames,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Label is the display title, falling back to the property name.
func (f *Field) Label() string {
	if f.Title != "" {
		return f.Title
	}
	if f.Name != "" {
		return f.Name
	}
	return "Field"
}

// BaseType returns the declared type, or string for anything outside the
// four supported types.
func (f *Field) BaseType() string {
	switch f.Type {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		return f.Type
	}
	return TypeString
}

// Immutable reports whether the field is never editable nor sent on writes.
func (f *Field) Immutable() bool {
	return f.ReadOnly || f.PrimaryKey
}

// IsBooleanFlag reports whether an integer field is presented as a 0/1
// toggle: its title mentions active, enabled or sent, or its enum has
// exactly two members.
func (f *Field) IsBooleanFlag() bool {
	if f.BaseType() != TypeInteger {
		return false
	}
	title := strings.ToLower(f.Label())
	for _, kw := range []string{"active", "enabled", "sent"} {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return len(f.Enum) == 2
}

// IsTimestamp reports whether values are stored as ISO timestamps.
func (f *Field) IsTimestamp() bool {
	return f.Format == FormatDateTime || f.Format == FormatDate
}

// EnumOptions returns the enum values as strings with their display names.
func (f *Field) EnumOptions() []Option {
	opts := make([]Option, 0, len(f.Enum))
	for i, v := range f.Enum {
		o := Option{Value: fmt.Sprint(v)}
		o.Label = o.Value
		if i < len(f.EnumNames) && f.EnumNames[i] != "" {
			o.Label = f.EnumNames[i]
		}
		opts = append(opts, o)
	}
	return opts
}

// Option is one enum choice.
type Option struct {
	Value string
	Label string
}

// DefaultValue returns Default normalised to the field's type. Whole JSON
// numbers become int64 on integer fields.
func (f *Field) DefaultValue() any {
	if f.Default == nil {
		return nil
	}
	v, err := f.Normalize(f.Default)
	if err != nil {
		return f.Default
	}
	return v
}

// Normalize converts a decoded JSON value to the Go type bound for the
// field's column: int64 for integer, float64 for number, bool for boolean
// and string for string. nil passes through.
func (f *Field) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.BaseType() {
	case TypeInteger:
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			if b, isBool := v.(bool); isBool {
				return boolToInt(b), nil
			}
			return nil, fmt.Errorf("must be an integer")
		}
		return int64(n), nil
	case TypeNumber:
		n, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("must be a number")
		}
		return n, nil
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		}
		if n, ok := toFloat(v); ok && (n == 0 || n == 1) {
			return n == 1, nil
		}
		return nil, fmt.Errorf("must be a boolean")
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return s, nil
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Properties is the ordered field list of a schema. It decodes from and
// encodes to a JSON object, keeping document order.
type Properties []*Field

func (p *Properties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	var out Properties
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var f Field
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("properties.%s: %w", name, err)
		}
		f.Name = name
		out = append(out, &f)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Schema describes one table.
type Schema struct {
	ID          string     `json:"$id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"`
	Required    []string   `json:"required"`
	Properties  Properties `json:"properties"`
}

const urnPrefix = "urn:table:"

// Name is the table identifier: the $id without its urn:table: prefix.
func (s *Schema) Name() string {
	return strings.TrimPrefix(s.ID, urnPrefix)
}

// DisplayTitle falls back to the table name.
func (s *Schema) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name()
}

// Field looks up a property by name.
func (s *Schema) Field(name string) *Field {
	for _, f := range s.Properties {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Has reports whether name is a declared column.
func (s *Schema) Has(name string) bool {
	return s.Field(name) != nil
}

// Columns returns every property name in document order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.Properties))
	for i, f := range s.Properties {
		cols[i] = f.Name
	}
	return cols
}

// ImplicitTimestamps returns created_at and updated_at fields for the ones
// s does not declare. Every table carries both columns.
func (s *Schema) ImplicitTimestamps() []*Field {
	var out []*Field
	for _, ts := range []string{ColumnCreatedAt, ColumnUpdatedAt} {
		if !s.Has(ts) {
			out = append(out, &Field{Name: ts, Type: TypeString, Format: FormatDateTime, ReadOnly: true})
		}
	}
	return out
}

// IsRequired reports whether name is listed in required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Editable returns the fields a form may change.
func (s *Schema) Editable() []*Field {
	var out []*Field
	for _, f := range s.Properties {
		if !f.Immutable() {
			out = append(out, f)
		}
	}
	return out
}

// Filterable returns the columns searched by the admin table's search box:
// editable string and integer fields other than the timestamps.
func (s *Schema) Filterable() []string {
	var out []string
	for _, f := range s.Properties {
		if f.Immutable() || f.Name == ColumnCreatedAt || f.Name == ColumnUpdatedAt {
			continue
		}
		if t := f.BaseType(); t == TypeString || t == TypeInteger {
			out = append(out, f.Name)
		}
	}
	return out
}

// Sortable returns the columns the admin table offers as sort keys.
func (s *Schema) Sortable() []string {
	var out []string
	for _, f := range s.Properties {
		switch f.BaseType() {
		case TypeString, TypeInteger, TypeNumber:
			out = append(out, f.Name)
		}
	}
	return out
}

// Parse decodes one schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if s.Name() == "" {
		return nil, fmt.Errorf("parse schema: missing $id")
	}
	for _, r := range s.Required {
		if !s.Has(r) {
			return nil, fmt.Errorf("schema %s: required field %q is not a property", s.Name(), r)
		}
	}
	return &s, nil
}
