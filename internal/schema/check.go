package schema

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// IsEmpty reports whether v counts as missing for a required field.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Check validates one value against the field's type and bounds. It returns
// the message to show next to the field, or "" when the value is
// acceptable. Empty values always pass; required-ness is checked by
// Validate.
func (f *Field) Check(v any) string {
	if v == nil {
		return ""
	}
	norm, err := f.Normalize(v)
	if err != nil {
		return err.Error()
	}
	switch x := norm.(type) {
	case string:
		if x == "" {
			return ""
		}
		n := utf8.RuneCountInString(x)
		if f.MinLength != nil && n < *f.MinLength {
			return fmt.Sprintf("must be at least %d characters", *f.MinLength)
		}
		if f.MaxLength != nil && n > *f.MaxLength {
			return fmt.Sprintf("must be at most %d characters", *f.MaxLength)
		}
	case int64:
		return f.checkRange(decimal.NewFromInt(x))
	case float64:
		return f.checkRange(decimal.NewFromFloat(x))
	}
	return ""
}

func (f *Field) checkRange(d decimal.Decimal) string {
	if f.Minimum != nil && d.LessThan(decimal.NewFromFloat(*f.Minimum)) {
		return fmt.Sprintf("must be at least %s", decimal.NewFromFloat(*f.Minimum))
	}
	if f.Maximum != nil && d.GreaterThan(decimal.NewFromFloat(*f.Maximum)) {
		return fmt.Sprintf("must be at most %s", decimal.NewFromFloat(*f.Maximum))
	}
	return ""
}

// Validate checks values against the schema and returns field → message
// for every violation. With partial set, required fields are only checked
// when present in values (update semantics); otherwise every editable
// required field must be non-empty (create semantics). Keys that are not
// declared properties are reported as unknown.
func (s *Schema) Validate(values map[string]any, partial bool) map[string]string {
	problems := map[string]string{}
	for name, v := range values {
		f := s.Field(name)
		if f == nil {
			problems[name] = "is not a column of " + s.Name()
			continue
		}
		if s.IsRequired(name) && !f.Immutable() && IsEmpty(v) {
			problems[name] = "is required"
			continue
		}
		if msg := f.Check(v); msg != "" {
			problems[name] = msg
		}
	}
	if !partial {
		for _, name := range s.Required {
			f := s.Field(name)
			if f == nil || f.Immutable() {
				continue
			}
			if _, seen := problems[name]; seen {
				continue
			}
			if IsEmpty(values[name]) {
				problems[name] = "is required"
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}
