// Package field resolves a schema field to the control that edits it and
// to the value encoding that control applies.
//
// Resolution walks an ordered rule table; the first matching predicate
// wins. Several predicates overlap (an integer "Is Active" column with a
// two-member enum satisfies the flag, integer and enum rules) so the order
// of the table is significant.
package field

import (
	"strings"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// Kind is the control variant a field resolves to.
type Kind uint8

const (
	KindReadOnly Kind = iota
	KindRichText
	KindUpload
	KindDate
	KindCheckbox
	KindFlag
	KindInteger
	KindNumber
	KindEmail
	KindURL
	KindTextArea
	KindSelect
	KindText
)

var kindNames = [...]string{
	KindReadOnly: "readonly",
	KindRichText: "richtext",
	KindUpload:   "upload",
	KindDate:     "date",
	KindCheckbox: "checkbox",
	KindFlag:     "flag",
	KindInteger:  "integer",
	KindNumber:   "number",
	KindEmail:    "email",
	KindURL:      "url",
	KindTextArea: "textarea",
	KindSelect:   "select",
	KindText:     "text",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "text"
}

// Toggle reports whether the kind renders as a two-state switch.
func (k Kind) Toggle() bool {
	return k == KindCheckbox || k == KindFlag
}

type rule struct {
	kind  Kind
	match func(f *schema.Field) bool
}

var rules = []rule{
	{KindReadOnly, func(f *schema.Field) bool { return f.Immutable() }},
	{KindRichText, func(f *schema.Field) bool {
		return isString(f) && (f.Widget == schema.WidgetRichText || f.Format == schema.FormatRichText)
	}},
	{KindUpload, func(f *schema.Field) bool {
		if !isString(f) {
			return false
		}
		if f.Widget == schema.WidgetFileURL || f.Widget == schema.WidgetMediaURL {
			return true
		}
		return f.Format == schema.FormatURI && titleHas(f, "image", "file")
	}},
	{KindDate, func(f *schema.Field) bool { return isString(f) && f.IsTimestamp() }},
	{KindCheckbox, func(f *schema.Field) bool {
		return f.BaseType() == schema.TypeBoolean || f.Widget == schema.WidgetCheckbox
	}},
	{KindFlag, func(f *schema.Field) bool { return f.IsBooleanFlag() }},
	{KindInteger, func(f *schema.Field) bool { return f.BaseType() == schema.TypeInteger }},
	{KindNumber, func(f *schema.Field) bool { return f.BaseType() == schema.TypeNumber }},
	{KindEmail, func(f *schema.Field) bool { return isString(f) && f.Format == schema.FormatEmail }},
	{KindURL, func(f *schema.Field) bool {
		return isString(f) && (f.Format == schema.FormatURI || f.Widget == schema.WidgetWebURL)
	}},
	{KindTextArea, func(f *schema.Field) bool {
		return isString(f) && (f.Widget == schema.WidgetTextarea || (f.MaxLength != nil && *f.MaxLength > 255))
	}},
	{KindSelect, func(f *schema.Field) bool { return len(f.Enum) > 0 }},
}

// Resolve returns the control kind for f.
func Resolve(f *schema.Field) Kind {
	for _, r := range rules {
		if r.match(f) {
			return r.kind
		}
	}
	return KindText
}

// IsMedia reports whether an upload field goes to the media endpoint.
func IsMedia(f *schema.Field) bool {
	return f.Widget == schema.WidgetMediaURL || titleHas(f, "image")
}

func isString(f *schema.Field) bool {
	return f.BaseType() == schema.TypeString
}

func titleHas(f *schema.Field, words ...string) bool {
	title := strings.ToLower(f.Title)
	for _, w := range words {
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}
