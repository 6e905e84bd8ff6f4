package field

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

var (
	richTextPolicy = bluemonday.UGCPolicy()
	stripPolicy    = bluemonday.StrictPolicy()
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
	storedDateTime = "2006-01-02T15:04:05.000Z"
)

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateTimeLayout,
	dateLayout,
}

// Encode converts raw input text into the value stored for f. Empty input
// is "" for text and date kinds and nil for integer, number and select.
func Encode(f *schema.Field, raw string) (any, error) {
	switch Resolve(f) {
	case KindRichText:
		return SanitizeHTML(raw), nil
	case KindUpload, KindEmail, KindURL:
		return strings.TrimSpace(raw), nil
	case KindDate:
		return encodeDate(f, raw)
	case KindCheckbox:
		b, err := parseBool(raw)
		if err != nil {
			return nil, err
		}
		return toggleValue(f, b), nil
	case KindFlag:
		b, err := parseBool(raw)
		if err != nil {
			return nil, err
		}
		return boolToInt(b), nil
	case KindInteger:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return n, nil
	case KindNumber:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("must be a number")
		}
		return n, nil
	case KindSelect:
		if raw == "" {
			return nil, nil
		}
		for _, v := range f.Enum {
			if fmt.Sprint(v) == raw {
				return f.Normalize(v)
			}
		}
		return nil, fmt.Errorf("must be one of the listed values")
	default:
		return raw, nil
	}
}

func encodeDate(f *schema.Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	t, ok := parseTime(raw)
	if !ok {
		return nil, fmt.Errorf("must be a valid date")
	}
	if f.Format == schema.FormatDate {
		return t.Format(dateLayout) + "T00:00:00.000Z", nil
	}
	return t.Truncate(time.Minute).Format(storedDateTime), nil
}

// parseTime accepts the stored layouts and the browser input layouts.
// Values without a zone are taken as UTC.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "off", "no":
		return false, nil
	case "1", "true", "on", "yes":
		return true, nil
	}
	return false, fmt.Errorf("must be true or false")
}

// Decode turns a stored value into the text an input of f shows.
func Decode(f *schema.Field, v any) string {
	if v == nil {
		return ""
	}
	switch Resolve(f) {
	case KindDate:
		t, ok := asTime(v)
		if !ok {
			return fmt.Sprint(v)
		}
		if f.Format == schema.FormatDate {
			return t.Format(dateLayout)
		}
		return t.Format(dateTimeLayout)
	case KindCheckbox, KindFlag:
		return strconv.FormatBool(Truthy(v))
	}
	return formatScalar(v)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		return parseTime(t)
	}
	return time.Time{}, false
}

func formatScalar(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(n, 10)
	case []byte:
		return string(n)
	}
	return fmt.Sprint(v)
}

// Truthy interprets the usual boolean encodings: bool, non-zero numbers and
// "1"/"true".
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		ok, _ := parseBool(b)
		return ok
	}
	return false
}

// SanitizeHTML keeps the markup a rich text editor produces and drops
// scripts, handlers and unknown elements.
func SanitizeHTML(s string) string {
	return richTextPolicy.Sanitize(s)
}

// StripTags removes all markup and unescapes entities.
func StripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// Display renders v for a read-only table cell.
func Display(f *schema.Field, v any) string {
	if v == nil {
		return "-"
	}
	if f.BaseType() == schema.TypeBoolean || f.IsBooleanFlag() {
		if Truthy(v) {
			return "Yes"
		}
		return "No"
	}
	s := formatScalar(v)
	switch {
	case f.Widget == schema.WidgetRichText || f.Format == schema.FormatRichText:
		return Truncate(strings.TrimSpace(StripTags(s)), 100)
	case f.Widget == schema.WidgetFileURL || f.Widget == schema.WidgetMediaURL:
		if s == "" {
			return "-"
		}
		return "View File"
	case f.Format == schema.FormatURI || f.Widget == schema.WidgetWebURL:
		return Truncate(s, 30)
	case f.IsTimestamp():
		if t, ok := asTime(v); ok {
			return t.Format(dateLayout)
		}
		return s
	}
	return Truncate(s, 50)
}

// Truncate shortens s to n runes followed by "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
