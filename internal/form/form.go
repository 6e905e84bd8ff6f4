// Package form assembles field controls into an editable record form. A
// State is a value: every change returns a new State and leaves the
// receiver untouched.
package form

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

type Mode uint8

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// State holds the values of an open form and the validation message of
// each failing field.
type State struct {
	Schema *schema.Schema
	Mode   Mode
	RowID  any
	Values map[string]any
	Errors map[string]string

	initial map[string]any
}

// Build opens a form. A nil row opens a create form initialised from each
// editable field's default; otherwise the form edits row.
func Build(s *schema.Schema, row models.TableRow) State {
	st := State{Schema: s, Values: map[string]any{}, Errors: map[string]string{}}
	if row == nil {
		st.Mode = ModeCreate
		for _, f := range s.Editable() {
			st.Values[f.Name] = initialValue(f)
		}
	} else {
		st.Mode = ModeEdit
		st.RowID = row.ID()
		for _, f := range s.Properties {
			if v, ok := row[f.Name]; ok {
				st.Values[f.Name] = v
			}
		}
	}
	st.initial = clone(st.Values)
	return st
}

// initialValue is the default, or the empty value the field's control
// would encode.
func initialValue(f *schema.Field) any {
	if v := f.DefaultValue(); v != nil {
		return v
	}
	v, err := field.Encode(f, "")
	if err != nil {
		return nil
	}
	return v
}

func clone[M ~map[K]V, K comparable, V any](m M) M {
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s State) copy() State {
	s.Values = clone(s.Values)
	s.Errors = clone(s.Errors)
	return s
}

// OnFieldChange returns a state with name set to value and that field
// revalidated. Immutable and unknown fields are ignored.
func (s State) OnFieldChange(name string, value any) State {
	f := s.Schema.Field(name)
	if f == nil || f.Immutable() {
		return s
	}
	next := s.copy()
	next.Values[name] = value
	if msg := s.check(f, value); msg != "" {
		next.Errors[name] = msg
	} else {
		delete(next.Errors, name)
	}
	return next
}

// SetInput encodes raw through the field's control and applies it. An
// encoding failure is recorded as the field's error and the value is kept.
func (s State) SetInput(name, raw string) State {
	f := s.Schema.Field(name)
	if f == nil || f.Immutable() {
		return s
	}
	v, err := field.Encode(f, raw)
	if err != nil {
		next := s.copy()
		next.Errors[name] = err.Error()
		return next
	}
	return s.OnFieldChange(name, v)
}

// SetInputs applies posted form values. Toggles missing from v are
// unchecked boxes and encode as off.
func (s State) SetInputs(v url.Values) State {
	for _, f := range s.Schema.Editable() {
		raw, ok := v[f.Name]
		switch {
		case ok && len(raw) > 0:
			s = s.SetInput(f.Name, raw[0])
		case field.Resolve(f).Toggle():
			s = s.SetInput(f.Name, "")
		}
	}
	return s
}

func (s State) check(f *schema.Field, v any) string {
	if s.Schema.IsRequired(f.Name) && schema.IsEmpty(v) {
		return "is required"
	}
	return f.Check(v)
}

// Validate returns a state with every editable field checked.
func (s State) Validate() State {
	next := s.copy()
	next.Errors = map[string]string{}
	for _, f := range s.Schema.Editable() {
		if msg := s.check(f, s.Values[f.Name]); msg != "" {
			next.Errors[f.Name] = msg
		}
	}
	return next
}

// Valid reports whether the state carries no field errors.
func (s State) Valid() bool {
	return len(s.Errors) == 0
}

// Dirty reports whether any editable value differs from when the form
// was opened.
func (s State) Dirty() bool {
	for _, f := range s.Schema.Editable() {
		if !sameValue(f, s.Values[f.Name], s.initial[f.Name]) {
			return true
		}
	}
	return false
}

// sameValue compares a and b in f's column type, so a float64 decoded
// from JSON equals the int64 an input produced.
func sameValue(f *schema.Field, a, b any) bool {
	na, errA := f.Normalize(a)
	nb, errB := f.Normalize(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

// CanSubmit reports whether Submit would reach the network. Edit forms
// additionally need a change.
func (s State) CanSubmit() bool {
	if !s.Validate().Valid() {
		return false
	}
	return s.Mode == ModeCreate || s.Dirty()
}

// Payload is the body sent on submit: every editable value, never a
// read-only or primary key field.
func (s State) Payload() map[string]any {
	out := make(map[string]any, len(s.Values))
	for name, v := range s.Values {
		f := s.Schema.Field(name)
		if f == nil || f.Immutable() {
			continue
		}
		out[name] = v
	}
	return out
}

// Submitter persists a form payload.
type Submitter interface {
	Create(ctx context.Context, table string, payload map[string]any) (int64, error)
	Update(ctx context.Context, table, id string, payload map[string]any) error
}

// Result describes a successful submit.
type Result struct {
	Mode Mode
	ID   int64
}

// Submit validates the form and sends its payload. Validation failures
// return a validation error without calling sub.
func (s State) Submit(ctx context.Context, sub Submitter) (Result, error) {
	if v := s.Validate(); !v.Valid() {
		return Result{}, errs.Validation(v.Errors)
	}
	table := s.Schema.Name()
	if s.Mode == ModeCreate {
		id, err := sub.Create(ctx, table, s.Payload())
		if err != nil {
			return Result{}, err
		}
		return Result{Mode: ModeCreate, ID: id}, nil
	}
	if s.RowID == nil {
		return Result{}, errs.BadRequest("edit form has no row id")
	}
	id := RowKey(s.RowID)
	if err := sub.Update(ctx, table, id, s.Payload()); err != nil {
		return Result{}, err
	}
	res := Result{Mode: ModeEdit}
	res.ID, _ = strconv.ParseInt(id, 10, 64)
	return res, nil
}

// RowKey formats a row id for use in a path. JSON-decoded ids arrive as
// float64 and must not be printed in exponent form.
func RowKey(id any) string {
	switch x := id.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return fmt.Sprint(id)
}

// Controls renders the form's fields in schema order. Create forms omit
// immutable fields. onChange receives every emitted value.
func (s State) Controls(u field.Uploader, onChange func(name string, v any)) []*field.Control {
	var out []*field.Control
	for _, f := range s.Schema.Properties {
		if s.Mode == ModeCreate && f.Immutable() {
			continue
		}
		name := f.Name
		var cb func(any)
		if onChange != nil {
			cb = func(v any) { onChange(name, v) }
		}
		c := field.Render(f, s.Values[name], cb)
		if u != nil {
			c.WithUploader(u)
		}
		c.Required = s.Schema.IsRequired(name) && !f.Immutable()
		c.Err = s.Errors[name]
		out = append(out, c)
	}
	return out
}
