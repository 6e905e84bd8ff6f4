package form

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

func sponsors(t *testing.T) *schema.Schema {
	t.Helper()
	r, err := schema.Builtin()
	if err != nil {
		t.Fatalf("builtin schemas: %v", err)
	}
	s, err := r.Get("sponsors")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type recordingSubmitter struct {
	calls   int
	table   string
	id      string
	payload map[string]any
	err     error
}

func (r *recordingSubmitter) Create(ctx context.Context, table string, payload map[string]any) (int64, error) {
	r.calls++
	r.table, r.payload = table, payload
	return 41, r.err
}

func (r *recordingSubmitter) Update(ctx context.Context, table, id string, payload map[string]any) error {
	r.calls++
	r.table, r.id, r.payload = table, id, payload
	return r.err
}

func TestBuildCreateUsesDefaults(t *testing.T) {
	st := Build(sponsors(t), nil)
	if st.Mode != ModeCreate {
		t.Fatalf("mode = %v", st.Mode)
	}
	if st.Values["is_active"] != int64(1) || st.Values["display_order"] != int64(0) {
		t.Fatalf("defaults not applied: %v", st.Values)
	}
	for _, name := range []string{"id", "created_at", "updated_at"} {
		if _, ok := st.Values[name]; ok {
			t.Errorf("create form carries immutable field %s", name)
		}
	}
	if st.Dirty() {
		t.Fatal("fresh form is dirty")
	}
}

func TestOnFieldChangeIsPure(t *testing.T) {
	st := Build(sponsors(t), nil)
	next := st.OnFieldChange("name", "")
	if next.Errors["name"] != "is required" {
		t.Fatalf("errors = %v", next.Errors)
	}
	if _, ok := st.Errors["name"]; ok {
		t.Fatal("receiver state was mutated")
	}
	fixed := next.OnFieldChange("name", "Banco X")
	if _, ok := fixed.Errors["name"]; ok {
		t.Fatalf("error not cleared: %v", fixed.Errors)
	}
	if !fixed.Dirty() {
		t.Fatal("changed form should be dirty")
	}
	if same := fixed.OnFieldChange("id", int64(9)); same.Values["id"] != nil {
		t.Fatal("immutable field accepted a change")
	}
}

func TestSetInputEncodes(t *testing.T) {
	st := Build(sponsors(t), nil)
	st = st.SetInput("display_order", "x")
	if st.Errors["display_order"] != "must be an integer" {
		t.Fatalf("errors = %v", st.Errors)
	}
	st = st.SetInput("display_order", "3")
	if st.Values["display_order"] != int64(3) || st.Errors["display_order"] != "" {
		t.Fatalf("state = %v %v", st.Values, st.Errors)
	}

	posted := url.Values{"name": {"Banco X"}, "website_url": {"https://x"}}
	st = st.SetInputs(posted)
	if st.Values["is_active"] != int64(0) {
		t.Fatalf("unchecked flag = %v", st.Values["is_active"])
	}
}

func TestSubmitRejectsInvalidWithoutNetwork(t *testing.T) {
	sub := &recordingSubmitter{}
	st := Build(sponsors(t), nil)
	_, err := st.Submit(context.Background(), sub)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	var e *errs.Error
	if !errors.As(err, &e) || e.Fields["logo_url"] != "is required" {
		t.Fatalf("fields = %v", e)
	}
	if sub.calls != 0 {
		t.Fatal("submitter called for an invalid form")
	}
}

func TestSubmitCreateStripsImmutableFields(t *testing.T) {
	sub := &recordingSubmitter{}
	st := Build(sponsors(t), nil)
	st = st.OnFieldChange("name", "Banco X").
		OnFieldChange("logo_url", "https://x/y.png").
		OnFieldChange("website_url", "https://x")
	st.Values["id"] = int64(99)
	st.Values["created_at"] = "2020-01-01T00:00:00.000Z"

	res, err := st.Submit(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != 41 || res.Mode != ModeCreate || sub.table != "sponsors" {
		t.Fatalf("result = %+v table = %s", res, sub.table)
	}
	for _, name := range []string{"id", "created_at", "updated_at"} {
		if _, ok := sub.payload[name]; ok {
			t.Errorf("payload carries %s", name)
		}
	}
	if sub.payload["is_active"] != int64(1) {
		t.Fatalf("payload = %v", sub.payload)
	}
}

func TestSubmitEdit(t *testing.T) {
	row := models.TableRow{
		"id": int64(7), "name": "Old", "logo_url": "/files/a", "website_url": "https://a",
		"description": "", "display_order": int64(0), "is_active": int64(1),
		"created_at": "2025-01-01T00:00:00.000Z", "updated_at": "2025-01-01T00:00:00.000Z",
	}
	st := Build(sponsors(t), row)
	if st.CanSubmit() {
		t.Fatal("unchanged edit form should not be submittable")
	}
	st = st.OnFieldChange("name", "New")
	if !st.CanSubmit() {
		t.Fatalf("edit form not submittable: %v", st.Validate().Errors)
	}
	sub := &recordingSubmitter{}
	res, err := st.Submit(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if sub.id != "7" || res.ID != 7 || res.Mode != ModeEdit {
		t.Fatalf("update id = %s, result = %+v", sub.id, res)
	}
	if _, ok := sub.payload["created_at"]; ok {
		t.Fatal("payload carries created_at")
	}
}

func TestDirtyComparesInColumnType(t *testing.T) {
	row := models.TableRow{
		"id": float64(7), "name": "Acme", "logo_url": "/files/a", "website_url": "https://a",
		"description": "", "display_order": float64(3), "is_active": float64(1),
	}
	st := Build(sponsors(t), row)
	st = st.SetInput("display_order", "3").SetInput("is_active", "on")
	if st.Values["display_order"] != int64(3) {
		t.Fatalf("display_order = %#v", st.Values["display_order"])
	}
	if st.Dirty() || st.CanSubmit() {
		t.Fatal("re-entering the loaded values marked the form dirty")
	}
	if st = st.SetInput("display_order", "4"); !st.Dirty() {
		t.Fatal("changed value not dirty")
	}
}

func TestCheckboxOnStringColumn(t *testing.T) {
	sc, err := schema.Parse([]byte(`{
		"$id": "urn:table:flags",
		"type": "object",
		"properties": {
			"id": {"type": "integer", "readOnly": true, "primaryKey": true},
			"featured": {"type": "string", "widget": "checkbox"}
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	st := Build(sc, nil).SetInput("featured", "on")
	if st.Values["featured"] != "true" || st.Errors["featured"] != "" {
		t.Fatalf("value = %#v errors = %v", st.Values["featured"], st.Errors)
	}
	if !st.CanSubmit() {
		t.Fatalf("form not submittable: %v", st.Validate().Errors)
	}
	sub := &recordingSubmitter{}
	if _, err := st.Submit(context.Background(), sub); err != nil {
		t.Fatal(err)
	}
	if sub.payload["featured"] != "true" {
		t.Fatalf("payload = %v", sub.payload)
	}
}

func TestSubmitPropagatesStoreError(t *testing.T) {
	sub := &recordingSubmitter{err: errs.Store("sponsors", errors.New("disk full"))}
	st := Build(sponsors(t), nil).
		OnFieldChange("name", "A").
		OnFieldChange("logo_url", "/files/a").
		OnFieldChange("website_url", "https://a")
	if _, err := st.Submit(context.Background(), sub); !errors.Is(err, errs.ErrStore) {
		t.Fatalf("err = %v", err)
	}
}

func TestHTML(t *testing.T) {
	st := Build(sponsors(t), nil).Validate()
	out, err := st.HTML("/admin/forms/sponsors", nil)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	for _, want := range []string{`action="/admin/forms/sponsors"`, `New Sponsors`, `data-upload="/api/upload/media"`, `name="is_active" type="checkbox" value="1" checked`, `disabled>Create`} {
		if !strings.Contains(s, want) {
			t.Errorf("form HTML missing %q", want)
		}
	}
	if strings.Contains(s, `name="id"`) {
		t.Error("create form renders the primary key")
	}
}
