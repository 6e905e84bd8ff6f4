package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/ddl"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/notify"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
)

type queue struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (q *queue) Enqueue(n notify.Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.got = append(q.got, n)
	return true
}

func setup(t *testing.T) (*Service, *store.Store, *sql.DB, *queue) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	reg, err := schema.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	if err := ddl.Migrate(context.Background(), db, dialect.SQLite(), reg.All()); err != nil {
		t.Fatal(err)
	}
	st := store.New(db, dialect.SQLite(), reg)
	q := &queue{}
	return NewService(st, q), st, db, q
}

func mustCreate(t *testing.T, st *store.Store, table string, row map[string]any) int64 {
	t.Helper()
	id, err := st.Create(context.Background(), table, row)
	if err != nil {
		t.Fatalf("create %s: %v", table, err)
	}
	return id
}

func TestNewsOrderedByPublicationDate(t *testing.T) {
	svc, st, _, _ := setup(t)
	ctx := context.Background()
	for _, d := range []string{"2025-01-01T00:00:00.000Z", "2025-03-01T00:00:00.000Z", "2025-02-01T00:00:00.000Z"} {
		mustCreate(t, st, "news", map[string]any{"title": d, "body_html": "<p>x</p>", "publication_date": d})
	}
	rows, err := svc.List(ctx, "news")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2025-03-01T00:00:00.000Z", "2025-02-01T00:00:00.000Z", "2025-01-01T00:00:00.000Z"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows", len(rows))
	}
	for i, r := range rows {
		if r["title"] != want[i] {
			t.Errorf("row %d = %v, want %s", i, r["title"], want[i])
		}
	}
}

func TestSponsorsOnlyActive(t *testing.T) {
	svc, st, _, _ := setup(t)
	sponsor := func(name string, order, active int) {
		mustCreate(t, st, "sponsors", map[string]any{
			"name": name, "logo_url": "/files/x.png", "website_url": "https://example.com",
			"display_order": order, "is_active": active,
		})
	}
	sponsor("late", 2, 1)
	sponsor("hidden", 0, 0)
	sponsor("first", 1, 1)

	rows, err := svc.List(context.Background(), "sponsors")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["name"] != "first" || rows[1]["name"] != "late" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestListDegradesOnStoreError(t *testing.T) {
	svc, _, db, _ := setup(t)
	if _, err := db.Exec(`DROP TABLE "events"`); err != nil {
		t.Fatal(err)
	}
	rows, err := svc.List(context.Background(), "events")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("rows = %v, want empty", rows)
	}
	b, _ := json.Marshal(rows)
	if string(b) != "[]" {
		t.Fatalf("json = %s", b)
	}
}

func TestUnknownFeed(t *testing.T) {
	svc, _, _, _ := setup(t)
	if _, err := svc.List(context.Background(), "podcasts"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestBySlug(t *testing.T) {
	svc, st, _, _ := setup(t)
	ctx := context.Background()
	id := mustCreate(t, st, "blogposts", map[string]any{"title": "Hello", "slug": "hello", "body_html": "<p>hi</p>"})

	row, err := svc.BySlug(ctx, "blog", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if row.ID() != id {
		t.Fatalf("id = %v, want %d", row.ID(), id)
	}
	for _, tc := range []struct{ feed, slug string }{
		{"blog", "missing"},
		{"blog", ""},
		{"sponsors", "hello"},
	} {
		if _, err := svc.BySlug(ctx, tc.feed, tc.slug); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("%s/%s: err = %v", tc.feed, tc.slug, err)
		}
	}
}

func decodeSubmission(t *testing.T, body string) models.Submission {
	t.Helper()
	var sub models.Submission
	if err := json.Unmarshal([]byte(body), &sub); err != nil {
		t.Fatal(err)
	}
	return sub
}

func TestSubmitContact(t *testing.T) {
	svc, st, _, q := setup(t)
	ctx := context.Background()
	sub := decodeSubmission(t, `{"formId":"contact_form","name":"Ana","email":"ana@example.com","message":"Olá"}`)

	id, err := svc.Submit(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	row, err := st.FindOne(ctx, "contact_submissions", "id", id)
	if err != nil {
		t.Fatal(err)
	}
	if row["uniqueness_check"] != "ana@example.com" {
		t.Errorf("uniqueness_check = %v", row["uniqueness_check"])
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(row["form_data"].(string)), &data); err != nil {
		t.Fatal(err)
	}
	if data["message"] != "Olá" || data["formId"] != nil {
		t.Errorf("form_data = %v", data)
	}
	if len(q.got) != 1 || q.got[0].RowID != id || q.got[0].Table != "contact_submissions" {
		t.Fatalf("notifications = %+v", q.got)
	}
}

func TestSubmitBooking(t *testing.T) {
	svc, st, _, _ := setup(t)
	ctx := context.Background()
	sub := decodeSubmission(t, `{"formId":"event_booking","telefone":"+351 900","event_id":4}`)

	id, err := svc.Submit(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	row, err := st.FindOne(ctx, "eventbookings", "id", id)
	if err != nil {
		t.Fatal(err)
	}
	if row["uniqueness_check"] != "+351 900" || row["event_id"] != int64(4) {
		t.Fatalf("row = %v", row)
	}
}

func TestSubmitUnknownForm(t *testing.T) {
	svc, st, _, q := setup(t)
	ctx := context.Background()
	id, err := svc.Submit(ctx, decodeSubmission(t, `{"formId":"newsletter","email":"a@b.c"}`))
	if err != nil || id != 0 {
		t.Fatalf("id = %d, err = %v", id, err)
	}
	for _, table := range []string{"contact_submissions", "eventbookings"} {
		res, err := st.List(ctx, table, models.ListQuery{})
		if err != nil {
			t.Fatal(err)
		}
		if res.Total != 0 {
			t.Errorf("%s has %d rows", table, res.Total)
		}
	}
	if len(q.got) != 0 {
		t.Fatalf("unexpected notifications %+v", q.got)
	}
}
