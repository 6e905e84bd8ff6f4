// Package adminview drives the back-office table screen: which table is
// open, the current page of rows, sort, search, the record form and the
// delete confirmation. It holds no I/O of its own; every fetch goes
// through an API.
package adminview

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/form"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// API is the server surface the view needs.
type API interface {
	form.Submitter
	Schema(ctx context.Context, table string) (*schema.Schema, error)
	List(ctx context.Context, table string, q models.ListQuery) (models.ListResult, error)
	Delete(ctx context.Context, table, id string) error
	Export(ctx context.Context, table string, q models.ListQuery, w io.Writer) error
}

type Phase uint8

const (
	Idle Phase = iota
	Loading
	Loaded
	Errored
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	}
	return "idle"
}

// Snapshot is a consistent copy of the view for rendering.
type Snapshot struct {
	Table      string
	Schema     *schema.Schema
	Phase      Phase
	Rows       []models.TableRow
	Total      int
	Page       int
	Limit      int
	TotalPages int
	Sort       string
	Search     string
	// Banner holds the last fetch or mutation error.
	Banner        string
	Form          *form.State
	PendingDelete string
}

type View struct {
	api API

	mu      sync.Mutex
	table   string
	schema  *schema.Schema
	query   models.ListQuery
	search  string
	phase   Phase
	result  models.ListResult
	banner  string
	seq     uint64
	form    *form.State
	pending string
}

func New(api API) *View {
	return &View{api: api, query: models.ListQuery{Page: models.DefaultPage, Limit: models.DefaultLimit}}
}

// Select opens table, resets paging, sort and search, and loads page one.
func (v *View) Select(ctx context.Context, table string) error {
	sc, err := v.api.Schema(ctx, table)
	if err != nil {
		v.mu.Lock()
		v.banner = err.Error()
		v.phase = Errored
		v.mu.Unlock()
		return err
	}
	v.mu.Lock()
	v.table = table
	v.schema = sc
	v.query = models.ListQuery{Page: models.DefaultPage, Limit: v.query.Limit}
	v.search = ""
	v.result = models.ListResult{}
	v.form = nil
	v.pending = ""
	v.banner = ""
	v.mu.Unlock()
	return v.Reload(ctx)
}

// Reload fetches the current page. When a newer fetch has started by the
// time this one returns, its result is discarded.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	if v.table == "" {
		v.mu.Unlock()
		return errs.BadRequest("no table selected")
	}
	v.seq++
	seq := v.seq
	table, q := v.table, v.query
	v.phase = Loading
	v.mu.Unlock()

	res, err := v.api.List(ctx, table, q)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		return nil
	}
	if err != nil {
		v.phase = Errored
		v.banner = err.Error()
		return err
	}
	v.result = res
	v.phase = Loaded
	v.banner = ""
	return nil
}

func (v *View) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	v.mu.Lock()
	v.query.Page = page
	v.mu.Unlock()
	return v.Reload(ctx)
}

func (v *View) SetLimit(ctx context.Context, limit int) error {
	v.mu.Lock()
	v.query.Limit = limit
	v.query.Page = 1
	v.mu.Unlock()
	return v.Reload(ctx)
}

// SetSort orders by column ascending, or flips the direction when the
// view is already sorted by column.
func (v *View) SetSort(ctx context.Context, column string) error {
	v.mu.Lock()
	dir := "asc"
	if f, d, ok := strings.Cut(v.query.Sort, ":"); ok && f == column && d == "asc" {
		dir = "desc"
	}
	v.query.Sort = column + ":" + dir
	v.mu.Unlock()
	return v.Reload(ctx)
}

// SetSearch looks for term in every filterable column and returns to the
// first page. An empty term clears the search.
func (v *View) SetSearch(ctx context.Context, term string) error {
	v.mu.Lock()
	v.search = term
	v.query.Page = 1
	v.query.Search = nil
	if term != "" && v.schema != nil {
		v.query.Search = models.SearchAll(v.schema.Filterable(), term)
	}
	v.mu.Unlock()
	return v.Reload(ctx)
}

// OpenCreate opens an empty record form.
func (v *View) OpenCreate() (form.State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.schema == nil {
		return form.State{}, errs.BadRequest("no table selected")
	}
	st := form.Build(v.schema, nil)
	v.form = &st
	return st, nil
}

// OpenEdit opens the form for row.
func (v *View) OpenEdit(row models.TableRow) (form.State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.schema == nil {
		return form.State{}, errs.BadRequest("no table selected")
	}
	st := form.Build(v.schema, row)
	v.form = &st
	return st, nil
}

// Change applies a field edit to the open form.
func (v *View) Change(name string, value any) (form.State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form == nil {
		return form.State{}, errs.BadRequest("no form is open")
	}
	st := v.form.OnFieldChange(name, value)
	v.form = &st
	return st, nil
}

// Input applies raw text to a field of the open form.
func (v *View) Input(name, raw string) (form.State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form == nil {
		return form.State{}, errs.BadRequest("no form is open")
	}
	st := v.form.SetInput(name, raw)
	v.form = &st
	return st, nil
}

// Controls renders the open form's fields with uploads routed to u.
func (v *View) Controls(u field.Uploader) []*field.Control {
	v.mu.Lock()
	if v.form == nil {
		v.mu.Unlock()
		return nil
	}
	st := *v.form
	v.mu.Unlock()
	return st.Controls(u, func(name string, value any) { v.Change(name, value) })
}

func (v *View) CloseForm() {
	v.mu.Lock()
	v.form = nil
	v.mu.Unlock()
}

// Submit sends the open form. On success the form closes and the page
// reloads; on a validation failure the form stays open with its errors.
func (v *View) Submit(ctx context.Context) (form.Result, error) {
	v.mu.Lock()
	if v.form == nil {
		v.mu.Unlock()
		return form.Result{}, errs.BadRequest("no form is open")
	}
	st := *v.form
	v.mu.Unlock()

	res, err := st.Submit(ctx, v.api)
	if err != nil {
		v.mu.Lock()
		if fields := validationFields(err); fields != nil {
			next := st.Validate()
			for k, msg := range fields {
				next.Errors[k] = msg
			}
			v.form = &next
		} else {
			v.banner = err.Error()
		}
		v.mu.Unlock()
		return res, err
	}
	v.CloseForm()
	return res, v.Reload(ctx)
}

func validationFields(err error) map[string]string {
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.KindValidation {
		return nil
	}
	if e.Fields == nil {
		return map[string]string{}
	}
	return e.Fields
}

// RequestDelete marks row id for deletion pending confirmation.
func (v *View) RequestDelete(id any) {
	v.mu.Lock()
	v.pending = form.RowKey(id)
	v.mu.Unlock()
}

func (v *View) CancelDelete() {
	v.mu.Lock()
	v.pending = ""
	v.mu.Unlock()
}

// ConfirmDelete deletes the pending row and reloads the page.
func (v *View) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	id, table := v.pending, v.table
	v.pending = ""
	v.mu.Unlock()
	if id == "" {
		return errs.BadRequest("no delete pending")
	}
	if err := v.api.Delete(ctx, table, id); err != nil {
		v.mu.Lock()
		v.banner = err.Error()
		v.mu.Unlock()
		return err
	}
	return v.Reload(ctx)
}

// Export writes the current table, sorted and filtered like the view, as
// CSV.
func (v *View) Export(ctx context.Context, w io.Writer) error {
	v.mu.Lock()
	table, q := v.table, v.query
	v.mu.Unlock()
	if table == "" {
		return errs.BadRequest("no table selected")
	}
	return v.api.Export(ctx, table, q, w)
}

// TotalPages is the page count of the last successful fetch.
func (v *View) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result.TotalPages()
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := Snapshot{
		Table:         v.table,
		Schema:        v.schema,
		Phase:         v.phase,
		Rows:          v.result.Data,
		Total:         v.result.Total,
		Page:          v.query.Page,
		Limit:         v.query.Limit,
		TotalPages:    v.result.TotalPages(),
		Sort:          v.query.Sort,
		Search:        v.search,
		Banner:        v.banner,
		PendingDelete: v.pending,
	}
	if v.form != nil {
		st := *v.form
		s.Form = &st
	}
	return s
}

// Cells renders row for the table grid in column order.
func Cells(sc *schema.Schema, row models.TableRow) []string {
	out := make([]string, 0, len(sc.Properties))
	for _, f := range sc.Properties {
		out = append(out, field.Display(f, row[f.Name]))
	}
	return out
}
