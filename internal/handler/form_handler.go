package handler

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/form"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{.Form}}
</body></html>
`))

// storeSubmitter adapts the table store to form.Submitter.
type storeSubmitter struct {
	store *store.Store
}

func (s storeSubmitter) Create(ctx context.Context, table string, payload map[string]any) (int64, error) {
	return s.store.Create(ctx, table, payload)
}

func (s storeSubmitter) Update(ctx context.Context, table, id string, payload map[string]any) error {
	_, err := s.store.Update(ctx, table, id, payload)
	return err
}

// FormHandler serves server-rendered record forms under /admin/forms.
type FormHandler struct {
	store    *store.Store
	uploader field.Uploader
}

func NewFormHandler(st *store.Store, u field.Uploader) *FormHandler {
	return &FormHandler{store: st, uploader: u}
}

func (h *FormHandler) open(r *http.Request) (form.State, error) {
	sc, err := h.store.Registry().Get(chi.URLParam(r, "table"))
	if err != nil {
		return form.State{}, err
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		return form.Build(sc, nil), nil
	}
	row, err := h.store.Get(r.Context(), sc.Name(), id)
	if err != nil {
		return form.State{}, err
	}
	return form.Build(sc, row), nil
}

func (h *FormHandler) Show(w http.ResponseWriter, r *http.Request) {
	st, err := h.open(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	notice := ""
	if r.URL.Query().Get("saved") == "1" {
		notice = "Saved."
	}
	h.render(w, r, http.StatusOK, st, notice, "")
}

// Save applies the posted values and submits the form. Invalid input
// re-renders the form with its field errors.
func (h *FormHandler) Save(w http.ResponseWriter, r *http.Request) {
	st, err := h.open(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	st = st.SetInputs(r.PostForm)

	res, err := st.Submit(r.Context(), storeSubmitter{store: h.store})
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Kind == errs.KindValidation {
			st = st.Validate()
			for k, v := range e.Fields {
				st.Errors[k] = v
			}
			h.render(w, r, http.StatusBadRequest, st, "", "Please correct the highlighted fields.")
			return
		}
		if errs.HTTPStatus(err) < http.StatusInternalServerError {
			h.render(w, r, errs.HTTPStatus(err), st, "", err.Error())
			return
		}
		writeErr(w, r, err)
		return
	}
	location := "/admin/forms/" + st.Schema.Name() + "/" + strconv.FormatInt(res.ID, 10) + "?saved=1"
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *FormHandler) render(w http.ResponseWriter, r *http.Request, status int, st form.State, notice, problem string) {
	action := "/admin/forms/" + st.Schema.Name()
	if st.Mode == form.ModeEdit {
		action += "/" + form.RowKey(st.RowID)
	}
	body, err := st.HTML(action, h.uploader)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	pageTmpl.Execute(w, map[string]any{
		"Title":  st.Schema.DisplayTitle(),
		"Notice": notice,
		"Error":  problem,
		"Form":   body,
	})
}

var _ form.Submitter = storeSubmitter{}
