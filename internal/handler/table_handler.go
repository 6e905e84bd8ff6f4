package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
)

// TableHandler exposes the generic CRUD endpoints under /tables/{table}.
type TableHandler struct {
	store *store.Store
}

func NewTableHandler(st *store.Store) *TableHandler {
	return &TableHandler{store: st}
}

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.List(r.Context(), chi.URLParam(r, "table"), models.ParseListQuery(r.URL.Query()))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if res.Data == nil {
		res.Data = []models.TableRow{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.Get(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.store.Create(r.Context(), chi.URLParam(r, "table"), payload)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateResult{Success: true, ID: id})
}

func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.Update(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"), payload); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResult{Success: true})
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Delete(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResult{Success: true})
}

// csvResponse sets the attachment headers on the first write so an export
// that fails before producing output can still answer with JSON.
type csvResponse struct {
	w       http.ResponseWriter
	table   string
	started bool
}

func (c *csvResponse) Write(p []byte) (int, error) {
	if !c.started {
		c.started = true
		c.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		c.w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, c.table))
		c.w.WriteHeader(http.StatusOK)
	}
	return c.w.Write(p)
}

func (h *TableHandler) Export(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	out := &csvResponse{w: w, table: table}
	n, err := h.store.ExportTo(r.Context(), out, table, models.ParseListQuery(r.URL.Query()))
	if err != nil {
		if out.started {
			log.Printf("Warning: export of %s aborted after %d rows: %v", table, n, err)
			return
		}
		writeErr(w, r, err)
		return
	}
	log.Printf("Export: %s (%d rows)", table, n)
}
