package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

type SchemaHandler struct {
	reg *schema.Registry
}

func NewSchemaHandler(reg *schema.Registry) *SchemaHandler {
	return &SchemaHandler{reg: reg}
}

func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Names())
}

func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.reg.Get(chi.URLParam(r, "table"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
