package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/content"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
)

// ContentHandler serves the public site: feeds, detail pages and form
// submissions.
type ContentHandler struct {
	svc *content.Service
}

func NewContentHandler(svc *content.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// List returns the handler for one feed.
func (h *ContentHandler) List(feed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := h.svc.List(r.Context(), feed)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (h *ContentHandler) Detail(feed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := h.svc.BySlug(r.Context(), feed, chi.URLParam(r, "slug"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

func (h *ContentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if err := readJSON(r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Missing formId"})
		return
	}
	if _, err := h.svc.Submit(r.Context(), sub); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResult{Success: true})
}
