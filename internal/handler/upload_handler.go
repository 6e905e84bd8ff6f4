package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/upload"
)

type UploadHandler struct {
	svc *upload.Service
}

func NewUploadHandler(svc *upload.Service) *UploadHandler {
	return &UploadHandler{svc: svc}
}

func (h *UploadHandler) Media(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, field.EndpointMedia)
}

func (h *UploadHandler) File(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, field.EndpointFile)
}

func (h *UploadHandler) save(w http.ResponseWriter, r *http.Request, endpoint field.Endpoint) {
	// Multipart overhead on top of the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxBytes()+1<<20)
	if err := r.ParseMultipartForm(h.svc.MaxBytes()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	blob, err := h.svc.Save(r.Context(), endpoint, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResult{URL: h.svc.URL(blob.Key)})
}

// Download serves an uploaded blob. Only raster images, video and PDF are
// shown inline; any other type is sent as an attachment.
func (h *UploadHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	f, err := h.svc.Open(r.Context(), key)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", f.Disposition())
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(f.Data)
}
