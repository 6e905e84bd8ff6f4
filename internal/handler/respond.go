package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
)

// maxJSONBody bounds request bodies decoded by readJSON.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorBody{Error: msg})
}

// writeErr maps err to its status and the {error, details, fields} body.
// Server-side failures are logged.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	body := models.ErrorBody{Error: "internal error", Details: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		body = models.ErrorBody{Error: e.Message, Fields: e.Fields}
		if e.Table != "" {
			body.Error = e.Table + ": " + e.Message
		}
		if e.Err != nil {
			body.Details = e.Err.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		log.Printf("Warning: %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, body)
}
