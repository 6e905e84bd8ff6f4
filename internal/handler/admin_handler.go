package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/auth"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/db"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/upload"
)

type AdminHandler struct {
	db         *sql.DB
	driver     string
	reg        *schema.Registry
	uploads    *upload.Service
	adminEmail string
	started    time.Time
}

func NewAdminHandler(pool *sql.DB, driver string, reg *schema.Registry, uploads *upload.Service, adminEmail string) *AdminHandler {
	return &AdminHandler{db: pool, driver: driver, reg: reg, uploads: uploads, adminEmail: adminEmail, started: time.Now()}
}

// Status reports whether the caller is the admin. It runs behind the
// session middleware only, so non-admin users get {isAdmin:false}.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUser(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"isAdmin": auth.IsAdmin(claims, h.adminEmail),
	})
}

func (h *AdminHandler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	info := map[string]any{
		"database": db.Check(ctx, h.db, h.driver),
		"tables":   h.reg.Names(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	}
	if h.uploads != nil {
		info["uploads"] = map[string]any{
			"backend":  h.uploads.Backend(),
			"maxBytes": h.uploads.MaxBytes(),
		}
	}
	writeJSON(w, http.StatusOK, info)
}
