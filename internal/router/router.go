package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/auth"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/handler"
	mw "github.com/parisxmas/OxiDB/OxiPortal/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Admin   *handler.AdminHandler
	Schema  *handler.SchemaHandler
	Table   *handler.TableHandler
	Upload  *handler.UploadHandler
	Content *handler.ContentHandler
	Form    *handler.FormHandler
}

type Options struct {
	JWTSecret  string
	AdminEmail string
	CORSOrigin string
}

func New(o Options, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.Logger)
	r.Use(mw.CORS(o.CORSOrigin))

	session := auth.Middleware(o.JWTSecret)
	admin := auth.RequireAdmin(o.AdminEmail)

	r.Get("/files/{key}", h.Upload.Download)

	r.Route("/api", func(r chi.Router) {
		// Public site
		r.Get("/news", h.Content.List("news"))
		r.Get("/news/{slug}", h.Content.Detail("news"))
		r.Get("/blog", h.Content.List("blog"))
		r.Get("/blog/{slug}", h.Content.Detail("blog"))
		r.Get("/events", h.Content.List("events"))
		r.Get("/events/{slug}", h.Content.Detail("events"))
		r.Get("/sponsors", h.Content.List("sponsors"))
		r.Get("/banners", h.Content.List("banners"))
		r.Post("/forms/submit", h.Content.Submit)
		r.Get("/files/{key}", h.Upload.Download)

		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/logout", h.Auth.Logout)

		// Any session
		r.Group(func(r chi.Router) {
			r.Use(session)
			r.Get("/auth/me", h.Auth.Me)
			r.Get("/admin/status", h.Admin.Status)
		})

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(session, admin)

			r.Get("/admin/server-info", h.Admin.ServerInfo)

			r.Get("/schemas", h.Schema.List)
			r.Get("/schemas/{table}", h.Schema.Get)

			r.Get("/tables/{table}", h.Table.List)
			r.Post("/tables/{table}", h.Table.Create)
			r.Get("/tables/{table}/export", h.Table.Export)
			r.Get("/tables/{table}/{id}", h.Table.Get)
			r.Put("/tables/{table}/{id}", h.Table.Update)
			r.Delete("/tables/{table}/{id}", h.Table.Delete)

			r.Post("/upload/media", h.Upload.Media)
			r.Post("/upload/file", h.Upload.File)
		})
	})

	r.Route("/admin/forms", func(r chi.Router) {
		r.Use(session, admin)
		r.Get("/{table}", h.Form.Show)
		r.Post("/{table}", h.Form.Save)
		r.Get("/{table}/{id}", h.Form.Show)
		r.Post("/{table}/{id}", h.Form.Save)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
