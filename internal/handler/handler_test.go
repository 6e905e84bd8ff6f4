package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/auth"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/content"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/ddl"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/handler"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/router"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/upload"
)

const (
	secret     = "handler-test-secret"
	adminEmail = "admin@portal.local"
	adminPass  = "correct horse"
)

type app struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func newApp(t *testing.T) *app {
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

	disk, err := upload.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	uploads := upload.New(disk, upload.DefaultMaxBytes, "")

	authSvc, err := auth.NewService(secret, adminEmail, adminPass, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	r := router.New(router.Options{JWTSecret: secret, AdminEmail: adminEmail, CORSOrigin: "*"}, router.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Admin:   handler.NewAdminHandler(db, "sqlite", reg, uploads, adminEmail),
		Schema:  handler.NewSchemaHandler(reg),
		Table:   handler.NewTableHandler(st),
		Upload:  handler.NewUploadHandler(uploads),
		Content: handler.NewContentHandler(content.NewService(st, nil)),
		Form:    handler.NewFormHandler(st, uploads),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	a := &app{t: t, srv: srv}
	var login models.LoginResponse
	resp := a.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: adminEmail, Password: adminPass}, &login)
	if resp.StatusCode != http.StatusOK || login.Token == "" {
		t.Fatalf("login: %d %+v", resp.StatusCode, login)
	}
	a.token = login.Token
	return a
}

// do sends body as JSON with the admin token and decodes the response
// into out when non-nil.
func (a *app) do(method, path string, body, out any) *http.Response {
	a.t.Helper()
	return a.doAs(a.token, method, path, body, out)
}

func (a *app) doAs(token, method, path string, body, out any) *http.Response {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, data, err)
		}
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp
}

var noRedirect = &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestAuthGuards(t *testing.T) {
	a := newApp(t)
	if resp := a.doAs("", http.MethodGet, "/api/schemas", nil, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", resp.StatusCode)
	}
	userTok, _ := auth.GenerateToken(secret, "visitor@example.com", "", "user", time.Hour)
	resp := a.doAs(userTok, http.MethodGet, "/api/schemas", nil, nil)
	if resp.StatusCode != http.StatusForbidden || !strings.Contains(readBody(t, resp), `"Forbidden"`) {
		t.Fatalf("non-admin: %d", resp.StatusCode)
	}
	var status map[string]bool
	a.doAs(userTok, http.MethodGet, "/api/admin/status", nil, &status)
	if status["isAdmin"] {
		t.Fatal("visitor reported as admin")
	}
	a.do(http.MethodGet, "/api/admin/status", nil, &status)
	if !status["isAdmin"] {
		t.Fatal("admin not reported as admin")
	}
	if resp := a.doAs("", http.MethodPost, "/api/auth/login", models.LoginRequest{Email: adminEmail, Password: "nope"}, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", resp.StatusCode)
	}
}

func TestSchemas(t *testing.T) {
	a := newApp(t)
	var names []string
	a.do(http.MethodGet, "/api/schemas", nil, &names)
	if len(names) != 8 || names[0] != "banners" {
		t.Fatalf("names = %v", names)
	}
	var doc map[string]any
	a.do(http.MethodGet, "/api/schemas/sponsors", nil, &doc)
	if doc["$id"] == nil || doc["properties"] == nil {
		t.Fatalf("doc = %v", doc)
	}
	if resp := a.do(http.MethodGet, "/api/schemas/nope", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown schema: %d", resp.StatusCode)
	}
}

func TestTableCRUD(t *testing.T) {
	a := newApp(t)
	sponsor := map[string]any{
		"id":          999,
		"name":        `Banco, S.A. "Premium"`,
		"logo_url":    "/files/logo.png",
		"website_url": "https://banco.example.com",
		"is_active":   1,
	}
	var created models.CreateResult
	resp := a.do(http.MethodPost, "/api/tables/sponsors", sponsor, &created)
	if resp.StatusCode != http.StatusCreated || !created.Success || created.ID == 0 || created.ID == 999 {
		t.Fatalf("create: %d %+v", resp.StatusCode, created)
	}
	id := strconv.FormatInt(created.ID, 10)

	var list models.ListResult
	a.do(http.MethodGet, "/api/tables/sponsors?page=1&limit=10&sort=name:asc&name_like=Banco", nil, &list)
	if list.Total != 1 || list.Data[0]["created_at"] != list.Data[0]["updated_at"] {
		t.Fatalf("list = %+v", list)
	}

	var ok models.SuccessResult
	if resp := a.do(http.MethodPut, "/api/tables/sponsors/"+id, map[string]any{"display_order": 3}, &ok); resp.StatusCode != http.StatusOK || !ok.Success {
		t.Fatalf("update: %d", resp.StatusCode)
	}
	if resp := a.do(http.MethodPut, "/api/tables/sponsors/424242", map[string]any{"display_order": 3}, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update missing: %d", resp.StatusCode)
	}

	resp = a.do(http.MethodGet, "/api/tables/sponsors/export", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="sponsors.csv"` {
		t.Fatalf("disposition = %q", got)
	}
	csv := readBody(t, resp)
	if !strings.HasPrefix(csv, "id,name,") || !strings.Contains(csv, `"Banco, S.A. ""Premium"""`) {
		t.Fatalf("csv = %q", csv)
	}

	if resp := a.do(http.MethodDelete, "/api/tables/sponsors/"+id, nil, &ok); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	a.do(http.MethodGet, "/api/tables/sponsors", nil, &list)
	if list.Total != 0 || list.Data == nil {
		t.Fatalf("after delete = %+v", list)
	}

	var body models.ErrorBody
	resp = a.do(http.MethodGet, "/api/tables/sponsors/export", nil, &body)
	if resp.StatusCode != http.StatusNotFound || body.Error != "no data to export" {
		t.Fatalf("empty export: %d %+v", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Disposition") != "" {
		t.Fatal("empty export sent attachment header")
	}
}

func TestTableValidation(t *testing.T) {
	a := newApp(t)
	var body models.ErrorBody
	resp := a.do(http.MethodPost, "/api/tables/sponsors", map[string]any{"name": "x"}, &body)
	if resp.StatusCode != http.StatusBadRequest || body.Fields["logo_url"] == "" {
		t.Fatalf("missing fields: %d %+v", resp.StatusCode, body)
	}
	resp = a.do(http.MethodPost, "/api/tables/sponsors", map[string]any{"name": "x", "logo_url": "a", "website_url": "b", "drop_table": 1}, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown column: %d", resp.StatusCode)
	}
	if resp := a.do(http.MethodGet, "/api/tables/pg_user", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown table: %d", resp.StatusCode)
	}
	if resp := a.do(http.MethodDelete, "/api/tables/sponsors/1;DROP", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: %d", resp.StatusCode)
	}
}

func (a *app) upload(path, fileName string, data []byte) *http.Response {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		a.t.Fatal(err)
	}
	part.Write(data)
	mw.Close()
	req, _ := http.NewRequest(http.MethodPost, a.srv.URL+path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	return resp
}

func TestUploadAndDownload(t *testing.T) {
	a := newApp(t)
	png := []byte("\x89PNG\r\n\x1a\n0000")

	resp := a.upload("/api/upload/media", "logo.png", png)
	defer resp.Body.Close()
	var res models.UploadResult
	json.NewDecoder(resp.Body).Decode(&res)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(res.URL, "/files/") {
		t.Fatalf("upload: %d %+v", resp.StatusCode, res)
	}

	dl, err := http.Get(a.srv.URL + res.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer dl.Body.Close()
	got, _ := io.ReadAll(dl.Body)
	if dl.StatusCode != http.StatusOK || !bytes.Equal(got, png) || dl.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("download: %d %q", dl.StatusCode, dl.Header.Get("Content-Type"))
	}

	resp = a.upload("/api/upload/media", "notes.txt", []byte("plain text"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("text to media: %d", resp.StatusCode)
	}
	resp = a.upload("/api/upload/file", "notes.txt", []byte("plain text"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("text to file: %d", resp.StatusCode)
	}

	missing, _ := http.Get(a.srv.URL + "/files/..%2Fsecret")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("traversal: %d", missing.StatusCode)
	}
}

func TestDownloadDisposition(t *testing.T) {
	a := newApp(t)
	tests := []struct {
		endpoint, name string
		data           []byte
		disposition    string
	}{
		{"/api/upload/file", "x.html", []byte("<html><script>alert(document.cookie)</script></html>"), "attachment"},
		{"/api/upload/media", "logo.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`), "attachment"},
		{"/api/upload/media", "logo.png", []byte("\x89PNG\r\n\x1a\n0000"), "inline"},
		{"/api/upload/file", "brief.pdf", []byte("%PDF-1.4"), "inline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.upload(tt.endpoint, tt.name, tt.data)
			defer resp.Body.Close()
			var res models.UploadResult
			json.NewDecoder(resp.Body).Decode(&res)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("upload: %d", resp.StatusCode)
			}
			dl, err := http.Get(a.srv.URL + res.URL)
			if err != nil {
				t.Fatal(err)
			}
			dl.Body.Close()
			cd := dl.Header.Get("Content-Disposition")
			if !strings.HasPrefix(cd, tt.disposition+";") || !strings.Contains(cd, tt.name) {
				t.Fatalf("Content-Disposition = %q, want %s", cd, tt.disposition)
			}
			if got := dl.Header.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Fatalf("X-Content-Type-Options = %q", got)
			}
		})
	}
}

func TestPublicContent(t *testing.T) {
	a := newApp(t)
	a.do(http.MethodPost, "/api/tables/news", map[string]any{"title": "Launch", "slug": "launch", "body_html": "<p>hi</p>"}, nil)

	var rows []map[string]any
	if resp := a.doAs("", http.MethodGet, "/api/news", nil, &rows); resp.StatusCode != http.StatusOK || len(rows) != 1 {
		t.Fatalf("news: %d %v", resp.StatusCode, rows)
	}
	var row map[string]any
	a.doAs("", http.MethodGet, "/api/news/launch", nil, &row)
	if row["title"] != "Launch" {
		t.Fatalf("detail = %v", row)
	}
	if resp := a.doAs("", http.MethodGet, "/api/blog/launch", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing slug: %d", resp.StatusCode)
	}
	var banners []any
	a.doAs("", http.MethodGet, "/api/banners", nil, &banners)
	if banners == nil || len(banners) != 0 {
		t.Fatalf("banners = %v", banners)
	}

	var ok models.SuccessResult
	resp := a.doAs("", http.MethodPost, "/api/forms/submit", map[string]any{"formId": "contact_form", "email": "a@b.c"}, &ok)
	if resp.StatusCode != http.StatusOK || !ok.Success {
		t.Fatalf("submit: %d", resp.StatusCode)
	}
	if resp := a.doAs("", http.MethodPost, "/api/forms/submit", map[string]any{"email": "a@b.c"}, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing formId: %d", resp.StatusCode)
	}
	var list models.ListResult
	a.do(http.MethodGet, "/api/tables/contact_submissions", nil, &list)
	if list.Total != 1 || list.Data[0]["uniqueness_check"] != "a@b.c" {
		t.Fatalf("submissions = %+v", list)
	}
}

func TestServerInfo(t *testing.T) {
	a := newApp(t)
	var info struct {
		Database struct {
			Driver    string `json:"driver"`
			Connected bool   `json:"connected"`
		} `json:"database"`
		Uploads struct {
			Backend string `json:"backend"`
		} `json:"uploads"`
	}
	a.do(http.MethodGet, "/api/admin/server-info", nil, &info)
	if info.Database.Driver != "sqlite" || !info.Database.Connected || info.Uploads.Backend != "disk" {
		t.Fatalf("info = %+v", info)
	}
}

func (a *app) postForm(path string, v url.Values) *http.Response {
	a.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, a.srv.URL+path, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: a.token})
	resp, err := noRedirect.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	return resp
}

func TestHTMLForms(t *testing.T) {
	a := newApp(t)
	resp := a.do(http.MethodGet, "/admin/forms/sponsors", nil, nil)
	page := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(page, `<form class="record-form"`) || !strings.Contains(page, `name="website_url"`) {
		t.Fatalf("create form: %d %s", resp.StatusCode, page)
	}
	if strings.Contains(page, `name="id"`) {
		t.Fatal("create form renders the id field")
	}

	resp = a.postForm("/admin/forms/sponsors", url.Values{"name": {"Only name"}})
	page = readBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(page, "has-error") {
		t.Fatalf("invalid post: %d", resp.StatusCode)
	}

	resp = a.postForm("/admin/forms/sponsors", url.Values{
		"name":        {"Acme"},
		"logo_url":    {"/files/acme.png"},
		"website_url": {"https://acme.example.com"},
		"is_active":   {"1"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.HasPrefix(resp.Header.Get("Location"), "/admin/forms/sponsors/") {
		t.Fatalf("valid post: %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = a.do(http.MethodGet, resp.Header.Get("Location"), nil, nil)
	page = readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(page, "Saved.") || !strings.Contains(page, `value="Acme"`) {
		t.Fatalf("edit form: %d %s", resp.StatusCode, page)
	}
}
