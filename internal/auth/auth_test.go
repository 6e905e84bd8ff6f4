package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(secret, "admin@portal.local", "Admin", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ValidateToken(secret, tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Email != "admin@portal.local" || claims.Role != RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
	if _, err := ValidateToken("other", tok); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
	expired, _ := GenerateToken(secret, "a@b.c", "", RoleAdmin, -time.Hour)
	// A non-positive ttl falls back to the default lifetime.
	if _, err := ValidateToken(secret, expired); err != nil {
		t.Fatalf("default ttl token rejected: %v", err)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !IsHash(hash) || IsHash("s3cret") {
		t.Fatal("IsHash misclassified")
	}
	if !CheckPassword("s3cret", hash) || CheckPassword("nope", hash) {
		t.Fatal("CheckPassword mismatch")
	}
}

func TestServiceLogin(t *testing.T) {
	svc, err := NewService(secret, "admin@portal.local", "pw", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := svc.Login("ADMIN@portal.local", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.User.IsAdmin || resp.Token == "" {
		t.Fatalf("resp = %+v", resp)
	}
	if _, err := svc.Login("admin@portal.local", "wrong"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Login("", ""); errs.KindOf(err) != errs.KindBadRequest {
		t.Fatalf("empty login: %v", err)
	}

	claims, _ := ValidateToken(secret, resp.Token)
	me, err := svc.Me(claims)
	if err != nil || !me.IsAdmin || me.Email != "admin@portal.local" {
		t.Fatalf("me = %+v, %v", me, err)
	}
}

func TestMiddleware(t *testing.T) {
	adminTok, _ := GenerateToken(secret, "admin@portal.local", "", RoleAdmin, time.Hour)
	userTok, _ := GenerateToken(secret, "someone@else.com", "", "user", time.Hour)

	h := Middleware(secret)(RequireAdmin("admin@portal.local")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUser(r.Context()).Email))
	})))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized, "unauthorized"},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x.y.z") }, http.StatusUnauthorized, "invalid token"},
		{"non admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userTok) }, http.StatusForbidden, `{"error":"Forbidden"}`},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminTok) }, http.StatusOK, "admin@portal.local"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: adminTok}) }, http.StatusOK, "admin@portal.local"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/status", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("body = %q", rec.Body.String())
			}
		})
	}
}
