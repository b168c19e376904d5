package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-bms/atlas-bms/internal/shared"
	"github.com/atlas-bms/atlas-bms/internal/users"
)

type stubUserDir struct {
	user users.User
}

func (d stubUserDir) GetByEmail(_ context.Context, email string) (users.User, error) {
	if email != d.user.Email {
		return users.User{}, shared.ErrNotFound
	}
	return d.user, nil
}

func (d stubUserDir) VerifyPassword(user users.User, password string) bool {
	return user.PasswordHash == password
}

type stubRoleDir struct {
	roles []string
}

func (d stubRoleDir) RolesOf(_ context.Context, _ string) ([]string, error) {
	return d.roles, nil
}

func newTestHandler(t *testing.T) (*Handler, Middleware) {
	t.Helper()
	issuer := NewTokenIssuer("test-secret", time.Hour)
	dir := stubUserDir{user: users.User{
		ID:           "user-1",
		Email:        "jane@atlas.local",
		PasswordHash: "correct-horse",
		IsActive:     true,
	}}
	svc := NewService(dir, stubRoleDir{roles: []string{"Manager"}}, nil, issuer, nil)
	mw := NewMiddleware(issuer)
	return NewHandler(nil, svc, mw), mw
}

func mountAuth(h *Handler, mw Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/auth", h.MountRoutes)
	return r
}

func TestLoginIssuesToken(t *testing.T) {
	h, mw := newTestHandler(t)
	srv := mountAuth(h, mw)

	body := `{"email":"jane@atlas.local","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.UserID != "user-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// The issued token must authenticate /auth/me.
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var me meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.UserID != "user-1" || me.Email != "jane@atlas.local" {
		t.Fatalf("unexpected me: %+v", me)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, mw := newTestHandler(t)
	srv := mountAuth(h, mw)

	for _, body := range []string{
		`{"email":"jane@atlas.local","password":"wrong-password"}`,
		`{"email":"ghost@atlas.local","password":"correct-horse"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("body %s: status = %d", body, rec.Code)
		}
	}
}

func TestLoginValidatesInput(t *testing.T) {
	h, mw := newTestHandler(t)
	srv := mountAuth(h, mw)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"nope","password":"x"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	h, mw := newTestHandler(t)
	srv := mountAuth(h, mw)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token status = %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	mw := NewMiddleware(issuer)
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.With(mw.RequireRole("Administrator")).Get("/admin", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	token, _, err := issuer.Issue("user-1", "", []string{"Staff"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff status = %d", rec.Code)
	}

	token, _, err = issuer.Issue("user-2", "", []string{"administrator"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rec.Code)
	}
}
