package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

type listingCatalog struct {
	perms []Permission
}

func (c listingCatalog) ListActivePermissions(_ context.Context) ([]Permission, error) {
	return c.perms, nil
}

// roleGuard mimics the auth layer guard using the actor stored in context.
func roleGuard(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			for _, want := range roles {
				for _, held := range actor.Roles {
					if held == want {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			w.WriteHeader(http.StatusForbidden)
		})
	}
}

func actorMiddleware(actor *shared.ActorInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor != nil {
				r = r.WithContext(shared.ContextWithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func permissionsServer(f *fixture, actor *shared.ActorInfo) http.Handler {
	service := NewService(f.catalog, newMemoryGrantRepo(), &memoryAudit{}, nil)
	handler := NewHandler(nil, listingCatalog{perms: []Permission{
		{ID: 1, Code: "users.edit", Name: "Manage users", IsActive: true},
	}}, service, f.engine(), roleGuard)

	r := chi.NewRouter()
	r.Use(actorMiddleware(actor))
	r.Route("/permissions", handler.MountRoutes)
	return r
}

func TestCheckEndpointsReportDecisions(t *testing.T) {
	f := newFixture()
	f.grants.grants = []Grant{{UserID: "u1", PermissionID: 1, Type: TypeEdit}}
	srv := permissionsServer(f, &shared.ActorInfo{UserID: "u1"})

	cases := []struct {
		path string
		key  string
		want bool
	}{
		{"/permissions/check/users.edit", "hasPermission", true},
		{"/permissions/check/users.edit?type=admin", "hasPermission", false},
		{"/permissions/check/departments.view", "hasPermission", false},
		{"/permissions/check/department/3/users.edit", "hasDepartmentPermission", true},
		{"/permissions/check/self/u1/users.edit", "hasSelfPermission", true},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.path, rec.Code)
		}
		var body map[string]bool
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tc.path, err)
		}
		if body[tc.key] != tc.want {
			t.Fatalf("%s: %s = %v, want %v", tc.path, tc.key, body[tc.key], tc.want)
		}
	}
}

func TestCheckEndpointsRequireActor(t *testing.T) {
	srv := permissionsServer(newFixture(), nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/permissions/check/users.edit", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAddGrantRequiresAdministrator(t *testing.T) {
	body := `{"userId":"u1","permissionCode":"users.edit","type":"edit"}`

	srv := permissionsServer(newFixture(), &shared.ActorInfo{UserID: "m1", Roles: []string{RoleManager}})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/permissions/user", strings.NewReader(body)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager status = %d", rec.Code)
	}

	srv = permissionsServer(newFixture(), &shared.ActorInfo{UserID: "a1", Roles: []string{RoleAdministrator}})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/permissions/user", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var grant grantResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &grant); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if grant.UserID != "u1" || grant.PermissionCode != "users.edit" || grant.Type != "edit" {
		t.Fatalf("unexpected grant: %+v", grant)
	}
	if grant.CreatedBy != "a1" {
		t.Fatalf("createdBy = %q", grant.CreatedBy)
	}
}

func TestAddGrantUnknownCode(t *testing.T) {
	srv := permissionsServer(newFixture(), &shared.ActorInfo{UserID: "a1", Roles: []string{RoleAdministrator}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/permissions/user",
		strings.NewReader(`{"userId":"u1","permissionCode":"no.such.code"}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCatalogVisibleToManagers(t *testing.T) {
	srv := permissionsServer(newFixture(), &shared.ActorInfo{UserID: "m1", Roles: []string{RoleManager}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/permissions/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var perms []permissionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &perms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(perms) != 1 || perms[0].Code != "users.edit" {
		t.Fatalf("perms = %+v", perms)
	}
}
