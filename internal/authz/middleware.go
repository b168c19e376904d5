package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers. Guards translate
// the engine's boolean contract: deny maps to 403, missing identity to 401.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require ensures the actor holds the permission at minType in any scope.
func (m Middleware) Require(code string, minType PermissionType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !m.Engine.HasPermission(r.Context(), actor.UserID, code, minType) {
				m.deny(w, actor.UserID, code)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireDepartment ensures the actor holds the permission for the department
// identified by the named URL parameter.
func (m Middleware) RequireDepartment(code string, minType PermissionType, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			departmentID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid department id")
				return
			}
			if !m.Engine.HasDepartmentPermission(r.Context(), actor.UserID, code, minType, departmentID) {
				m.deny(w, actor.UserID, code)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelf ensures the actor may act on the user identified by the named
// URL parameter.
func (m Middleware) RequireSelf(code string, minType PermissionType, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			targetID := chi.URLParam(r, param)
			if targetID == "" {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing user id")
				return
			}
			if !m.Engine.HasSelfPermission(r.Context(), actor.UserID, code, minType, targetID) {
				m.deny(w, actor.UserID, code)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, actorID, code string) {
	if m.Logger != nil {
		m.Logger.Debug("authz denied", slog.String("actor", actorID), slog.String("permission", code))
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
}
