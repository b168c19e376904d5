package roles

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-bms/atlas-bms/internal/authz"
	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Handler manages role endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    authz.RoleGuard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.RoleGuard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard(authz.RoleAdministrator, authz.RoleManager))
		r.Get("/", h.listRoles)
		r.Get("/user/{userID}", h.listUserRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard(authz.RoleAdministrator))
		r.Post("/assign", h.assignRole)
		r.Delete("/assign", h.removeRole)
	})
}

type roleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type membershipRequest struct {
	UserID   string `json:"userId" validate:"required"`
	RoleName string `json:"roleName" validate:"required"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{ID: role.ID, Name: role.Name, Description: role.Description, CreatedAt: role.CreatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	names, err := h.service.RolesOf(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user roles", slog.String("user", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"userId": userID, "roles": names})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.AssignRole(r.Context(), req.UserID, req.RoleName, actorUserID(actor)); err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "role assigned"})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	removed, err := h.service.RemoveRole(r.Context(), req.UserID, req.RoleName, actorUserID(actor))
	if err != nil {
		h.logger.Error("remove role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func actorUserID(actor *shared.ActorInfo) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}
