package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// RoleGuard produces middleware admitting only actors holding one of the
// given roles. Injected by the auth layer to keep this package transport-only.
type RoleGuard func(roles ...string) func(http.Handler) http.Handler

// Handler exposes the permission catalog, grant management, and the three
// check endpoints.
type Handler struct {
	logger   *slog.Logger
	catalog  CatalogLister
	service  *Service
	engine   *Engine
	guard    RoleGuard
	validate *validator.Validate
}

// CatalogLister lists the active permission catalog.
type CatalogLister interface {
	ListActivePermissions(ctx context.Context) ([]Permission, error)
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, catalog CatalogLister, service *Service, engine *Engine, guard RoleGuard) *Handler {
	return &Handler{
		logger:   logger,
		catalog:  catalog,
		service:  service,
		engine:   engine,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard(RoleAdministrator, RoleManager))
		r.Get("/", h.listCatalog)
		r.Get("/user/{userID}", h.listUserGrants)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard(RoleAdministrator))
		r.Post("/user", h.addGrant)
		r.Delete("/user/{grantID}", h.removeGrant)
	})
	r.Get("/check/{code}", h.checkPermission)
	r.Get("/check/department/{departmentID}/{code}", h.checkDepartmentPermission)
	r.Get("/check/self/{targetUserID}/{code}", h.checkSelfPermission)
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type grantResponse struct {
	ID                  int64     `json:"id"`
	UserID              string    `json:"userId"`
	PermissionCode      string    `json:"permissionCode"`
	PermissionName      string    `json:"permissionName"`
	Type                string    `json:"type"`
	ScopeDepartmentID   *int64    `json:"scopeDepartmentId,omitempty"`
	ScopeDepartmentName string    `json:"scopeDepartmentName,omitempty"`
	SelfOnly            bool      `json:"selfOnly"`
	CreatedAt           time.Time `json:"createdAt"`
	CreatedBy           string    `json:"createdBy,omitempty"`
}

type addGrantRequest struct {
	UserID            string `json:"userId" validate:"required"`
	PermissionCode    string `json:"permissionCode" validate:"required"`
	Type              string `json:"type" validate:"omitempty,oneof=view create edit delete admin"`
	ScopeDepartmentID *int64 `json:"scopeDepartmentId" validate:"omitempty,gt=0"`
	SelfOnly          bool   `json:"selfOnly"`
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	perms, err := h.catalog.ListActivePermissions(r.Context())
	if err != nil {
		h.logger.Error("list permission catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, Code: p.Code, Name: p.Name, Description: p.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listUserGrants(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	grants, err := h.service.ListGrants(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user grants", slog.String("user", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantResponse(g))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) addGrant(w http.ResponseWriter, r *http.Request) {
	var req addGrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	minType := TypeView
	if req.Type != "" {
		parsed, err := ParsePermissionType(req.Type)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		minType = parsed
	}

	actor := shared.ActorFromContext(r.Context())
	grant, err := h.service.AddGrant(r.Context(), AddGrantInput{
		UserID:            req.UserID,
		Code:              req.PermissionCode,
		Type:              minType,
		ScopeDepartmentID: req.ScopeDepartmentID,
		SelfOnly:          req.SelfOnly,
		GrantedBy:         actorID(actor),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownPermission):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Permission", err.Error())
		case errors.Is(err, ErrSelfOnlyScoped):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Grant", err.Error())
		case errors.Is(err, ErrUnknownDepartment):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Department", err.Error())
		default:
			h.logger.Error("add grant", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, toGrantResponse(grant))
}

func (h *Handler) removeGrant(w http.ResponseWriter, r *http.Request) {
	grantID, err := strconv.ParseInt(chi.URLParam(r, "grantID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid grant id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	removed, err := h.service.RemoveGrant(r.Context(), grantID, actorID(actor))
	if err != nil {
		h.logger.Error("remove grant", slog.Int64("grant", grantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	allowed := h.engine.HasPermission(r.Context(), actor.UserID, chi.URLParam(r, "code"), h.minType(r))
	httpx.JSON(w, http.StatusOK, map[string]bool{"hasPermission": allowed})
}

func (h *Handler) checkDepartmentPermission(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	departmentID, err := strconv.ParseInt(chi.URLParam(r, "departmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid department id")
		return
	}
	allowed := h.engine.HasDepartmentPermission(r.Context(), actor.UserID, chi.URLParam(r, "code"), h.minType(r), departmentID)
	httpx.JSON(w, http.StatusOK, map[string]bool{"hasDepartmentPermission": allowed})
}

func (h *Handler) checkSelfPermission(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	allowed := h.engine.HasSelfPermission(r.Context(), actor.UserID, chi.URLParam(r, "code"), h.minType(r), chi.URLParam(r, "targetUserID"))
	httpx.JSON(w, http.StatusOK, map[string]bool{"hasSelfPermission": allowed})
}

// minType reads the optional ?type= query parameter, defaulting to view like
// the check endpoints always have.
func (h *Handler) minType(r *http.Request) PermissionType {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return TypeView
	}
	if parsed, err := ParsePermissionType(raw); err == nil {
		return parsed
	}
	return TypeView
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:                  g.ID,
		UserID:              g.UserID,
		PermissionCode:      g.PermissionCode,
		PermissionName:      g.PermissionName,
		Type:                g.Type.String(),
		ScopeDepartmentID:   g.ScopeDepartmentID,
		ScopeDepartmentName: g.ScopeDepartmentName,
		SelfOnly:            g.SelfOnly,
		CreatedAt:           g.CreatedAt,
		CreatedBy:           g.CreatedBy,
	}
}

func actorID(actor *shared.ActorInfo) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}
