package departments

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-bms/atlas-bms/internal/authz"
	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
	"github.com/atlas-bms/atlas-bms/internal/shared"
	"github.com/atlas-bms/atlas-bms/internal/users"
)

// Handler manages department endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	members  *users.Service
	engine   *authz.Engine
	authz    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, members *users.Service, engine *authz.Engine, authzMW authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, members: members, engine: engine, authz: authzMW, validate: validator.New()}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(shared.PermDepartmentsView, authz.TypeView))
		r.Get("/", h.listDepartments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireDepartment(shared.PermDepartmentsView, authz.TypeView, "departmentID"))
		r.Get("/{departmentID}", h.getDepartment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(shared.PermDepartmentsCreate, authz.TypeCreate))
		r.Post("/", h.createDepartment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireDepartment(shared.PermDepartmentsEdit, authz.TypeEdit, "departmentID"))
		r.Put("/{departmentID}", h.updateDepartment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(shared.PermDepartmentsDelete, authz.TypeDelete))
		r.Delete("/{departmentID}", h.deleteDepartment)
	})
	r.Get("/{departmentID}/users", h.listMembers)
}

type memberResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	IsActive     bool   `json:"isActive"`
	DepartmentID *int64 `json:"departmentId,omitempty"`
}

type departmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool  `json:"isActive"`
}

type departmentResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	UserCount   int       `json:"userCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toDepartmentResponse(d Department) departmentResponse {
	return departmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		UserCount:   d.UserCount,
		CreatedAt:   d.CreatedAt,
	}
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDepartments(r.Context())
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]departmentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toDepartmentResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(d))
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.CreateDepartment(r.Context(), req.Name, req.Description, h.actorID(r))
	if err != nil {
		h.logger.Error("create department", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDepartmentResponse(d))
}

func (h *Handler) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	var req departmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	d, err := h.service.UpdateDepartment(r.Context(), id, req.Name, req.Description, active, h.actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(d))
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), id, h.actorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

// listMembers allows anyone with a global users.view grant, or a users.view
// grant scoped to this department, or the role elevations the engine applies.
func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	allowed := h.engine.HasPermission(r.Context(), actor.UserID, shared.PermUsersView, authz.TypeView) ||
		h.engine.HasDepartmentPermission(r.Context(), actor.UserID, shared.PermUsersView, authz.TypeView, id)
	if !allowed {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+shared.PermUsersView)
		return
	}
	members, err := h.members.ListByDepartment(r.Context(), id)
	if err != nil {
		h.logger.Error("list department users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			ID:           m.ID,
			Email:        m.Email,
			FullName:     m.FullName(),
			IsActive:     m.IsActive,
			DepartmentID: m.DepartmentID,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) departmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "departmentID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid department id")
		return 0, false
	}
	return id, true
}

func (h *Handler) actorID(r *http.Request) string {
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		return actor.UserID
	}
	return ""
}
