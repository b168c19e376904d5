package departments

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	UpdateDepartment(ctx context.Context, d Department) (Department, error)
	ActiveUserCount(ctx context.Context, id int64) (int, error)
	Deactivate(ctx context.Context, id int64) (bool, error)
}

// AuditRecorder persists audit trail entries for department changes.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles department business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

// GetDepartment fetches one department.
func (s *Service) GetDepartment(ctx context.Context, id int64) (Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

// CreateDepartment adds a department.
func (s *Service) CreateDepartment(ctx context.Context, name, description, actorID string) (Department, error) {
	d, err := s.repo.CreateDepartment(ctx, Department{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return Department{}, err
	}
	s.recordAudit(ctx, actorID, "departments.create", d.ID, d.Name)
	return d, nil
}

// UpdateDepartment applies changes to an existing department.
func (s *Service) UpdateDepartment(ctx context.Context, id int64, name, description string, isActive bool, actorID string) (Department, error) {
	d, err := s.repo.UpdateDepartment(ctx, Department{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		IsActive:    isActive,
	})
	if err != nil {
		return Department{}, err
	}
	s.recordAudit(ctx, actorID, "departments.update", d.ID, d.Name)
	return d, nil
}

// DeleteDepartment soft-deletes a department. It refuses while active users
// are still assigned to it.
func (s *Service) DeleteDepartment(ctx context.Context, id int64, actorID string) error {
	n, err := s.repo.ActiveUserCount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ErrDepartmentNotEmpty
	}
	removed, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return shared.ErrNotFound
	}
	s.recordAudit(ctx, actorID, "departments.delete", id, "")
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, id int64, name string) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "department",
		EntityID: strconv.FormatInt(id, 10),
	}
	if name != "" {
		log.Meta = map[string]any{"name": name}
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
