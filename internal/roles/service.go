package roles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// RepositoryPort defines data access methods for role management.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindByName(ctx context.Context, name string) (Role, error)
	RolesOf(ctx context.Context, userID string) ([]string, error)
	Assign(ctx context.Context, userID string, roleID int64) error
	Remove(ctx context.Context, userID string, roleID int64) (bool, error)
}

// AuditRecorder persists audit trail entries for membership changes.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles role membership business logic.
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

// ListRoles returns all active roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// RolesOf returns the role names a user holds.
func (s *Service) RolesOf(ctx context.Context, userID string) ([]string, error) {
	return s.repo.RolesOf(ctx, userID)
}

// AssignRole attaches the named role to a user.
func (s *Service) AssignRole(ctx context.Context, userID, roleName, assignedBy string) error {
	role, err := s.repo.FindByName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return err
	}
	if err := s.repo.Assign(ctx, userID, role.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  assignedBy,
		Action:   "roles.assign",
		Entity:   "user_role",
		EntityID: userID,
		Meta:     map[string]any{"role": role.Name},
	})
	return nil
}

// RemoveRole detaches the named role from a user. A missing membership is a
// normal false.
func (s *Service) RemoveRole(ctx context.Context, userID, roleName, removedBy string) (bool, error) {
	role, err := s.repo.FindByName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return false, err
	}
	removed, err := s.repo.Remove(ctx, userID, role.ID)
	if err != nil {
		return false, err
	}
	if removed {
		s.recordAudit(ctx, shared.AuditLog{
			ActorID:  removedBy,
			Action:   "roles.remove",
			Entity:   "user_role",
			EntityID: userID,
			Meta:     map[string]any{"role": role.Name},
		})
	}
	return removed, nil
}

func (s *Service) recordAudit(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("roles audit record", slog.Any("error", err))
	}
}
