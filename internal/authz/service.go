package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Starter permission codes granted to every new user.
var StarterCodes = []string{shared.PermSelfView, shared.PermSelfEdit}

// GrantRepository extends the read port with the grant write path.
type GrantRepository interface {
	GrantStore
	ListGrants(ctx context.Context, userID string) ([]Grant, error)
	UpsertGrant(ctx context.Context, params UpsertGrantParams) (Grant, error)
	DeleteGrant(ctx context.Context, id int64) (bool, error)
}

// AuditRecorder persists audit trail entries for grant mutations.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the grant lifecycle. Reads are delegated to the Engine;
// this is the only write surface of the authorization core.
type Service struct {
	catalog Catalog
	grants  GrantRepository
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(catalog Catalog, grants GrantRepository, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalog, grants: grants, audit: audit, logger: logger}
}

// ListGrants returns the user's grants with permission and scope resolved.
func (s *Service) ListGrants(ctx context.Context, userID string) ([]Grant, error) {
	return s.grants.ListGrants(ctx, userID)
}

// AddGrantInput describes a grant request.
type AddGrantInput struct {
	UserID            string
	Code              string
	Type              PermissionType
	ScopeDepartmentID *int64
	SelfOnly          bool
	GrantedBy         string
}

// AddGrant resolves the permission code and upserts the grant. Re-granting the
// same (user, permission, type) tuple updates the existing row. Unlike the
// read path, an unresolved code fails loudly here: the caller asked for a
// mutation that cannot be satisfied.
func (s *Service) AddGrant(ctx context.Context, input AddGrantInput) (Grant, error) {
	if !input.Type.Valid() {
		return Grant{}, fmt.Errorf("authz: invalid permission type %d", int(input.Type))
	}
	if input.SelfOnly && input.ScopeDepartmentID != nil {
		return Grant{}, ErrSelfOnlyScoped
	}

	perm, err := s.catalog.FindActiveByCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, ErrPermissionNotFound) {
			return Grant{}, fmt.Errorf("%w: %s", ErrUnknownPermission, input.Code)
		}
		return Grant{}, err
	}

	grant, err := s.grants.UpsertGrant(ctx, UpsertGrantParams{
		UserID:            input.UserID,
		PermissionID:      perm.ID,
		Type:              input.Type,
		ScopeDepartmentID: input.ScopeDepartmentID,
		SelfOnly:          input.SelfOnly,
		CreatedBy:         input.GrantedBy,
	})
	if err != nil {
		return Grant{}, err
	}
	grant.PermissionCode = perm.Code
	grant.PermissionName = perm.Name

	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  input.GrantedBy,
		Action:   "authz.grant.add",
		Entity:   "user_permission",
		EntityID: strconv.FormatInt(grant.ID, 10),
		Meta: map[string]any{
			"user":       input.UserID,
			"permission": perm.Code,
			"type":       input.Type.String(),
		},
	})
	return grant, nil
}

// RemoveGrant deletes a grant by id. A missing grant is a normal false, not an
// error, and has no side effects.
func (s *Service) RemoveGrant(ctx context.Context, grantID int64, removedBy string) (bool, error) {
	removed, err := s.grants.DeleteGrant(ctx, grantID)
	if err != nil {
		return false, err
	}
	if removed {
		s.recordAudit(ctx, shared.AuditLog{
			ActorID:  removedBy,
			Action:   "authz.grant.remove",
			Entity:   "user_permission",
			EntityID: strconv.FormatInt(grantID, 10),
		})
	}
	return removed, nil
}

// GrantStarterSet attaches the fixed registration grants to a new user.
func (s *Service) GrantStarterSet(ctx context.Context, userID, grantedBy string) error {
	for _, code := range StarterCodes {
		if _, err := s.AddGrant(ctx, AddGrantInput{
			UserID:    userID,
			Code:      code,
			Type:      TypeView,
			GrantedBy: grantedBy,
		}); err != nil {
			return fmt.Errorf("starter grant %s: %w", code, err)
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("authz audit record", slog.Any("error", err))
	}
}
