package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

type memoryGrantRepo struct {
	rows   map[string]Grant // key: user|permission|type
	nextID int64
}

func newMemoryGrantRepo() *memoryGrantRepo {
	return &memoryGrantRepo{rows: make(map[string]Grant)}
}

func tupleKey(userID string, permissionID int64, typ PermissionType) string {
	return fmt.Sprintf("%s|%d|%d", userID, permissionID, int(typ))
}

func (r *memoryGrantRepo) HasGrantAtLeast(_ context.Context, q GrantQuery) (bool, error) {
	for _, g := range r.rows {
		if g.UserID == q.UserID && g.PermissionID == q.PermissionID && g.Type.AtLeast(q.MinType) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryGrantRepo) ListGrants(_ context.Context, userID string) ([]Grant, error) {
	var grants []Grant
	for _, g := range r.rows {
		if g.UserID == userID {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

func (r *memoryGrantRepo) UpsertGrant(_ context.Context, params UpsertGrantParams) (Grant, error) {
	key := tupleKey(params.UserID, params.PermissionID, params.Type)
	if existing, ok := r.rows[key]; ok {
		existing.ScopeDepartmentID = params.ScopeDepartmentID
		existing.SelfOnly = params.SelfOnly
		existing.CreatedBy = params.CreatedBy
		r.rows[key] = existing
		return existing, nil
	}
	r.nextID++
	grant := Grant{
		ID:                r.nextID,
		UserID:            params.UserID,
		PermissionID:      params.PermissionID,
		Type:              params.Type,
		ScopeDepartmentID: params.ScopeDepartmentID,
		SelfOnly:          params.SelfOnly,
		CreatedBy:         params.CreatedBy,
	}
	r.rows[key] = grant
	return grant, nil
}

func (r *memoryGrantRepo) DeleteGrant(_ context.Context, id int64) (bool, error) {
	for key, g := range r.rows {
		if g.ID == id {
			delete(r.rows, key)
			return true, nil
		}
	}
	return false, nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func serviceFixture() (*Service, *memoryGrantRepo, *memoryAudit) {
	catalog := &stubCatalog{perms: map[string]Permission{
		"users.edit": {ID: 1, Code: "users.edit", Name: "Manage users", IsActive: true},
		"self.view":  {ID: 10, Code: "self.view", Name: "View own record", IsActive: true},
		"self.edit":  {ID: 11, Code: "self.edit", Name: "Edit own record", IsActive: true},
	}}
	repo := newMemoryGrantRepo()
	audit := &memoryAudit{}
	return NewService(catalog, repo, audit, nil), repo, audit
}

func TestAddGrantResolvesCode(t *testing.T) {
	svc, repo, audit := serviceFixture()

	grant, err := svc.AddGrant(context.Background(), AddGrantInput{
		UserID: "u1", Code: "users.edit", Type: TypeEdit, GrantedBy: "admin",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), grant.PermissionID)
	require.Equal(t, "users.edit", grant.PermissionCode)
	require.Len(t, repo.rows, 1)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "authz.grant.add", audit.logs[0].Action)
}

func TestAddGrantIsIdempotentPerTuple(t *testing.T) {
	svc, repo, _ := serviceFixture()

	first, err := svc.AddGrant(context.Background(), AddGrantInput{UserID: "u1", Code: "users.edit", Type: TypeEdit})
	require.NoError(t, err)
	second, err := svc.AddGrant(context.Background(), AddGrantInput{UserID: "u1", Code: "users.edit", Type: TypeEdit})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.rows, 1)
	require.Equal(t, TypeEdit, second.Type)
}

func TestAddGrantUnknownCodeFailsLoudly(t *testing.T) {
	svc, repo, _ := serviceFixture()

	_, err := svc.AddGrant(context.Background(), AddGrantInput{UserID: "u1", Code: "no.such.code", Type: TypeView})
	require.ErrorIs(t, err, ErrUnknownPermission)
	require.Empty(t, repo.rows)
}

func TestAddGrantRejectsSelfOnlyWithDepartmentScope(t *testing.T) {
	svc, _, _ := serviceFixture()

	dept := int64(3)
	_, err := svc.AddGrant(context.Background(), AddGrantInput{
		UserID: "u1", Code: "users.edit", Type: TypeView, ScopeDepartmentID: &dept, SelfOnly: true,
	})
	require.ErrorIs(t, err, ErrSelfOnlyScoped)
}

func TestAddGrantRejectsInvalidType(t *testing.T) {
	svc, _, _ := serviceFixture()

	_, err := svc.AddGrant(context.Background(), AddGrantInput{UserID: "u1", Code: "users.edit", Type: PermissionType(9)})
	require.Error(t, err)
}

func TestRemoveGrantMissingIsFalseNotError(t *testing.T) {
	svc, _, audit := serviceFixture()

	removed, err := svc.RemoveGrant(context.Background(), 12345, "admin")
	require.NoError(t, err)
	require.False(t, removed)
	require.Empty(t, audit.logs)
}

func TestRemoveGrantDeletesAndAudits(t *testing.T) {
	svc, repo, audit := serviceFixture()

	grant, err := svc.AddGrant(context.Background(), AddGrantInput{UserID: "u1", Code: "users.edit", Type: TypeView})
	require.NoError(t, err)

	removed, err := svc.RemoveGrant(context.Background(), grant.ID, "admin")
	require.NoError(t, err)
	require.True(t, removed)
	require.Empty(t, repo.rows)
	require.Equal(t, "authz.grant.remove", audit.logs[len(audit.logs)-1].Action)
}

func TestGrantStarterSet(t *testing.T) {
	svc, repo, _ := serviceFixture()

	require.NoError(t, svc.GrantStarterSet(context.Background(), "u9", "system"))
	grants, err := svc.ListGrants(context.Background(), "u9")
	require.NoError(t, err)
	require.Len(t, grants, 2)

	codes := map[int64]bool{}
	for _, g := range grants {
		codes[g.PermissionID] = true
		require.Equal(t, TypeView, g.Type)
	}
	require.True(t, codes[10])
	require.True(t, codes[11])
	require.Len(t, repo.rows, 2)
}
