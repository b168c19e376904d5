package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

type memoryRepo struct {
	roles       map[string]Role
	memberships map[string][]int64 // userID -> roleIDs
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles: map[string]Role{
			"Administrator": {ID: 1, Name: "Administrator", IsActive: true},
			"Manager":       {ID: 2, Name: "Manager", IsActive: true},
			"Staff":         {ID: 3, Name: "Staff", IsActive: true},
		},
		memberships: make(map[string][]int64),
	}
}

func (r *memoryRepo) ListRoles(_ context.Context) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *memoryRepo) FindByName(_ context.Context, name string) (Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *memoryRepo) RolesOf(_ context.Context, userID string) ([]string, error) {
	var names []string
	for _, id := range r.memberships[userID] {
		for _, role := range r.roles {
			if role.ID == id {
				names = append(names, role.Name)
			}
		}
	}
	return names, nil
}

func (r *memoryRepo) Assign(_ context.Context, userID string, roleID int64) error {
	for _, id := range r.memberships[userID] {
		if id == roleID {
			return nil
		}
	}
	r.memberships[userID] = append(r.memberships[userID], roleID)
	return nil
}

func (r *memoryRepo) Remove(_ context.Context, userID string, roleID int64) (bool, error) {
	ids := r.memberships[userID]
	for i, id := range ids {
		if id == roleID {
			r.memberships[userID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	require.NoError(t, svc.AssignRole(context.Background(), "u1", "Manager", "admin-1"))
	require.NoError(t, svc.AssignRole(context.Background(), "u1", " Manager ", "admin-1"))

	names, err := svc.RolesOf(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"Manager"}, names)
	require.Equal(t, []string{"roles.assign", "roles.assign"}, audit.actions)
}

func TestAssignUnknownRole(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	err := svc.AssignRole(context.Background(), "u1", "Overlord", "admin-1")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveRole(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	require.NoError(t, svc.AssignRole(context.Background(), "u1", "Staff", "admin-1"))

	removed, err := svc.RemoveRole(context.Background(), "u1", "Staff", "admin-1")
	require.NoError(t, err)
	require.True(t, removed)

	// Removing a membership the user does not hold is a quiet false and
	// leaves no audit entry.
	removed, err = svc.RemoveRole(context.Background(), "u1", "Staff", "admin-1")
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, []string{"roles.assign", "roles.remove"}, audit.actions)
}
