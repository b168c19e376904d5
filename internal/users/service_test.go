package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

type memoryRepo struct {
	users map[string]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]User)}
}

func (r *memoryRepo) ListUsers(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) ListByDepartment(_ context.Context, departmentID int64) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.IsActive && u.DepartmentID != nil && *u.DepartmentID == departmentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetUser(_ context.Context, id string) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryRepo) CreateUser(_ context.Context, u User) (User, error) {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *memoryRepo) UpdateUser(_ context.Context, u User) (User, error) {
	if _, ok := r.users[u.ID]; !ok {
		return User{}, shared.ErrNotFound
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *memoryRepo) Deactivate(_ context.Context, id string) (bool, error) {
	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return false, nil
	}
	u.IsActive = false
	r.users[id] = u
	return true, nil
}

type recordingGrants struct {
	granted []string
}

func (g *recordingGrants) GrantStarterSet(_ context.Context, userID, _ string) error {
	g.granted = append(g.granted, userID)
	return nil
}

type recordingRoles struct {
	assigned map[string]string
}

func (r *recordingRoles) AssignRole(_ context.Context, userID, roleName, _ string) error {
	if r.assigned == nil {
		r.assigned = make(map[string]string)
	}
	r.assigned[userID] = roleName
	return nil
}

func TestRegisterCreatesActiveUserWithDefaults(t *testing.T) {
	repo := newMemoryRepo()
	grants := &recordingGrants{}
	roles := &recordingRoles{}
	svc := NewService(repo, grants, roles, nil, 4)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     "  Jane.Doe@Example.COM ",
		Password:  "s3cret-pass",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	require.Equal(t, "jane.doe@example.com", user.Email)
	require.True(t, user.IsActive)
	require.NotEmpty(t, user.ID)
	require.NotEqual(t, "s3cret-pass", user.PasswordHash)
	require.True(t, svc.VerifyPassword(user, "s3cret-pass"))
	require.False(t, svc.VerifyPassword(user, "wrong"))

	require.Equal(t, []string{user.ID}, grants.granted)
	require.Equal(t, DefaultRole, roles.assigned[user.ID])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, 4)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "password1", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "password2", FirstName: "A", LastName: "B"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateUserMissing(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil, 4)

	_, err := svc.UpdateUser(context.Background(), "ghost", UpdateInput{FirstName: "X", LastName: "Y"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, 4)

	user, err := svc.Register(context.Background(), RegisterInput{Email: "c@d.co", Password: "password1", FirstName: "C", LastName: "D"})
	require.NoError(t, err)

	removed, err := svc.DeactivateUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, removed)

	// Second deactivation is a no-op, missing users likewise.
	removed, err = svc.DeactivateUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, removed)
	removed, err = svc.DeactivateUser(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestFullName(t *testing.T) {
	require.Equal(t, "Jane Doe", User{FirstName: "Jane", LastName: "Doe"}.FullName())
	require.Equal(t, "Jane", User{FirstName: "Jane"}.FullName())
	require.Equal(t, "Doe", User{LastName: "Doe"}.FullName())
}
