package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/authz"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for roles and role
// membership. It doubles as the decision engine's RoleDirectory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ authz.RoleDirectory = (*Repository)(nil)

// ListRoles returns all active roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, ''), is_active, created_at
FROM roles WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// FindByName resolves an active role by name.
func (r *Repository) FindByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(description, ''), is_active, created_at
FROM roles WHERE name = $1 AND is_active`, name).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// RolesOf returns the names of the roles the user holds.
func (r *Repository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.name FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1 ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// IsAdministrator reports whether the user holds the Administrator role.
func (r *Repository) IsAdministrator(ctx context.Context, userID string) (bool, error) {
	return r.holdsRole(ctx, userID, authz.RoleAdministrator)
}

// IsManager reports whether the user holds the Manager role.
func (r *Repository) IsManager(ctx context.Context, userID string) (bool, error) {
	return r.holdsRole(ctx, userID, authz.RoleManager)
}

func (r *Repository) holdsRole(ctx context.Context, userID, roleName string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1 AND r.name = $2)`, userID, roleName).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// DepartmentOf returns the user's department id, nil when unassigned.
func (r *Repository) DepartmentOf(ctx context.Context, userID string) (*int64, error) {
	var departmentID *int64
	err := r.pool.QueryRow(ctx, `SELECT department_id FROM users WHERE id = $1`, userID).Scan(&departmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return departmentID, nil
}

// Assign attaches a role to a user. Re-assigning an existing membership is a
// no-op.
func (r *Repository) Assign(ctx context.Context, userID string, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, created_at)
VALUES ($1, $2, NOW()) ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	return err
}

// Remove detaches a role from a user. Returns false when no membership matched.
func (r *Repository) Remove(ctx context.Context, userID string, roleID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
