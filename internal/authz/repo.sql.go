package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the permission
// catalog, user grants, and the actor view the engine reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindActiveByCode resolves an active permission by code.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, description, is_active
FROM permissions WHERE code = $1 AND is_active`, code).
		Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// ListActivePermissions returns the active catalog ordered by code.
func (r *Repository) ListActivePermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, description, is_active
FROM permissions WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.IsActive); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// HasGrantAtLeast reports whether a matching grant exists.
func (r *Repository) HasGrantAtLeast(ctx context.Context, q GrantQuery) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM user_permissions
WHERE user_id = $1 AND permission_id = $2 AND type >= $3`
	args := []any{q.UserID, q.PermissionID, int(q.MinType)}
	if dept, bound := q.Scope.Department(); bound {
		query += ` AND (scope_department_id IS NULL OR scope_department_id = $4)`
		args = append(args, dept)
	}
	if q.UnrestrictedOnly {
		query += ` AND NOT is_self_only`
	}
	query += `)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListGrants returns the user's grants with permission and scope department
// resolved, newest first.
func (r *Repository) ListGrants(ctx context.Context, userID string) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT up.id, up.user_id, up.permission_id, p.code, p.name,
up.type, up.scope_department_id, COALESCE(d.name, ''), up.is_self_only, up.created_at, COALESCE(up.created_by, '')
FROM user_permissions up
JOIN permissions p ON p.id = up.permission_id
LEFT JOIN departments d ON d.id = up.scope_department_id
WHERE up.user_id = $1
ORDER BY up.created_at DESC, up.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		var typ int
		if err := rows.Scan(&g.ID, &g.UserID, &g.PermissionID, &g.PermissionCode, &g.PermissionName,
			&typ, &g.ScopeDepartmentID, &g.ScopeDepartmentName, &g.SelfOnly, &g.CreatedAt, &g.CreatedBy); err != nil {
			return nil, err
		}
		g.Type = PermissionType(typ)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// UpsertGrantParams carries the write-path fields of a grant.
type UpsertGrantParams struct {
	UserID            string
	PermissionID      int64
	Type              PermissionType
	ScopeDepartmentID *int64
	SelfOnly          bool
	CreatedBy         string
}

// UpsertGrant inserts a grant, or updates the existing row for the same
// (user, permission, type) tuple. The conflict target keeps AddGrant
// idempotent under concurrent requests.
func (r *Repository) UpsertGrant(ctx context.Context, params UpsertGrantParams) (Grant, error) {
	var g Grant
	var typ int
	err := r.pool.QueryRow(ctx, `INSERT INTO user_permissions
(user_id, permission_id, type, scope_department_id, is_self_only, created_at, created_by)
VALUES ($1, $2, $3, $4, $5, NOW(), $6)
ON CONFLICT (user_id, permission_id, type) DO UPDATE
SET scope_department_id = EXCLUDED.scope_department_id,
    is_self_only = EXCLUDED.is_self_only,
    created_by = EXCLUDED.created_by
RETURNING id, user_id, permission_id, type, scope_department_id, is_self_only, created_at, COALESCE(created_by, '')`,
		params.UserID, params.PermissionID, int(params.Type), params.ScopeDepartmentID, params.SelfOnly, params.CreatedBy).
		Scan(&g.ID, &g.UserID, &g.PermissionID, &typ, &g.ScopeDepartmentID, &g.SelfOnly, &g.CreatedAt, &g.CreatedBy)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "fk_user_permissions_scope_department" {
			return Grant{}, ErrUnknownDepartment
		}
		return Grant{}, err
	}
	g.Type = PermissionType(typ)
	return g, nil
}

// DeleteGrant removes a grant by id. Returns false when no row matched.
func (r *Repository) DeleteGrant(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_permissions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindActive resolves an active user into the engine's actor view.
func (r *Repository) FindActive(ctx context.Context, userID string) (Actor, error) {
	var a Actor
	err := r.pool.QueryRow(ctx, `SELECT id, department_id, is_active
FROM users WHERE id = $1 AND is_active`, userID).
		Scan(&a.ID, &a.DepartmentID, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Actor{}, ErrActorNotFound
		}
		return Actor{}, err
	}
	return a, nil
}

// ListOrphanedGrants reports grants whose permission is inactive or whose
// scope department no longer exists. Consumed by the integrity scan job.
func (r *Repository) ListOrphanedGrants(ctx context.Context) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT up.id, up.user_id, up.permission_id, COALESCE(p.code, ''), COALESCE(p.name, ''),
up.type, up.scope_department_id, '', up.is_self_only, up.created_at, COALESCE(up.created_by, '')
FROM user_permissions up
LEFT JOIN permissions p ON p.id = up.permission_id
LEFT JOIN departments d ON d.id = up.scope_department_id
WHERE p.id IS NULL OR NOT p.is_active
   OR (up.scope_department_id IS NOT NULL AND d.id IS NULL)
ORDER BY up.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		var typ int
		if err := rows.Scan(&g.ID, &g.UserID, &g.PermissionID, &g.PermissionCode, &g.PermissionName,
			&typ, &g.ScopeDepartmentID, &g.ScopeDepartmentName, &g.SelfOnly, &g.CreatedAt, &g.CreatedBy); err != nil {
			return nil, err
		}
		g.Type = PermissionType(typ)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
