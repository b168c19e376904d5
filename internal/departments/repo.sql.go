package departments

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

const departmentColumns = `d.id, d.name, COALESCE(d.description, ''), d.is_active,
(SELECT COUNT(*) FROM users u WHERE u.department_id = d.id AND u.is_active),
d.created_at, d.updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.IsActive, &d.UserCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return d, nil
}

// ListDepartments returns every department with its active member count.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+`
FROM departments d ORDER BY d.name, d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDepartment fetches one department.
func (r *Repository) GetDepartment(ctx context.Context, id int64) (Department, error) {
	return scanDepartment(r.pool.QueryRow(ctx, `SELECT `+departmentColumns+`
FROM departments d WHERE d.id = $1`, id))
}

// CreateDepartment inserts a department row.
func (r *Repository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO departments (name, description, is_active, created_at, updated_at)
VALUES ($1, $2, TRUE, NOW(), NOW()) RETURNING id`, d.Name, d.Description).Scan(&id)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_departments_name" {
			return Department{}, shared.ErrDuplicate
		}
		return Department{}, err
	}
	return r.GetDepartment(ctx, id)
}

// UpdateDepartment updates mutable fields.
func (r *Repository) UpdateDepartment(ctx context.Context, d Department) (Department, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET
name = $2, description = $3, is_active = $4, updated_at = NOW() WHERE id = $1`,
		d.ID, d.Name, d.Description, d.IsActive)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_departments_name" {
			return Department{}, shared.ErrDuplicate
		}
		return Department{}, err
	}
	if tag.RowsAffected() == 0 {
		return Department{}, shared.ErrNotFound
	}
	return r.GetDepartment(ctx, d.ID)
}

// ActiveUserCount counts active members of a department.
func (r *Repository) ActiveUserCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE department_id = $1 AND is_active`, id).Scan(&n)
	return n, err
}

// Deactivate soft-deletes a department. Returns false when no row matched.
func (r *Repository) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
