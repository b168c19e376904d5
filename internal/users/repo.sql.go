package users

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

const userColumns = `u.id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
COALESCE(u.phone, ''), COALESCE(u.address, ''), u.password_hash, u.is_active,
u.department_id, COALESCE(d.name, ''), u.created_at, u.updated_at, u.last_login_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Address,
		&u.PasswordHash, &u.IsActive, &u.DepartmentID, &u.DepartmentName,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// ListUsers returns all users with their department resolved.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+`
FROM users u LEFT JOIN departments d ON d.id = u.department_id
ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListByDepartment returns the active users assigned to a department.
func (r *Repository) ListByDepartment(ctx context.Context, departmentID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+`
FROM users u LEFT JOIN departments d ON d.id = u.department_id
WHERE u.department_id = $1 AND u.is_active
ORDER BY u.created_at, u.id`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+`
FROM users u LEFT JOIN departments d ON d.id = u.department_id
WHERE u.id = $1`, id))
}

// GetByEmail fetches a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+`
FROM users u LEFT JOIN departments d ON d.id = u.department_id
WHERE u.email = $1`, email))
}

// CreateUser inserts a user row.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO users
(id, email, first_name, last_name, phone, address, password_hash, is_active, department_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.Address, u.PasswordHash, u.IsActive, u.DepartmentID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_users_email" {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	return r.GetUser(ctx, u.ID)
}

// UpdateUser updates mutable profile fields.
func (r *Repository) UpdateUser(ctx context.Context, u User) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET
first_name = $2, last_name = $3, phone = $4, address = $5, department_id = $6, is_active = $7, updated_at = NOW()
WHERE id = $1`, u.ID, u.FirstName, u.LastName, u.Phone, u.Address, u.DepartmentID, u.IsActive)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.ErrNotFound
	}
	return r.GetUser(ctx, u.ID)
}

// Deactivate soft-deletes a user. Returns false when no row matched.
func (r *Repository) Deactivate(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TouchLastLogin stamps a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}
