package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultRole is attached to every self-registered user.
const DefaultRole = "Staff"

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	Deactivate(ctx context.Context, id string) (bool, error)
}

// StarterGrants attaches the registration permission set to a new user.
type StarterGrants interface {
	GrantStarterSet(ctx context.Context, userID, grantedBy string) error
}

// RoleAssigner attaches the default role to a new user.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, roleName, assignedBy string) error
}

// Service handles user business logic.
type Service struct {
	repo       RepositoryPort
	grants     StarterGrants
	roles      RoleAssigner
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, grants StarterGrants, roles RoleAssigner, logger *slog.Logger, bcryptCost int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, grants: grants, roles: roles, logger: logger, bcryptCost: bcryptCost}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// ListByDepartment returns active users of a department.
func (s *Service) ListByDepartment(ctx context.Context, departmentID int64) ([]User, error) {
	return s.repo.ListByDepartment(ctx, departmentID)
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// GetByEmail fetches a user by email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	DepartmentID *int64
	RegisteredBy string
}

// Register creates an active user with a hashed password, the default role,
// and the starter permission set.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return User{}, err
	}

	user, err := s.repo.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
		PasswordHash: string(hash),
		IsActive:     true,
		DepartmentID: input.DepartmentID,
	})
	if err != nil {
		return User{}, err
	}

	createdBy := input.RegisteredBy
	if createdBy == "" {
		createdBy = user.ID
	}
	if s.roles != nil {
		if err := s.roles.AssignRole(ctx, user.ID, DefaultRole, createdBy); err != nil {
			s.logger.Warn("assign default role", slog.String("user", user.ID), slog.Any("error", err))
		}
	}
	if s.grants != nil {
		if err := s.grants.GrantStarterSet(ctx, user.ID, createdBy); err != nil {
			s.logger.Warn("grant starter set", slog.String("user", user.ID), slog.Any("error", err))
		}
	}
	return user, nil
}

// UpdateInput carries the updatable profile fields.
type UpdateInput struct {
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	DepartmentID *int64
	IsActive     *bool
}

// UpdateUser applies profile changes to an existing user.
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateInput) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.FirstName = strings.TrimSpace(input.FirstName)
	user.LastName = strings.TrimSpace(input.LastName)
	user.Phone = strings.TrimSpace(input.Phone)
	user.Address = strings.TrimSpace(input.Address)
	user.DepartmentID = input.DepartmentID
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	return s.repo.UpdateUser(ctx, user)
}

// DeactivateUser soft-deletes a user. Returns false when the user is missing
// or already inactive.
func (s *Service) DeactivateUser(ctx context.Context, id string) (bool, error) {
	return s.repo.Deactivate(ctx, id)
}

// VerifyPassword checks a candidate password against the stored hash.
func (s *Service) VerifyPassword(user User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
