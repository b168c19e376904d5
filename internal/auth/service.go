package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlas-bms/atlas-bms/internal/shared"
	"github.com/atlas-bms/atlas-bms/internal/users"
)

// UserDirectory resolves accounts for credential checks.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
	VerifyPassword(user users.User, password string) bool
}

// RoleDirectory resolves the roles attached to an account.
type RoleDirectory interface {
	RolesOf(ctx context.Context, userID string) ([]string, error)
}

// LoginStamper records successful logins.
type LoginStamper interface {
	TouchLastLogin(ctx context.Context, id string) error
}

// Service wraps authentication business rules.
type Service struct {
	users   UserDirectory
	roles   RoleDirectory
	stamper LoginStamper
	tokens  *TokenIssuer
	logger  *slog.Logger
}

// NewService constructs a new Service.
func NewService(userDir UserDirectory, roleDir RoleDirectory, stamper LoginStamper, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: userDir, roles: roleDir, stamper: stamper, tokens: tokens, logger: logger}
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      users.User
	Roles     []string
}

// Login validates credentials and issues a bearer token. Any credential
// failure maps to the same error so callers cannot probe for accounts.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive || !s.users.VerifyPassword(user, password) {
		return Session{}, shared.ErrInvalidCredentials
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, roles)
	if err != nil {
		return Session{}, err
	}

	if s.stamper != nil {
		if err := s.stamper.TouchLastLogin(ctx, user.ID); err != nil {
			s.logger.Warn("touch last login", slog.String("user", user.ID), slog.Any("error", err))
		}
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user, Roles: roles}, nil
}
