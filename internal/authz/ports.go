package authz

import "context"

// ScopeFilter narrows grant matching by department scope. The zero value
// matches grants of any scope.
type ScopeFilter struct {
	departmentID int64
	bound        bool
}

// AnyScope matches grants regardless of their department scope.
func AnyScope() ScopeFilter { return ScopeFilter{} }

// DepartmentScope matches global grants and grants scoped to the given
// department. A grant scoped to a different department never matches.
func DepartmentScope(id int64) ScopeFilter {
	return ScopeFilter{departmentID: id, bound: true}
}

// Department returns the filter's department id, and whether the filter is
// bound to one.
func (f ScopeFilter) Department() (int64, bool) {
	return f.departmentID, f.bound
}

// GrantQuery describes a grant existence check.
type GrantQuery struct {
	UserID       string
	PermissionID int64
	MinType      PermissionType
	Scope        ScopeFilter
	// UnrestrictedOnly excludes self-only grants from matching.
	UnrestrictedOnly bool
}

// Catalog looks up permissions by code.
type Catalog interface {
	// FindActiveByCode resolves an active permission. Returns
	// ErrPermissionNotFound when no active permission carries the code;
	// absence is a normal "no" answer, not a failure.
	FindActiveByCode(ctx context.Context, code string) (Permission, error)
}

// GrantStore answers grant existence checks.
type GrantStore interface {
	// HasGrantAtLeast reports whether a grant exists with type >= q.MinType
	// matching q.Scope (and, when q.UnrestrictedOnly, SelfOnly = false).
	HasGrantAtLeast(ctx context.Context, q GrantQuery) (bool, error)
}

// RoleDirectory is a read-only view of role membership.
type RoleDirectory interface {
	RolesOf(ctx context.Context, userID string) ([]string, error)
	IsAdministrator(ctx context.Context, userID string) (bool, error)
	IsManager(ctx context.Context, userID string) (bool, error)
}

// ActorDirectory resolves actors for decision evaluation.
type ActorDirectory interface {
	// FindActive returns the actor when it exists and is active, and
	// ErrActorNotFound otherwise.
	FindActive(ctx context.Context, userID string) (Actor, error)
}
