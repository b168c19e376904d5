package authz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the authorization core.
var (
	// ErrPermissionNotFound indicates no active permission matches a code.
	ErrPermissionNotFound = errors.New("authz: permission not found")
	// ErrActorNotFound indicates the actor is missing or deactivated.
	ErrActorNotFound = errors.New("authz: actor not found")
	// ErrGrantNotFound indicates the referenced grant does not exist.
	ErrGrantNotFound = errors.New("authz: grant not found")
	// ErrUnknownPermission is returned by the write path when a code cannot be resolved.
	ErrUnknownPermission = errors.New("authz: unknown permission code")
	// ErrUnknownDepartment indicates a grant scope references a missing department.
	ErrUnknownDepartment = errors.New("authz: unknown department")
	// ErrSelfOnlyScoped rejects the self-only + department-scope combination,
	// which the decision functions never consult together.
	ErrSelfOnlyScoped = errors.New("authz: self-only grant cannot carry a department scope")
)

// PermissionType is the ordered severity of a grant. Holding a grant of type T
// satisfies every check for a type below T.
type PermissionType int

// Severity levels, lowest to highest.
const (
	TypeView   PermissionType = 1
	TypeCreate PermissionType = 2
	TypeEdit   PermissionType = 3
	TypeDelete PermissionType = 4
	TypeAdmin  PermissionType = 5
)

// Valid reports whether t is one of the defined severity levels.
func (t PermissionType) Valid() bool {
	return t >= TypeView && t <= TypeAdmin
}

// AtLeast reports whether t satisfies a check requiring min.
func (t PermissionType) AtLeast(min PermissionType) bool {
	return t >= min
}

func (t PermissionType) String() string {
	switch t {
	case TypeView:
		return "view"
	case TypeCreate:
		return "create"
	case TypeEdit:
		return "edit"
	case TypeDelete:
		return "delete"
	case TypeAdmin:
		return "admin"
	default:
		return fmt.Sprintf("permissiontype(%d)", int(t))
	}
}

// ParsePermissionType maps a severity name to its PermissionType.
func ParsePermissionType(s string) (PermissionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return TypeView, nil
	case "create":
		return TypeCreate, nil
	case "edit":
		return TypeEdit, nil
	case "delete":
		return TypeDelete, nil
	case "admin":
		return TypeAdmin, nil
	default:
		return 0, fmt.Errorf("authz: invalid permission type %q", s)
	}
}

// Permission is a named capability from the catalog.
type Permission struct {
	ID          int64
	Code        string
	Name        string
	Description string
	IsActive    bool
}

// Grant links a user to a permission at a severity, optionally narrowed to a
// department or to the grantee's own record.
type Grant struct {
	ID                  int64
	UserID              string
	PermissionID        int64
	PermissionCode      string
	PermissionName      string
	Type                PermissionType
	ScopeDepartmentID   *int64
	ScopeDepartmentName string
	SelfOnly            bool
	CreatedAt           time.Time
	CreatedBy           string
}

// Actor is the minimal view of a user the decision engine needs.
type Actor struct {
	ID           string
	DepartmentID *int64
	IsActive     bool
}

// Role names carrying engine overrides.
const (
	RoleAdministrator = "Administrator"
	RoleManager       = "Manager"
)
