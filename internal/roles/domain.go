package roles

import "time"

// Role represents a named role users can hold.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// Membership links a user to a role.
type Membership struct {
	UserID    string
	RoleID    int64
	RoleName  string
	CreatedAt time.Time
}
