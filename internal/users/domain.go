package users

import "time"

// User represents a user account.
type User struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	Address        string
	PasswordHash   string
	IsActive       bool
	DepartmentID   *int64
	DepartmentName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// FullName combines first and last name for display.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
