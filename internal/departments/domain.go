package departments

import "time"

// Department groups users for scoped permission checks.
type Department struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	UserCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
