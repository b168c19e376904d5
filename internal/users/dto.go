package users

import "time"

type registerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FirstName    string `json:"firstName" validate:"required,max=50"`
	LastName     string `json:"lastName" validate:"required,max=50"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	Address      string `json:"address" validate:"omitempty,max=200"`
	DepartmentID *int64 `json:"departmentId" validate:"omitempty,gt=0"`
}

type updateRequest struct {
	FirstName    string `json:"firstName" validate:"required,max=50"`
	LastName     string `json:"lastName" validate:"required,max=50"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	Address      string `json:"address" validate:"omitempty,max=200"`
	DepartmentID *int64 `json:"departmentId" validate:"omitempty,gt=0"`
	IsActive     *bool  `json:"isActive"`
}

type userResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	FullName       string     `json:"fullName"`
	Phone          string     `json:"phone,omitempty"`
	Address        string     `json:"address,omitempty"`
	IsActive       bool       `json:"isActive"`
	DepartmentID   *int64     `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		Phone:          u.Phone,
		Address:        u.Address,
		IsActive:       u.IsActive,
		DepartmentID:   u.DepartmentID,
		DepartmentName: u.DepartmentName,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

func toUserResponses(users []User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}
