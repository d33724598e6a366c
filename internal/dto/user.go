package dto

import (
	"time"

	"rsedu/internal/model"
)

// TimestampLayout is the wire format of created_at.
const TimestampLayout = "2006-01-02 15:04:05"

// UserResponse is the outward representation of a user. It never carries the password hash.
type UserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at" example:"2025-01-31 08:15:00"`
}

// CreateUserRequest is the payload accepted by POST /users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email" example:"a@b.com"`
	Password string `json:"password" validate:"required,min=8" example:"longenough1"`
	FullName string `json:"full_name" validate:"required,min=2" example:"Ann Lee"`
	Role     string `json:"role" validate:"required,min=1" example:"student"`
}

// UsersListResponse wraps the full user listing.
type UsersListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

// NewUserResponse maps a persisted record to its outward representation.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: FormatTimestamp(u.CreatedAt),
	}
}

// NewUsersListResponse maps records to a listing; Users is never nil so it encodes as [].
func NewUsersListResponse(users []model.User) UsersListResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return UsersListResponse{Users: out, Total: len(out)}
}

// FormatTimestamp renders t as YYYY-MM-DD HH:MM:SS.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
