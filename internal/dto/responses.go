package dto

import (
	"github.com/prperemyshlev/contacts-service/internal/domain"
)

// UserResponse is the public view of a user
type UserResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Avatar   *string     `json:"avatar"`
	Role     domain.Role `json:"role"`
}

// NewUserResponse builds the public view of user
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Avatar:   user.Avatar,
		Role:     user.Role,
	}
}

// MessageResponse represents a plain message response
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error response.
// Detail is a string, or a list of FieldError for validation failures.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// FieldError describes one invalid request field
type FieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}
