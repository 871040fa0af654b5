package dto

import (
	"github.com/prperemyshlev/contacts-service/internal/domain"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest is the OAuth2 password form posted to the login endpoint
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// RequestEmailRequest asks for a new confirmation email
type RequestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RefreshRequest carries a refresh token in the body when no Authorization header is sent
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ContactRequest is the full contact body accepted by create and update
type ContactRequest struct {
	FirstName      string       `json:"first_name" binding:"required,max=50"`
	LastName       string       `json:"last_name" binding:"required,max=50"`
	Email          string       `json:"email" binding:"required,email,max=100"`
	Phone          string       `json:"phone" binding:"required,max=15"`
	BirthDate      *domain.Date `json:"birth_date" binding:"required"`
	AdditionalData *string      `json:"additional_data" binding:"omitempty,max=250"`
}

// Fields converts the request to the mutable contact fields
func (r *ContactRequest) Fields() domain.ContactFields {
	fields := domain.ContactFields{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		AdditionalData: r.AdditionalData,
	}
	if r.BirthDate != nil {
		fields.BirthDate = *r.BirthDate
	}
	return fields
}

// ContactQuery holds list query parameters
type ContactQuery struct {
	Skip  *int   `form:"skip"`
	Limit *int   `form:"limit"`
	Query string `form:"query"`
}
