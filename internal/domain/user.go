package domain

import "time"

// Role is the access level of a user account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered account
type User struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	Avatar         *string   `json:"avatar" db:"avatar"`
	Confirmed      bool      `json:"confirmed" db:"confirmed"`
	RefreshToken   *string   `json:"-" db:"refresh_token"`
	Role           Role      `json:"role" db:"role"`
}

// HasRefreshToken reports whether token is the single refresh token currently issued to the user
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && token != "" && *u.RefreshToken == token
}
