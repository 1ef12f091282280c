package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest captures the email for the verification-code flow.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginResponse acknowledges the login request. In non-production
// environments the generated code is included to ease manual testing.
type LoginResponse struct {
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expires_in"`
	DevCode   string `json:"dev_code,omitempty"`
}

// VerifyRequest exchanges an emailed 4-digit code for an access token.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// SelectRoleRequest asks for a fresh token carrying the chosen role.
type SelectRoleRequest struct {
	Role Role `json:"role" validate:"required"`
}

// TokenResponse returns an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// ChangePasswordRequest payload for the settings security tab.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}
