package dto

import "time"

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128" example:"admin"`
	Password string `json:"password" validate:"required,max=256" example:"s3cret"`
}

type LoginResponse struct {
	Status    string    `json:"status" example:"ok"`
	Session   string    `json:"session" example:"4b1d6f0e9a2c48d7b3e5a1c0f9d8e7b6"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateTokenRequest issues a token. Token is generated when omitted.
type CreateTokenRequest struct {
	Name  string `json:"name" validate:"required,max=64" example:"node-1"`
	Token string `json:"token,omitempty" validate:"omitempty,min=16,max=128"`
}

type CreateTokenResponse struct {
	Status string `json:"status" example:"created"`
	Name   string `json:"name" example:"node-1"`
	Token  string `json:"token" example:"9f2c4e1a7b3d5f60812a4c6e8b0d2f41"`
}
