package models

import (
	"github.com/google/uuid"
)

// UserProfile mirrors the profiles table. ID is the hosted-backend auth user id.
type UserProfile struct {
	Base
	DisplayName string     `json:"display_name" validate:"max=80"`
	CoupleID    *uuid.UUID `json:"couple_id"`
	AvatarURL   string     `json:"avatar_url"`
}

type UpdateProfileRequest struct {
	DisplayName *string    `json:"display_name,omitempty" validate:"omitempty,min=1,max=80"`
	CoupleID    *uuid.UUID `json:"couple_id,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" validate:"max=80"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Session is what the auth endpoints hand back to the client.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
}
