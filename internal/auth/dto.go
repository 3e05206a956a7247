package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/storelyhq/storely-backend/pkg/db/models"
)

// RegisterRequest is the validated registration payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the validated login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordResetRequest asks for a password reset link.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the validated password reset payload.
type ResetPasswordRequest struct {
	Token              string `json:"token" validate:"required"`
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required"`
}

// UserDTO is the account payload returned to clients.
type UserDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// LoginResponse carries the minted access token and the account it belongs to.
type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	User        UserDTO `json:"user"`
}

// AdminLoginResponse carries the minted back-office access token.
type AdminLoginResponse struct {
	AccessToken string    `json:"access_token"`
	AdminID     uuid.UUID `json:"admin_id"`
	Name        string    `json:"name"`
}

func toUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:            user.UUID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerifiedAt != nil,
		CreatedAt:     user.CreatedAt,
	}
}
