package dto

import (
	"time"

	"github.com/Sanjaee/zacode-auth/internal/model"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
	FullName string `json:"full_name" binding:"required,min=2,max=255"`
	UserType string `json:"user_type" binding:"omitempty,oneof=member admin moderator"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	OtpCode string `json:"otp_code" binding:"required,otpcode"`
	Purpose string `json:"type" binding:"omitempty,oneof=email_verification password_reset"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"type" binding:"omitempty,oneof=email_verification password_reset"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OtpCode     string `json:"otp_code" binding:"required,otpcode"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=100"`
}

type GoogleOAuthRequest struct {
	Email        string `json:"email" binding:"required,email"`
	FullName     string `json:"full_name" binding:"required"`
	ProfilePhoto string `json:"profile_photo" binding:"omitempty,url"`
	GoogleID     string `json:"google_id" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse is the full user projection returned by auth operations.
type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	UserType     string     `json:"user_type"`
	ProfilePhoto string     `json:"profile_photo,omitempty"`
	IsVerified   bool       `json:"is_verified"`
	LoginType    string     `json:"login_type"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// VerifiedUser is the minimal projection handed to the session layer after a
// successful OTP verification. Deliberately carries no tokens.
type VerifiedUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	LoginMethod string `json:"login_method"`
	Image       string `json:"image,omitempty"`
}

type RegisterResponse struct {
	Message              string       `json:"message"`
	User                 UserResponse `json:"user"`
	RequiresVerification bool         `json:"requires_verification"`
}

// LoginResponse carries either a token pair or a pending-verification marker.
// VerificationToken echoes the freshly issued OTP so the session layer can
// complete a password-less auto-login once the user verifies.
type LoginResponse struct {
	User                 UserResponse `json:"user"`
	AccessToken          string       `json:"access_token,omitempty"`
	RefreshToken         string       `json:"refresh_token,omitempty"`
	ExpiresIn            int          `json:"expires_in,omitempty"`
	RequiresVerification bool         `json:"requires_verification,omitempty"`
	VerificationToken    string       `json:"verification_token,omitempty"`
}

type VerifyOTPResponse struct {
	Success bool         `json:"success"`
	User    VerifiedUser `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse is the common success payload for flows that end logged in:
// password reset, Google sign-in, and session refresh.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
}

// NewUserResponse projects a model.User.
func NewUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		UserType:     user.UserType,
		ProfilePhoto: user.PhotoURL(),
		IsVerified:   user.IsVerified,
		LoginType:    user.LoginType,
		LastLogin:    user.LastLogin,
		CreatedAt:    user.CreatedAt,
	}
}

// NewVerifiedUser projects a model.User into the session handoff shape.
func NewVerifiedUser(user *model.User) VerifiedUser {
	return VerifiedUser{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.FullName,
		Role:        user.UserType,
		LoginMethod: user.LoginType,
		Image:       user.PhotoURL(),
	}
}
