package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTP purposes
const (
	OTPPurposeEmailVerification = "email_verification"
	OTPPurposePasswordReset     = "password_reset"
)

// OtpCode is a single-use verification artifact. A code is valid while it is
// unused, unexpired, its purpose matches, and it belongs to the user resolved
// by the supplied email. Expired rows are inert, never purged here.
type OtpCode struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string    `gorm:"column:user_id;type:uuid;index;not null"`
	Email     string    `gorm:"column:email;size:255;not null"`
	OtpCode   string    `gorm:"column:otp_code;size:6;not null"`
	Purpose   string    `gorm:"column:type;size:50;not null"`
	IsUsed    bool      `gorm:"column:is_used;default:false;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (OtpCode) TableName() string {
	return "otp_codes"
}

func (o *OtpCode) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
