package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User types
const (
	UserTypeMember    = "member"
	UserTypeAdmin     = "admin"
	UserTypeModerator = "moderator"
)

// Login types. An account is bound to exactly one method at creation and the
// engine rejects cross-method logins.
const (
	LoginTypeCredential = "credential"
	LoginTypeGoogle     = "google"
)

var ErrLoginTypeMismatch = errors.New("login type does not match stored identity fields")

type User struct {
	ID           string     `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;size:255;uniqueIndex;not null"`
	Username     *string    `gorm:"column:username;size:50;uniqueIndex"`
	Phone        *string    `gorm:"column:phone;size:20"`
	FullName     string     `gorm:"column:full_name;size:255;not null"`
	Password     *string    `gorm:"column:password"` // nil for Google accounts
	UserType     string     `gorm:"column:user_type;size:20;default:member;not null"`
	ProfilePhoto *string    `gorm:"column:profile_photo"`
	IsActive     bool       `gorm:"column:is_active;default:true;not null"`
	IsVerified   bool       `gorm:"column:is_verified;default:false;not null"`
	LastLogin    *time.Time `gorm:"column:last_login"`
	LoginType    string     `gorm:"column:login_type;size:20;default:credential;not null"`
	GoogleID     *string    `gorm:"column:google_id;size:255;uniqueIndex"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`

	Sessions []Session `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	OtpCodes []OtpCode `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return u.checkLoginType()
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	return u.checkLoginType()
}

// checkLoginType guards the credential-vs-google exclusion at the model
// boundary: a credential account never carries a Google subject without a
// password, and a Google account never carries a password.
func (u *User) checkLoginType() error {
	switch u.LoginType {
	case LoginTypeCredential:
		if u.Password == nil && u.GoogleID != nil {
			return ErrLoginTypeMismatch
		}
	case LoginTypeGoogle:
		if u.Password != nil {
			return ErrLoginTypeMismatch
		}
	}
	return nil
}

// PhotoURL returns the profile photo or an empty string.
func (u *User) PhotoURL() string {
	if u.ProfilePhoto == nil {
		return ""
	}
	return *u.ProfilePhoto
}
