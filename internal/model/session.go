package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session backs a live refresh token. Refresh rotates the token value and
// extends the expiry in place; the row identity persists.
type Session struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID       string    `gorm:"column:user_id;type:uuid;index;not null"`
	RefreshToken string    `gorm:"column:refresh_token;uniqueIndex;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UserAgent    *string   `gorm:"column:user_agent"`
	IPAddress    *string   `gorm:"column:ip_address;size:45"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
