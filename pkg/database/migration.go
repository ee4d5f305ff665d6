package database

import (
	"github.com/Sanjaee/zacode-auth/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the auth schema. Users own their sessions
// and OTP codes; deleting a user cascades to both.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.OtpCode{},
	)
}
