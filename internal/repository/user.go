package repository

import (
	"context"
	"time"

	"github.com/Sanjaee/zacode-auth/internal/model"
	ctxutil "github.com/Sanjaee/zacode-auth/pkg/context"
	"github.com/Sanjaee/zacode-auth/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail finds a user by email. Returns gorm.ErrRecordNotFound when absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByEmail")

	var user model.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to get user by email").
				String("email", email).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByID")

	var user model.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to get user by ID").
				String("user_id", id).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Create")

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User created").
		String("user_id", user.ID).
		String("email", user.Email).
		String("login_type", user.LoginType).
		Log()

	return nil
}

// UpdateFields applies a partial column update to one user row.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateFields")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user").
			String("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	return r.UpdateFields(ctx, id, map[string]any{"is_verified": true})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hashedPassword string) error {
	return r.UpdateFields(ctx, id, map[string]any{
		"password":   hashedPassword,
		"updated_at": time.Now(),
	})
}

// UpdateLastLogin stamps the login time. Callers treat failure as non-fatal.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	return r.UpdateFields(ctx, id, map[string]any{"last_login": time.Now()})
}
