package repository

import (
	"context"
	"time"

	"github.com/Sanjaee/zacode-auth/internal/model"
	ctxutil "github.com/Sanjaee/zacode-auth/pkg/context"
	"github.com/Sanjaee/zacode-auth/pkg/logger"
	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateSession")

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create session").
			String("user_id", session.UserID).
			Err(err).
			Log()
		return err
	}

	return nil
}

func (r *SessionRepository) GetByRefreshToken(ctx context.Context, token string) (*model.Session, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByRefreshToken")

	var session model.Session
	result := r.db.WithContext(ctx).Where("refresh_token = ?", token).First(&session)
	if result.Error != nil {
		return nil, result.Error
	}

	return &session, nil
}

// Rotate replaces the refresh token and expiry in one conditional update.
// The old token value is part of the predicate, so a token that has already
// been rotated can never validate again.
func (r *SessionRepository) Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RotateSession")

	result := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND refresh_token = ?", sessionID, oldToken).
		Updates(map[string]any{
			"refresh_token": newToken,
			"expires_at":    expiresAt,
		})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to rotate session").
			String("session_id", sessionID).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DeleteByRefreshToken revokes the session backing a refresh token.
func (r *SessionRepository) DeleteByRefreshToken(ctx context.Context, token string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "DeleteByRefreshToken")

	result := r.db.WithContext(ctx).Where("refresh_token = ?", token).Delete(&model.Session{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete session").
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
