package repository

import (
	"context"
	"time"

	"github.com/Sanjaee/zacode-auth/internal/model"
	ctxutil "github.com/Sanjaee/zacode-auth/pkg/context"
	"github.com/Sanjaee/zacode-auth/pkg/logger"
	"gorm.io/gorm"
)

type OtpRepository struct {
	db *gorm.DB
}

func NewOtpRepository(db *gorm.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

func (r *OtpRepository) Create(ctx context.Context, otp *model.OtpCode) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateOtp")

	if err := r.db.WithContext(ctx).Create(otp).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to store OTP code").
			String("user_id", otp.UserID).
			String("purpose", otp.Purpose).
			Err(err).
			Log()
		return err
	}

	return nil
}

// FindValid returns the first code matching (user, code, purpose) that is
// unused and unexpired. Multiple outstanding codes per user are allowed;
// any match wins.
func (r *OtpRepository) FindValid(ctx context.Context, userID, code, purpose string) (*model.OtpCode, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindValidOtp")

	var otp model.OtpCode
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND otp_code = ? AND type = ? AND is_used = ? AND expires_at > ?",
			userID, code, purpose, false, time.Now()).
		First(&otp)
	if result.Error != nil {
		return nil, result.Error
	}

	return &otp, nil
}

// MarkUsed consumes a code with a single conditional update so that two
// concurrent redemptions of the same code cannot both succeed. Returns
// gorm.ErrRecordNotFound when the code was already consumed.
func (r *OtpRepository) MarkUsed(ctx context.Context, id string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "MarkOtpUsed")

	result := r.db.WithContext(ctx).Model(&model.OtpCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark OTP used").
			String("otp_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
