package service

import (
	"context"

	"github.com/Sanjaee/zacode-auth/config"
	"github.com/Sanjaee/zacode-auth/internal/constants"
	apperrors "github.com/Sanjaee/zacode-auth/internal/errors"
	ctxutil "github.com/Sanjaee/zacode-auth/pkg/context"
	"github.com/Sanjaee/zacode-auth/pkg/logger"
	"github.com/Sanjaee/zacode-auth/pkg/redis"
)

// OTPLimiter throttles OTP issuance per email with a redis fixed window.
// With redis disabled the limiter is a no-op: OTP mail still goes out, only
// the abuse guard is lost.
type OTPLimiter struct {
	redis *redis.Client
	cfg   config.OTPConfig
}

func NewOTPLimiter(redisClient *redis.Client, cfg config.OTPConfig) *OTPLimiter {
	return &OTPLimiter{
		redis: redisClient,
		cfg:   cfg,
	}
}

// Allow enforces the per-email issue window. Returns ErrOTPRateLimited once
// the window budget is spent.
func (l *OTPLimiter) Allow(ctx context.Context, email string) error {
	if !l.redis.IsEnabled() || l.cfg.ResendMax <= 0 {
		return nil
	}

	key := constants.ThrottleKeyOTP + email
	count, err := l.redis.IncrWindow(ctx, key, l.cfg.ResendWindow)
	if err != nil {
		// The throttle is advisory; a broken redis must not block signups.
		logger.WarnWithContext(ctxutil.WithOperation(ctx, "service", "OTPLimiter"), "OTP throttle unavailable").
			Err(err).
			Log()
		return nil
	}

	if count > int64(l.cfg.ResendMax) {
		return apperrors.ErrOTPRateLimited
	}

	return nil
}
