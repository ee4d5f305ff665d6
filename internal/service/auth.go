package service

import (
	"context"
	"errors"
	"time"

	"github.com/Sanjaee/zacode-auth/internal/dto"
	apperrors "github.com/Sanjaee/zacode-auth/internal/errors"
	"github.com/Sanjaee/zacode-auth/internal/model"
	"github.com/Sanjaee/zacode-auth/internal/repository"
	ctxutil "github.com/Sanjaee/zacode-auth/pkg/context"
	"github.com/Sanjaee/zacode-auth/pkg/logger"
	"gorm.io/gorm"
)

const resetRequestedMessage = "If the email is registered, a password reset OTP has been sent."

// AuthService orchestrates registration, login, OTP verification, password
// reset, Google account linking, and session refresh. It is stateless; the
// database is the only serialization point between concurrent callers.
type AuthService struct {
	users      *repository.UserRepository
	otps       *repository.OtpRepository
	sessions   *repository.SessionRepository
	jwtService *JWTService
	mailer     Mailer
	otpLimiter *OTPLimiter
	otpTTL     time.Duration
}

func NewAuthService(
	users *repository.UserRepository,
	otps *repository.OtpRepository,
	sessions *repository.SessionRepository,
	jwtService *JWTService,
	mailer Mailer,
	otpLimiter *OTPLimiter,
	otpTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		otps:       otps,
		sessions:   sessions,
		jwtService: jwtService,
		mailer:     mailer,
		otpLimiter: otpLimiter,
		otpTTL:     otpTTL,
	}
}

// Register creates an unverified credential account and emails a verification
// OTP. No tokens are issued until the email is verified.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	logger.InfoWithContext(ctx, "Registration attempt").
		String("email", req.Email).
		Log()

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if existing != nil {
		if existing.LoginType == model.LoginTypeGoogle {
			return nil, apperrors.ErrEmailExistsGoogle
		}
		return nil, apperrors.ErrEmailExists
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	userType := req.UserType
	if userType == "" {
		userType = model.UserTypeMember
	}

	user := &model.User{
		Email:      req.Email,
		Password:   &hashedPassword,
		FullName:   req.FullName,
		UserType:   userType,
		LoginType:  model.LoginTypeCredential,
		IsVerified: false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if _, err := s.issueOTP(ctx, user, model.OTPPurposeEmailVerification); err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "User registered, verification pending").
		String("user_id", user.ID).
		String("email", user.Email).
		Log()

	return &dto.RegisterResponse{
		Message:              "Registration successful. Please verify your email.",
		User:                 dto.NewUserResponse(user),
		RequiresVerification: true,
	}, nil
}

// Login verifies credentials. A verified account gets a token pair and a new
// session; an unverified one gets a fresh verification OTP instead, and the
// OTP value rides along in the response for the session layer's auto-login
// handoff.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Login failed: user not found").
				String("email", email).
				Log()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	// Deliberately distinct from ErrInvalidCredentials so the caller can
	// steer the user to Google Sign In.
	if user.LoginType == model.LoginTypeGoogle {
		return nil, apperrors.ErrWrongLoginMethod
	}

	if user.Password == nil {
		return nil, apperrors.ErrPasswordNotSet
	}

	if !CheckPassword(*user.Password, password) {
		logger.WarnWithContext(ctx, "Login failed: wrong password").
			String("user_id", user.ID).
			Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		code, err := s.issueOTP(ctx, user, model.OTPPurposeEmailVerification)
		if err != nil {
			return nil, err
		}

		logger.InfoWithContext(ctx, "Login deferred, verification required").
			String("user_id", user.ID).
			Log()

		return &dto.LoginResponse{
			User:                 dto.NewUserResponse(user),
			RequiresVerification: true,
			VerificationToken:    code,
		}, nil
	}

	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.stampLastLogin(ctx, user)

	logger.InfoWithContext(ctx, "User logged in").
		String("user_id", user.ID).
		Log()

	return &dto.LoginResponse{
		User:         dto.NewUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.AccessTokenTTL().Seconds()),
	}, nil
}

// VerifyOTP consumes a code. For email verification the account transitions
// to verified; this transition is never reversed. The response carries no
// tokens: the session layer performs its own trusted login from the returned
// identity.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code, purpose string) (*dto.VerifyOTPResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "VerifyOTP")

	if purpose == "" {
		purpose = model.OTPPurposeEmailVerification
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	otp, err := s.otps.FindValid(ctx, user.ID, code, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WarnWithContext(ctx, "OTP validation failed").
				String("user_id", user.ID).
				String("purpose", purpose).
				Log()
			return nil, apperrors.ErrInvalidOTP
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	// Conditional consume: if a concurrent request already burned this code
	// the update matches zero rows and the attempt is rejected.
	if err := s.otps.MarkUsed(ctx, otp.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidOTP
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if purpose == model.OTPPurposeEmailVerification {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		user.IsVerified = true
	}

	logger.InfoWithContext(ctx, "OTP verified").
		String("user_id", user.ID).
		String("purpose", purpose).
		Log()

	return &dto.VerifyOTPResponse{
		Success: true,
		User:    dto.NewVerifiedUser(user),
	}, nil
}

// ResendOTP issues a fresh code. Older codes are not invalidated; they stay
// redeemable until used or expired.
func (s *AuthService) ResendOTP(ctx context.Context, email, purpose string) (*dto.MessageResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ResendOTP")

	if purpose == "" {
		purpose = model.OTPPurposeEmailVerification
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if _, err := s.issueOTP(ctx, user, purpose); err != nil {
		return nil, err
	}

	return &dto.MessageResponse{Message: "OTP has been resent."}, nil
}

// RequestPasswordReset issues a reset OTP. Unknown emails get the exact same
// confirmation as known ones so the endpoint cannot be used to probe which
// addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*dto.MessageResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RequestPasswordReset")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Reset requested for unknown email").
				Log()
			return &dto.MessageResponse{Message: resetRequestedMessage}, nil
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if user.LoginType == model.LoginTypeGoogle {
		return nil, apperrors.ErrGoogleAccountOnly
	}

	if _, err := s.issueOTP(ctx, user, model.OTPPurposePasswordReset); err != nil {
		return nil, err
	}

	return &dto.MessageResponse{Message: resetRequestedMessage}, nil
}

// ResetPassword consumes a reset code, stores the new password hash, and logs
// the user in with a fresh token pair and session.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ResetPassword")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	// Reset ends logged in, so a disabled account must be stopped here too,
	// not only at the login door.
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	otp, err := s.otps.FindValid(ctx, user.ID, code, model.OTPPurposePasswordReset)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidOTP
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.otps.MarkUsed(ctx, otp.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidOTP
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Password reset completed").
		String("user_id", user.ID).
		Log()

	return &dto.AuthResponse{
		User:         dto.NewUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.AccessTokenTTL().Seconds()),
	}, nil
}

// GoogleOAuth signs a Google identity in, creating a pre-verified account on
// first contact. Profile claims arrive already verified by the upstream
// provider; no OTP round trip happens here. An email owned by a credential
// account is never silently converted.
func (s *AuthService) GoogleOAuth(ctx context.Context, req *dto.GoogleOAuthRequest) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GoogleOAuth")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	switch {
	case user == nil:
		user = &model.User{
			Email:      req.Email,
			FullName:   req.FullName,
			UserType:   model.UserTypeMember,
			LoginType:  model.LoginTypeGoogle,
			IsVerified: true,
		}
		if req.ProfilePhoto != "" {
			user.ProfilePhoto = &req.ProfilePhoto
		}
		if req.GoogleID != "" {
			user.GoogleID = &req.GoogleID
		}

		if err := s.users.Create(ctx, user); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}

	case user.LoginType == model.LoginTypeCredential:
		return nil, apperrors.ErrCredentialAccountExists

	default:
		if !user.IsActive {
			return nil, apperrors.ErrAccountDisabled
		}

		updates := map[string]any{"full_name": req.FullName}
		if req.ProfilePhoto != "" {
			updates["profile_photo"] = req.ProfilePhoto
			user.ProfilePhoto = &req.ProfilePhoto
		}
		if user.GoogleID == nil && req.GoogleID != "" {
			updates["google_id"] = req.GoogleID
			user.GoogleID = &req.GoogleID
		}
		user.FullName = req.FullName

		if err := s.users.UpdateFields(ctx, user.ID, updates); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
	}

	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.stampLastLogin(ctx, user)

	logger.InfoWithContext(ctx, "Google sign-in completed").
		String("user_id", user.ID).
		Log()

	return &dto.AuthResponse{
		User:         dto.NewUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.AccessTokenTTL().Seconds()),
	}, nil
}

// RefreshSession exchanges a live refresh token for a new pair, rotating the
// stored token value in place. The rotation predicate includes the old token,
// so the same token can never be redeemed twice.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RefreshSession")

	// ErrInvalidToken for a token that fails verification on its own,
	// ErrInvalidRefreshToken once the store is involved.
	claims, err := s.jwtService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if session.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	newAccessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.UserType)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	newRefreshToken, err := s.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	expiresAt := time.Now().Add(s.jwtService.RefreshTokenTTL())
	if err := s.sessions.Rotate(ctx, session.ID, refreshToken, newRefreshToken, expiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Lost a rotation race: another request already rotated this token.
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Session refreshed").
		String("user_id", user.ID).
		String("session_id", session.ID).
		Log()

	return &dto.AuthResponse{
		User:         dto.NewUserResponse(user),
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int(s.jwtService.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout revokes the session backing a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (*dto.MessageResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Logout")

	if err := s.sessions.DeleteByRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &dto.MessageResponse{Message: "Logout successful."}, nil
}

// GetProfile returns the user projection for an authenticated caller.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetProfile")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	response := dto.NewUserResponse(user)
	return &response, nil
}

// issueOTP stores a new code and then attempts delivery. Ordering matters:
// the row is durable before the send, so a delivery failure leaves the caller
// holding a valid stored OTP and surfaces as a delivery error, never as a
// data error.
func (s *AuthService) issueOTP(ctx context.Context, user *model.User, purpose string) (string, error) {
	if err := s.otpLimiter.Allow(ctx, user.Email); err != nil {
		return "", err
	}

	code := GenerateOTP()
	otp := &model.OtpCode{
		UserID:    user.ID,
		Email:     user.Email,
		OtpCode:   code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.otpTTL),
	}

	if err := s.otps.Create(ctx, otp); err != nil {
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	var sendErr error
	if purpose == model.OTPPurposePasswordReset {
		sendErr = s.mailer.SendPasswordResetEmail(user.Email, user.FullName, code)
	} else {
		sendErr = s.mailer.SendVerificationEmail(user.Email, user.FullName, code)
	}
	if sendErr != nil {
		logger.ErrorWithContext(ctx, "OTP delivery failed").
			String("user_id", user.ID).
			String("purpose", purpose).
			Err(sendErr).
			Log()
		return "", sendErr
	}

	return code, nil
}

// issueSession mints a token pair and persists the session row carrying the
// refresh token, tagged with whatever client metadata the context holds.
func (s *AuthService) issueSession(ctx context.Context, user *model.User) (string, string, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.UserType)
	if err != nil {
		return "", "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	session := &model.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.jwtService.RefreshTokenTTL()),
	}
	if userAgent := ctxutil.GetUserAgent(ctx); userAgent != "" {
		session.UserAgent = &userAgent
	}
	if clientIP := ctxutil.GetClientIP(ctx); clientIP != "" {
		session.IPAddress = &clientIP
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return accessToken, refreshToken, nil
}

// stampLastLogin records the login time; failure is logged and swallowed.
func (s *AuthService) stampLastLogin(ctx context.Context, user *model.User) {
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to stamp last login").
			String("user_id", user.ID).
			Err(err).
			Log()
	}
}
