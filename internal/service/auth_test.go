package service

import (
	"context"
	"testing"
	"time"

	"github.com/Sanjaee/zacode-auth/config"
	"github.com/Sanjaee/zacode-auth/internal/dto"
	apperrors "github.com/Sanjaee/zacode-auth/internal/errors"
	"github.com/Sanjaee/zacode-auth/internal/model"
	"github.com/Sanjaee/zacode-auth/internal/repository"
	"github.com/Sanjaee/zacode-auth/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sentMail struct {
	to      string
	name    string
	otpCode string
}

// fakeMailer records deliveries instead of dialing SMTP.
type fakeMailer struct {
	verificationSends []sentMail
	resetSends        []sentMail
	failWith          error
}

func (m *fakeMailer) SendVerificationEmail(to, recipientName, otpCode string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.verificationSends = append(m.verificationSends, sentMail{to, recipientName, otpCode})
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(to, recipientName, otpCode string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.resetSends = append(m.resetSends, sentMail{to, recipientName, otpCode})
	return nil
}

type authFixture struct {
	svc    *AuthService
	db     *gorm.DB
	mailer *fakeMailer
	jwt    *JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Session{}, &model.OtpCode{}))

	mailer := &fakeMailer{}
	jwtService := NewJWTService("test-secret", 15*time.Minute, 7*24*time.Hour)
	limiter := NewOTPLimiter(
		redis.NewClient(redis.Config{Enabled: false}, nil),
		config.OTPConfig{ResendMax: 5, ResendWindow: 10 * time.Minute},
	)

	svc := NewAuthService(
		repository.NewUserRepository(db),
		repository.NewOtpRepository(db),
		repository.NewSessionRepository(db),
		jwtService,
		mailer,
		limiter,
		15*time.Minute,
	)

	return &authFixture{svc: svc, db: db, mailer: mailer, jwt: jwtService}
}

func (f *authFixture) register(t *testing.T, email string) *dto.RegisterResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    email,
		Password: "initial-password",
		FullName: "Test User",
	})
	require.NoError(t, err)
	return resp
}

// registerVerified creates an account and completes OTP verification.
func (f *authFixture) registerVerified(t *testing.T, email string) {
	t.Helper()
	f.register(t, email)
	otp := f.storedOTP(t, email, model.OTPPurposeEmailVerification)
	_, err := f.svc.VerifyOTP(context.Background(), email, otp.OtpCode, model.OTPPurposeEmailVerification)
	require.NoError(t, err)
}

// storedOTP fetches the newest unused code for an email and purpose.
func (f *authFixture) storedOTP(t *testing.T, email, purpose string) *model.OtpCode {
	t.Helper()
	var otp model.OtpCode
	err := f.db.Where("email = ? AND type = ? AND is_used = ?", email, purpose, false).
		Order("created_at DESC").
		First(&otp).Error
	require.NoError(t, err)
	return &otp
}

func (f *authFixture) sessionCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.Session{}).Count(&count).Error)
	return count
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.register(t, "new@example.com")

	assert.True(t, resp.RequiresVerification)
	assert.False(t, resp.User.IsVerified)
	assert.Equal(t, model.LoginTypeCredential, resp.User.LoginType)
	assert.Equal(t, model.UserTypeMember, resp.User.UserType)

	// The stored code matches what the mailer delivered
	otp := f.storedOTP(t, "new@example.com", model.OTPPurposeEmailVerification)
	require.Len(t, f.mailer.verificationSends, 1)
	assert.Equal(t, otp.OtpCode, f.mailer.verificationSends[0].otpCode)
	assert.Len(t, otp.OtpCode, 6)

	// No session until verification completes
	assert.Zero(t, f.sessionCount(t))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "taken@example.com")

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "taken@example.com",
		Password: "another-password",
		FullName: "Second User",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
}

func TestRegister_EmailOwnedByGoogleAccount(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.GoogleOAuth(context.Background(), &dto.GoogleOAuthRequest{
		Email:    "google@example.com",
		FullName: "Google User",
		GoogleID: "google-sub-1",
	})
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "google@example.com",
		Password: "some-password",
		FullName: "Impostor",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailExistsGoogle)
}

func TestRegister_MailDeliveryFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.failWith = apperrors.WrapError(apperrors.ErrMailSend, assert.AnError)

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "undeliverable@example.com",
		Password: "initial-password",
		FullName: "Test User",
	})
	assert.ErrorIs(t, err, apperrors.ErrMailSend)

	// The account and code are already durable; only delivery failed
	var user model.User
	require.NoError(t, f.db.Where("email = ?", "undeliverable@example.com").First(&user).Error)
	otp := f.storedOTP(t, "undeliverable@example.com", model.OTPPurposeEmailVerification)
	assert.False(t, otp.IsUsed)
}

func TestLogin_Verified(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	resp, err := f.svc.Login(context.Background(), "user@example.com", "initial-password")
	require.NoError(t, err)

	assert.False(t, resp.RequiresVerification)
	assert.Empty(t, resp.VerificationToken)
	assert.Equal(t, 900, resp.ExpiresIn)

	claims, err := f.jwt.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)

	_, err = f.jwt.VerifyRefreshToken(resp.RefreshToken)
	require.NoError(t, err)

	// A session row backs the refresh token
	var session model.Session
	require.NoError(t, f.db.Where("refresh_token = ?", resp.RefreshToken).First(&session).Error)
	assert.Equal(t, resp.User.ID, session.UserID)

	// Login stamps last_login
	var user model.User
	require.NoError(t, f.db.Where("id = ?", resp.User.ID).First(&user).Error)
	assert.NotNil(t, user.LastLogin)
}

func TestLogin_Unverified(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "pending@example.com")

	resp, err := f.svc.Login(context.Background(), "pending@example.com", "initial-password")
	require.NoError(t, err)

	assert.True(t, resp.RequiresVerification)
	assert.Empty(t, resp.AccessToken)
	assert.Empty(t, resp.RefreshToken)
	assert.Zero(t, f.sessionCount(t))

	// The echoed verification token is a live stored code
	require.NotEmpty(t, resp.VerificationToken)
	verifyResp, err := f.svc.VerifyOTP(context.Background(), "pending@example.com", resp.VerificationToken, model.OTPPurposeEmailVerification)
	require.NoError(t, err)
	assert.True(t, verifyResp.Success)
}

func TestLogin_Failures(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	_, googleErr := f.svc.GoogleOAuth(context.Background(), &dto.GoogleOAuthRequest{
		Email:    "google@example.com",
		FullName: "Google User",
		GoogleID: "google-sub-2",
	})
	require.NoError(t, googleErr)

	tests := []struct {
		name     string
		email    string
		password string
		want     *apperrors.DomainError
	}{
		{"unknown email", "nobody@example.com", "whatever", apperrors.ErrInvalidCredentials},
		{"wrong password", "user@example.com", "not-the-password", apperrors.ErrInvalidCredentials},
		{"google account", "google@example.com", "whatever", apperrors.ErrWrongLoginMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "disabled@example.com")

	require.NoError(t, f.db.Model(&model.User{}).
		Where("email = ?", "disabled@example.com").
		Update("is_active", false).Error)

	_, err := f.svc.Login(context.Background(), "disabled@example.com", "initial-password")
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestVerifyOTP(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "user@example.com")

	otp := f.storedOTP(t, "user@example.com", model.OTPPurposeEmailVerification)

	resp, err := f.svc.VerifyOTP(context.Background(), "user@example.com", otp.OtpCode, model.OTPPurposeEmailVerification)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "user@example.com", resp.User.Email)
	assert.Equal(t, model.LoginTypeCredential, resp.User.LoginMethod)

	var user model.User
	require.NoError(t, f.db.Where("email = ?", "user@example.com").First(&user).Error)
	assert.True(t, user.IsVerified)

	// No session is created by verification itself
	assert.Zero(t, f.sessionCount(t))
}

func TestVerifyOTP_SingleUse(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "user@example.com")

	otp := f.storedOTP(t, "user@example.com", model.OTPPurposeEmailVerification)

	_, err := f.svc.VerifyOTP(context.Background(), "user@example.com", otp.OtpCode, model.OTPPurposeEmailVerification)
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(context.Background(), "user@example.com", otp.OtpCode, model.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "user@example.com")

	otp := f.storedOTP(t, "user@example.com", model.OTPPurposeEmailVerification)
	require.NoError(t, f.db.Model(&model.OtpCode{}).
		Where("id = ?", otp.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err := f.svc.VerifyOTP(context.Background(), "user@example.com", otp.OtpCode, model.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestVerifyOTP_WrongCodeAndUser(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "user@example.com")

	_, err := f.svc.VerifyOTP(context.Background(), "user@example.com", "000000", model.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)

	_, err = f.svc.VerifyOTP(context.Background(), "nobody@example.com", "123456", model.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestResendOTP(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "user@example.com")

	first := f.storedOTP(t, "user@example.com", model.OTPPurposeEmailVerification)

	_, err := f.svc.ResendOTP(context.Background(), "user@example.com", "")
	require.NoError(t, err)
	assert.Len(t, f.mailer.verificationSends, 2)

	// Resending does not invalidate outstanding codes
	_, err = f.svc.VerifyOTP(context.Background(), "user@example.com", first.OtpCode, model.OTPPurposeEmailVerification)
	assert.NoError(t, err)
}

func TestResendOTP_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.ResendOTP(context.Background(), "nobody@example.com", "")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	resp, err := f.svc.RequestPasswordReset(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, f.mailer.resetSends, 1)

	otp := f.storedOTP(t, "user@example.com", model.OTPPurposePasswordReset)
	assert.Equal(t, otp.OtpCode, f.mailer.resetSends[0].otpCode)

	// Unknown emails get the identical confirmation and no delivery
	unknown, err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, resp.Message, unknown.Message)
	assert.Len(t, f.mailer.resetSends, 1)
}

func TestRequestPasswordReset_GoogleAccount(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.GoogleOAuth(context.Background(), &dto.GoogleOAuthRequest{
		Email:    "google@example.com",
		FullName: "Google User",
		GoogleID: "google-sub-3",
	})
	require.NoError(t, err)

	_, err = f.svc.RequestPasswordReset(context.Background(), "google@example.com")
	assert.ErrorIs(t, err, apperrors.ErrGoogleAccountOnly)
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	_, err := f.svc.RequestPasswordReset(context.Background(), "user@example.com")
	require.NoError(t, err)

	otp := f.storedOTP(t, "user@example.com", model.OTPPurposePasswordReset)

	resp, err := f.svc.ResetPassword(context.Background(), "user@example.com", otp.OtpCode, "brand-new-password")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// The old password is dead, the new one works
	_, err = f.svc.Login(context.Background(), "user@example.com", "initial-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "user@example.com", "brand-new-password")
	assert.NoError(t, err)

	// The reset code is consumed
	_, err = f.svc.ResetPassword(context.Background(), "user@example.com", otp.OtpCode, "yet-another-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestPasswordReset_DisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "disabled@example.com")

	// The reset code is issued while the account is still active
	_, err := f.svc.RequestPasswordReset(context.Background(), "disabled@example.com")
	require.NoError(t, err)
	otp := f.storedOTP(t, "disabled@example.com", model.OTPPurposePasswordReset)

	require.NoError(t, f.db.Model(&model.User{}).
		Where("email = ?", "disabled@example.com").
		Update("is_active", false).Error)

	// Reset ends logged in, so it must refuse a disabled account outright
	_, err = f.svc.ResetPassword(context.Background(), "disabled@example.com", otp.OtpCode, "brand-new-password")
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
	assert.Zero(t, f.sessionCount(t))

	// The code stays unconsumed; nothing else can be done with a dead account
	stored := f.storedOTP(t, "disabled@example.com", model.OTPPurposePasswordReset)
	assert.False(t, stored.IsUsed)

	// Requesting a fresh code is refused as well
	_, err = f.svc.RequestPasswordReset(context.Background(), "disabled@example.com")
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestGoogleOAuth_NewAccount(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.GoogleOAuth(context.Background(), &dto.GoogleOAuthRequest{
		Email:        "google@example.com",
		FullName:     "Google User",
		ProfilePhoto: "https://lh3.example.com/photo.jpg",
		GoogleID:     "google-sub-42",
	})
	require.NoError(t, err)

	assert.True(t, resp.User.IsVerified)
	assert.Equal(t, model.LoginTypeGoogle, resp.User.LoginType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// No verification mail for provider-verified identities
	assert.Empty(t, f.mailer.verificationSends)
}

func TestGoogleOAuth_CredentialConflict(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	_, err := f.svc.GoogleOAuth(context.Background(), &dto.GoogleOAuthRequest{
		Email:    "user@example.com",
		FullName: "Google User",
		GoogleID: "google-sub-9",
	})
	assert.ErrorIs(t, err, apperrors.ErrCredentialAccountExists)
}

func TestGoogleOAuth_BackfillsGoogleID(t *testing.T) {
	f := newAuthFixture(t)

	// A Google account created before the subject was captured
	user := &model.User{
		Email:      "legacy@example.com",
		FullName:   "Legacy User",
		UserType:   model.UserTypeMember,
		LoginType:  model.LoginTypeGoogle,
		IsVerified: true,
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(user).Error)

	_, err := f.svc.GoogleOAuth(context.Background(), &dto.GoogleOAuthRequest{
		Email:        "legacy@example.com",
		FullName:     "Legacy User Updated",
		ProfilePhoto: "https://lh3.example.com/new.jpg",
		GoogleID:     "google-sub-legacy",
	})
	require.NoError(t, err)

	var stored model.User
	require.NoError(t, f.db.Where("email = ?", "legacy@example.com").First(&stored).Error)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "google-sub-legacy", *stored.GoogleID)
	assert.Equal(t, "Legacy User Updated", stored.FullName)
	require.NotNil(t, stored.ProfilePhoto)
	assert.Equal(t, "https://lh3.example.com/new.jpg", *stored.ProfilePhoto)
}

func TestRefreshSession(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	login, err := f.svc.Login(context.Background(), "user@example.com", "initial-password")
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshSession(context.Background(), login.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, 900, refreshed.ExpiresIn)

	// Rotation keeps a single session row, now holding the new token
	assert.EqualValues(t, 1, f.sessionCount(t))
	var session model.Session
	require.NoError(t, f.db.Where("refresh_token = ?", refreshed.RefreshToken).First(&session).Error)

	// The rotated-out token can never be redeemed again
	_, err = f.svc.RefreshSession(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestRefreshSession_ExpiredSession(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	login, err := f.svc.Login(context.Background(), "user@example.com", "initial-password")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.Session{}).
		Where("refresh_token = ?", login.RefreshToken).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = f.svc.RefreshSession(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func TestRefreshSession_GarbageToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.RefreshSession(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRefreshSession_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	login, err := f.svc.Login(context.Background(), "user@example.com", "initial-password")
	require.NoError(t, err)

	// An access token fails token verification before the store is consulted
	_, err = f.svc.RefreshSession(context.Background(), login.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRefreshSession_TokenWithoutSession(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	var user model.User
	require.NoError(t, f.db.Where("email = ?", "user@example.com").First(&user).Error)

	// A well-signed token whose session row was never stored (or was revoked)
	orphan, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	_, err = f.svc.RefreshSession(context.Background(), orphan)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	login, err := f.svc.Login(context.Background(), "user@example.com", "initial-password")
	require.NoError(t, err)

	_, err = f.svc.Logout(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.Zero(t, f.sessionCount(t))

	_, err = f.svc.RefreshSession(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// A second logout with the same token finds nothing
	_, err = f.svc.Logout(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestGetProfile(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "user@example.com")

	var user model.User
	require.NoError(t, f.db.Where("email = ?", "user@example.com").First(&user).Error)

	resp, err := f.svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", resp.Email)

	_, err = f.svc.GetProfile(context.Background(), "missing-id")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
