package service

import (
	"fmt"
	"strings"

	"github.com/Sanjaee/zacode-auth/config"
	apperrors "github.com/Sanjaee/zacode-auth/internal/errors"
	"github.com/Sanjaee/zacode-auth/pkg/circuit"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers one-time codes to an address. Implementations may fail
// transiently; callers must treat delivery failures as distinct from data
// errors because the OTP row is stored before any send is attempted.
type Mailer interface {
	SendVerificationEmail(to, recipientName, otpCode string) error
	SendPasswordResetEmail(to, recipientName, otpCode string) error
}

// GomailMailer sends OTP mail over SMTP, with a circuit breaker so a dead
// relay fails fast instead of stalling every registration.
type GomailMailer struct {
	cfg     config.MailConfig
	breaker *circuit.Breaker
}

func NewGomailMailer(cfg config.MailConfig, logger *zap.Logger) *GomailMailer {
	return &GomailMailer{
		cfg:     cfg,
		breaker: circuit.NewBreaker("smtp", circuit.DefaultConfig(), logger),
	}
}

func (m *GomailMailer) SendVerificationEmail(to, recipientName, otpCode string) error {
	body := fmt.Sprintf(verificationBody, recipientName, otpCode)
	return m.send(to, "Verify Your Email Address to Complete Registration", body)
}

func (m *GomailMailer) SendPasswordResetEmail(to, recipientName, otpCode string) error {
	body := fmt.Sprintf(passwordResetBody, recipientName, otpCode)
	return m.send(to, "Reset Password - Zacode Account Recovery", body)
}

func (m *GomailMailer) send(to, subject, body string) error {
	if m.cfg.Sender == "" || m.cfg.Password == "" {
		return apperrors.ErrMailConfig
	}
	if to == m.cfg.Sender {
		return apperrors.WrapError(apperrors.ErrMailSend, fmt.Errorf("refusing to mail the sender address"))
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.Sender, m.cfg.SenderName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Sender, m.cfg.Password)

	err := m.breaker.Execute(func() error {
		return dialer.DialAndSend(msg)
	})
	if err != nil {
		return classifySendError(err)
	}

	return nil
}

// classifySendError maps SMTP failures onto the delivery error taxonomy so
// the caller can distinguish retry-later from call-an-operator.
func classifySendError(err error) error {
	if err == circuit.ErrCircuitOpen || err == circuit.ErrTooManyRequests {
		return apperrors.WrapError(apperrors.ErrMailSend, err)
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "Daily user sending limit exceeded"),
		strings.Contains(text, "4.7.0"):
		return apperrors.WrapError(apperrors.ErrMailRateLimited, err)
	case strings.Contains(text, "535"),
		strings.Contains(text, "Username and Password not accepted"),
		strings.Contains(text, "authentication failed"):
		return apperrors.WrapError(apperrors.ErrMailConfig, err)
	default:
		return apperrors.WrapError(apperrors.ErrMailSend, err)
	}
}

const verificationBody = `<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h1 style="font-size: 24px;">Welcome to Zacode!</h1>
      <p>Hello <strong>%s</strong>,</p>
      <p>Thank you for signing up with Zacode! To secure your account, please
      use the following OTP to verify your email address:</p>
      <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; text-align: center;">
        <span style="font-size: 28px; font-weight: bold; letter-spacing: 8px; color: #007bff;">%s</span>
        <p style="color: #6c757d; font-size: 14px;">This code expires in 15 minutes</p>
      </div>
      <p>If you did not register with us, please ignore this email.</p>
      <p style="color: #666666;">Best regards,<br>Zacode Team</p>
    </div>
  </body>
</html>`

const passwordResetBody = `<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h1 style="font-size: 24px;">Password Reset Request</h1>
      <p>Hi <strong>%s</strong>,</p>
      <p>Use the OTP code below to reset your password:</p>
      <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; text-align: center;">
        <span style="font-size: 28px; font-weight: bold; letter-spacing: 8px; color: #007bff;">%s</span>
        <p style="color: #dc3545; font-size: 14px;">This code expires in 15 minutes</p>
      </div>
      <p>Never share this code with anyone. The Zacode team will never ask for
      it by phone or email.</p>
      <p>If you did not request a password reset, please ignore this email or
      contact support.</p>
      <p style="color: #666666;">Best regards,<br>Zacode Team</p>
    </div>
  </body>
</html>`
