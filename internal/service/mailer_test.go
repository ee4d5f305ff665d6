package service

import (
	"errors"
	"testing"

	"github.com/Sanjaee/zacode-auth/config"
	apperrors "github.com/Sanjaee/zacode-auth/internal/errors"
	"github.com/Sanjaee/zacode-auth/pkg/circuit"
)

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *apperrors.DomainError
	}{
		{
			name: "provider daily limit",
			err:  errors.New("554 Daily user sending limit exceeded"),
			want: apperrors.ErrMailRateLimited,
		},
		{
			name: "enhanced status throttle",
			err:  errors.New("421 4.7.0 Temporary System Problem"),
			want: apperrors.ErrMailRateLimited,
		},
		{
			name: "bad credentials",
			err:  errors.New("535-5.7.8 Username and Password not accepted"),
			want: apperrors.ErrMailConfig,
		},
		{
			name: "auth failure",
			err:  errors.New("smtp: authentication failed"),
			want: apperrors.ErrMailConfig,
		},
		{
			name: "circuit open",
			err:  circuit.ErrCircuitOpen,
			want: apperrors.ErrMailSend,
		},
		{
			name: "generic network failure",
			err:  errors.New("dial tcp 74.125.1.1:587: i/o timeout"),
			want: apperrors.ErrMailSend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifySendError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifySendError() = %v, want code %s", got, tt.want.Code)
			}
		})
	}
}

func TestGomailMailer_MissingConfig(t *testing.T) {
	m := NewGomailMailer(config.MailConfig{Host: "smtp.example.com", Port: 587}, nil)

	err := m.SendVerificationEmail("user@example.com", "User", "123456")
	if !errors.Is(err, apperrors.ErrMailConfig) {
		t.Errorf("Expected ErrMailConfig for empty credentials, got %v", err)
	}
}
