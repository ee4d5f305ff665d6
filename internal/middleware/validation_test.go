package middleware

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidOTPCode(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("otpcode", validOTPCode); err != nil {
		t.Fatalf("Failed to register validator: %v", err)
	}

	type payload struct {
		Code string `validate:"otpcode"`
	}

	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"valid code", "123456", true},
		{"leading zero accepted by shape check", "012345", true},
		{"too short", "12345", false},
		{"too long", "1234567", false},
		{"letters", "12a456", false},
		{"empty", "", false},
		{"unicode digits", "１２３４５６", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(payload{Code: tt.code})
			if tt.valid && err != nil {
				t.Errorf("Expected %q to validate, got %v", tt.code, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to fail validation", tt.code)
			}
		})
	}
}
