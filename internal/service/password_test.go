package service

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if hash == "correct horse battery staple" {
		t.Error("Expected hash to differ from plaintext")
	}

	// bcrypt cost is part of the stored hash
	if !strings.HasPrefix(hash, "$2a$12$") && !strings.HasPrefix(hash, "$2b$12$") {
		t.Errorf("Expected cost-12 bcrypt hash, got prefix %q", hash[:7])
	}
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if first == second {
		t.Error("Expected distinct hashes for the same password")
	}

	if !CheckPassword(first, "same password") || !CheckPassword(second, "same password") {
		t.Error("Expected both hashes to verify the original password")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-value")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct password", "s3cret-value", true},
		{"wrong password", "not-the-password", false},
		{"empty password", "", false},
		{"case sensitive", "S3cret-value", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(hash, tt.password); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	if CheckPassword("not a bcrypt hash", "anything") {
		t.Error("Expected malformed hash to fail verification")
	}
}
