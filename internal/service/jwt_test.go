package service

import (
	"testing"
	"time"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateAccessToken("user-123", "user@example.com", "member")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("Expected valid token, got %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("Expected user_id user-123, got %s", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Expected email user@example.com, got %s", claims.Email)
	}
	if claims.Role != "member" {
		t.Errorf("Expected role member, got %s", claims.Role)
	}
}

func TestJWTService_RefreshTokenRoundTrip(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateRefreshToken("user-123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := svc.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("Expected valid token, got %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("Expected user_id user-123, got %s", claims.UserID)
	}
	if claims.Type != "refresh" {
		t.Errorf("Expected type refresh, got %s", claims.Type)
	}
}

func TestJWTService_RejectsCrossTypeTokens(t *testing.T) {
	svc := newTestJWTService()

	// An access token must not pass refresh verification
	accessToken, err := svc.GenerateAccessToken("user-123", "user@example.com", "member")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := svc.VerifyRefreshToken(accessToken); err != ErrTokenInvalid {
		t.Errorf("Expected ErrTokenInvalid for access token, got %v", err)
	}

	// A refresh token must not pass access verification either: it shares the
	// secret but lives for a week instead of fifteen minutes
	refreshToken, err := svc.GenerateRefreshToken("user-123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := svc.VerifyAccessToken(refreshToken); err != ErrTokenInvalid {
		t.Errorf("Expected ErrTokenInvalid for refresh token, got %v", err)
	}
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	svc := newTestJWTService()
	other := NewJWTService("a-different-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := svc.GenerateAccessToken("user-123", "user@example.com", "member")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := other.VerifyAccessToken(token); err != ErrTokenInvalid {
		t.Errorf("Expected ErrTokenInvalid for foreign signature, got %v", err)
	}
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret-key", -time.Minute, -time.Minute)

	token, err := svc.GenerateAccessToken("user-123", "user@example.com", "member")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := svc.VerifyAccessToken(token); err != ErrTokenInvalid {
		t.Errorf("Expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"not a jwt", "definitely-not-a-jwt"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.VerifyAccessToken(tt.token); err != ErrTokenInvalid {
				t.Errorf("Expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}
