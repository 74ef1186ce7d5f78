package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 2*time.Hour)

	token, err := manager.GenerateToken(123, "alice@example.com", "patient")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Generated empty token")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != 123 {
		t.Errorf("Expected UserID 123, got %d", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Expected email alice@example.com, got %s", claims.Email)
	}
	if claims.Role != "patient" {
		t.Errorf("Expected role patient, got %s", claims.Role)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.NotBefore == nil {
		t.Error("Expected registered claims to be set")
	}
	if time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Error("Token should not be expired")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 2*time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty token", ""},
		{"Invalid format", "not.a.valid.token"},
		{"Malformed token", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := manager.ValidateToken(tt.token)
			if err != ErrInvalidToken {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
			if claims != nil {
				t.Error("Expected nil claims with error")
			}
		})
	}
}

func TestValidateTokenExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", 1*time.Millisecond)

	token, err := manager.GenerateToken(1, "a@example.com", "patient")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	claims, err := manager.ValidateToken(token)
	if err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
	if claims != nil {
		t.Error("Expected nil claims for expired token")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager1 := NewJWTManager("secret1", 1*time.Hour)
	manager2 := NewJWTManager("secret2", 1*time.Hour)

	token, err := manager1.GenerateToken(1, "a@example.com", "patient")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := manager2.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 2*time.Hour)

	originalToken, err := manager.GenerateToken(7, "doc@example.com", "doctor")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	originalClaims, err := manager.ValidateToken(originalToken)
	if err != nil {
		t.Fatalf("Failed to validate original token: %v", err)
	}

	// JWT timestamps have second precision
	time.Sleep(1100 * time.Millisecond)

	newToken, err := manager.RefreshToken(originalToken)
	if err != nil {
		t.Fatalf("Failed to refresh token: %v", err)
	}
	if newToken == originalToken {
		t.Error("Refreshed token should differ from original")
	}

	newClaims, err := manager.ValidateToken(newToken)
	if err != nil {
		t.Fatalf("Failed to validate refreshed token: %v", err)
	}
	if newClaims.UserID != 7 || newClaims.Email != "doc@example.com" || newClaims.Role != "doctor" {
		t.Errorf("Refreshed claims changed: %+v", newClaims)
	}
	if !newClaims.ExpiresAt.Time.After(originalClaims.ExpiresAt.Time) {
		t.Error("Refreshed token should have later expiration")
	}
}

func TestRefreshTokenExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", 1*time.Millisecond)

	token, err := manager.GenerateToken(1, "a@example.com", "patient")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	// Recently expired tokens can still be refreshed
	newToken, err := manager.RefreshToken(token)
	if err != nil {
		t.Errorf("Refresh should work for expired tokens: %v", err)
	}
	if newToken == "" {
		t.Error("Expected non-empty refreshed token")
	}
}

func TestRefreshTokenInvalid(t *testing.T) {
	manager := NewJWTManager("test-secret", 1*time.Hour)

	for _, token := range []string{"", "not.a.valid.token"} {
		if newToken, err := manager.RefreshToken(token); err == nil || newToken != "" {
			t.Errorf("Expected error for invalid token %q", token)
		}
	}
}

func TestTokenSigningMethod(t *testing.T) {
	manager := NewJWTManager("test-secret", 1*time.Hour)

	token, err := manager.GenerateToken(1, "a@example.com", "patient")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	parsedToken, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if parsedToken.Method != jwt.SigningMethodHS256 {
		t.Errorf("Expected signing method HS256, got %v", parsedToken.Method)
	}
}
