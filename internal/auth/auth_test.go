package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"letterflow/internal/config"
)

func testService(t *testing.T) *Service {
	t.Helper()

	dir := t.TempDir()
	svc, err := NewService(&config.JWTConfig{
		PrivateKeyPath:    filepath.Join(dir, "jwt_private.pem"),
		PublicKeyPath:     filepath.Join(dir, "jwt_public.pem"),
		Expiration:        24 * time.Hour,
		RefreshExpiration: 168 * time.Hour,
	}, "")
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return svc
}

func TestHashPassword(t *testing.T) {
	svc := testService(t)

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	if hash == password {
		t.Error("Hash should not equal the original password")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := testService(t)

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := svc.VerifyPassword(hash, password); err != nil {
		t.Errorf("Expected password to verify: %v", err)
	}

	if err := svc.VerifyPassword(hash, "wrongpassword"); err == nil {
		t.Error("Expected verification of wrong password to fail")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(t)

	token, jti, err := svc.GenerateToken("user-1", "user@example.com", "executive_head")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("Token and JTI should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("Expected user_id user-1, got %s", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Expected email user@example.com, got %s", claims.Email)
	}
	if claims.Role != "executive_head" {
		t.Errorf("Expected role executive_head, got %s", claims.Role)
	}
	if claims.ID != jti {
		t.Errorf("Expected JTI %s, got %s", jti, claims.ID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := testService(t)

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("Expected validation of garbage to fail")
	}
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	svc := testService(t)
	other := testService(t)

	token, _, err := other.GenerateToken("user-1", "user@example.com", "user")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Expected token signed with a different key to fail validation")
	}
}

func TestExtractJTI(t *testing.T) {
	svc := testService(t)

	token, jti, err := svc.GenerateToken("user-1", "user@example.com", "user")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	got, err := svc.ExtractJTI(token)
	if err != nil {
		t.Fatalf("Failed to extract JTI: %v", err)
	}
	if got != jti {
		t.Errorf("Expected JTI %s, got %s", jti, got)
	}
}

func TestKeyPersistence(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.JWTConfig{
		PrivateKeyPath:    filepath.Join(dir, "jwt_private.pem"),
		PublicKeyPath:     filepath.Join(dir, "jwt_public.pem"),
		Expiration:        time.Hour,
		RefreshExpiration: time.Hour,
	}

	first, err := NewService(cfg, "")
	if err != nil {
		t.Fatalf("Failed to create first service: %v", err)
	}
	if _, err := os.Stat(cfg.PrivateKeyPath); err != nil {
		t.Fatalf("Expected private key file to be persisted: %v", err)
	}

	token, _, err := first.GenerateToken("user-1", "user@example.com", "user")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// A second service over the same key files must accept the token.
	second, err := NewService(cfg, "")
	if err != nil {
		t.Fatalf("Failed to create second service: %v", err)
	}
	if _, err := second.ValidateToken(token); err != nil {
		t.Errorf("Expected reloaded key to validate token: %v", err)
	}
}
