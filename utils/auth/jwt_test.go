package auth

import (
	"errors"
	"testing"
	"time"
)

func testManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret: "test-secret",
		Expiry: expiry,
		Issuer: "kujua-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := testManager(time.Hour)

	token, err := manager.GenerateToken(TokenSubject{
		UserID:    42,
		Email:     "learner@example.com",
		FirstName: "Amina",
		LastName:  "Okafor",
		Role:      "user",
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Email != "learner@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Role != "user" {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.Issuer != "kujua-test" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected a JTI on the token")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	manager := testManager(-time.Minute)

	token, err := manager.GenerateToken(TokenSubject{UserID: 1, Email: "x@example.com", Role: "user"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := testManager(time.Hour).GenerateToken(TokenSubject{UserID: 1, Email: "x@example.com", Role: "user"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	other := NewJWTManager(JWTConfig{Secret: "different-secret", Expiry: time.Hour, Issuer: "kujua-test"})
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	if _, err := testManager(time.Hour).ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
