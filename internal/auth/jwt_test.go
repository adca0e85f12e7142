package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	secret := "test-secret"

	token, err := NewAccessToken(userID, secret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken failed: %v", err)
	}

	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("ParseAccessToken failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Subject != userID.String() {
		t.Errorf("Subject = %q, want the user id", claims.Subject)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAccessToken(uuid.New(), "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken failed: %v", err)
	}
	if _, err := ParseAccessToken(token, "wrong-secret"); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := NewAccessToken(uuid.New(), "secret", -time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken failed: %v", err)
	}
	_, err = ParseAccessToken(token, "secret")
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("err = %v, want jwt.ErrTokenExpired", err)
	}
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseAccessToken("not.a.token", "secret"); err == nil {
		t.Error("expected error for malformed token")
	}
}
