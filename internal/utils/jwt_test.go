package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	customerID := uuid.New()

	token, err := GenerateToken(secret, customerID, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	if parsed != customerID {
		t.Fatalf("parsed id = %s, want %s", parsed, customerID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", uuid.New(), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expired token was accepted")
	}
}
