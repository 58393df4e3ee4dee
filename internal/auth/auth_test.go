package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret-secret-secret", time.Hour)

	raw, err := tokens.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("UserID = %q, want user-1", claims.UserID)
	}
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("secret-secret-secret", time.Minute)
	start := time.Now()
	tokens.now = func() time.Time { return start }

	raw, err := tokens.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tokens.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := tokens.Parse(raw); err != ErrInvalidToken {
		t.Fatalf("Parse expired = %v, want ErrInvalidToken", err)
	}
}

func TestTokensRejectOtherSecret(t *testing.T) {
	raw, err := NewTokens("first-secret-value", time.Hour).Generate("user-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewTokens("second-secret-value", time.Hour).Parse(raw); err != ErrInvalidToken {
		t.Fatalf("Parse = %v, want ErrInvalidToken", err)
	}
	if _, err := NewTokens("first-secret-value", time.Hour).Parse("garbage"); err != ErrInvalidToken {
		t.Fatalf("Parse garbage = %v, want ErrInvalidToken", err)
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Matches(hash, "hunter2") {
		t.Fatal("expected match")
	}
	if h.Matches(hash, "hunter3") {
		t.Fatal("unexpected match")
	}
	if h.Matches("", "") {
		t.Fatal("empty hash must not match")
	}
}

func TestNormalizeAnswer(t *testing.T) {
	if got := NormalizeAnswer("  Rex "); got != "rex" {
		t.Fatalf("NormalizeAnswer = %q", got)
	}
}
