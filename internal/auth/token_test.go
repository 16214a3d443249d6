package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundtrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", "arkiva")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, expiresAt, err := issuer.Issue("identity-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 23*time.Hour {
		t.Fatalf("expiry too close: %v", remaining)
	}
	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "identity-1" {
		t.Fatalf("subject = %q, want identity-1", subject)
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	issuer, err := NewTokenIssuer("test-secret", "arkiva",
		WithTokenTTL(time.Hour),
		WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _, err := issuer.Issue("identity-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify after expiry = %v, want ErrTokenExpired", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", "arkiva")
	b, _ := NewTokenIssuer("secret-b", "arkiva")
	token, _, err := a.Issue("identity-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	a, _ := NewTokenIssuer("test-secret", "arkiva")
	b, _ := NewTokenIssuer("test-secret", "someone-else")
	token, _, err := a.Issue("identity-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify with wrong issuer = %v, want ErrInvalidToken", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", "arkiva")
	for _, token := range []string{"", "   ", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("   ", "arkiva"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueRequiresIdentity(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", "arkiva")
	if _, _, err := issuer.Issue(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Issue(\"\") = %v, want ErrInvalidInput", err)
	}
}
