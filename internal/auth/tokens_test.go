package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, expiresAt, err := issuer.Issue("user-1", "a@b.co", []string{"Manager"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Email != "a@b.co" {
		t.Fatalf("email = %q", claims.Email)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "Manager" {
		t.Fatalf("roles = %v", claims.Roles)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret-a", time.Hour).Issue("user-1", "", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenIssuer("secret-b", time.Hour).Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, _, err := issuer.Issue("user-1", "", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	for _, token := range []string{"", "   ", "not.a.jwt"} {
		if _, err := issuer.Validate(token); err != ErrInvalidToken {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestIssueRequiresUser(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, _, err := issuer.Issue("  ", "", nil); err == nil {
		t.Fatal("expected error for blank user")
	}
}
