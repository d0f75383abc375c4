package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", "familypoints", time.Hour)

	tok, err := iss.NewAccessToken(7, RoleParent)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
	if claims.Role != RoleParent {
		t.Errorf("Role = %q, want %q", claims.Role, RoleParent)
	}
	if claims.Subject != "7" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "7")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, _ := NewIssuer("secret", "familypoints", time.Hour).NewAccessToken(1, RoleChild)
	if _, err := NewIssuer("other", "familypoints", time.Hour).Parse(tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	tok, _ := NewIssuer("secret", "someone-else", time.Hour).NewAccessToken(1, RoleChild)
	if _, err := NewIssuer("secret", "familypoints", time.Hour).Parse(tok); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestParseExpired(t *testing.T) {
	iss := NewIssuer("secret", "familypoints", time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := iss.NewAccessToken(1, RoleChild)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}

	iss.now = time.Now
	_, err = iss.Parse(tok)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("err = %v, want jwt.ErrTokenExpired", err)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := NewIssuer("secret", "familypoints", time.Hour).Parse("not-a-token"); err == nil {
		t.Fatal("expected error for garbage token")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "hunter3") {
		t.Error("expected wrong password to fail")
	}
}
