package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_IssueVerify(t *testing.T) {
	svc := NewTokenService("secret")

	token, err := svc.Issue(NewClaims("alice", time.Unix(2000000000, 0)))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "alice" || claims.Subject != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt.Unix() != 2000000000 {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
	if claims.ID == "" || claims.Issuer != tokenIssuer {
		t.Fatalf("expected jti and issuer, got %+v", claims.RegisteredClaims)
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService("secret")

	token, err := svc.Issue(NewClaims("alice", time.Now().Add(-time.Minute)))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_RejectsOtherSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").Issue(NewClaims("alice", time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenService("secret-b").Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenService_RejectsMalformed(t *testing.T) {
	svc := NewTokenService("secret")
	for _, token := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", token, err)
		}
	}
}

func TestTokenService_RejectsMissingExpiry(t *testing.T) {
	svc := NewTokenService("secret")
	claims := Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  tokenIssuer,
			Subject: "alice",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid without exp, got %v", err)
	}
}

func TestTokenService_RejectsOtherAlgorithm(t *testing.T) {
	svc := NewTokenService("secret")
	claims := NewClaims("alice", time.Now().Add(time.Hour))
	claims.Issuer = tokenIssuer
	claims.Subject = "alice"
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for HS512, got %v", err)
	}
}

func TestTokenService_IssueWithoutSecret(t *testing.T) {
	svc := NewTokenService("")
	if _, err := svc.Issue(NewClaims("alice", time.Now().Add(time.Hour))); !errors.Is(err, ErrTokenSigning) {
		t.Fatalf("expected ErrTokenSigning, got %v", err)
	}
}
