package authlink_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	al "github.com/authlink/authlink"
)

func TestJWTIssuer(t *testing.T) {
	issuer := &al.JWTIssuer{
		SecretKey: "test-secret",
		Issuer:    "authlink-test",
		Audience:  "test-clients",
	}
	user := &al.User{ID: "user-1"}

	signed, err := issuer.IssueToken(user, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("Failed to parse issued token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("Expected map claims")
	}
	if claims["sub"] != "user-1" {
		t.Errorf("Expected sub user-1, got %v", claims["sub"])
	}
	if claims["iss"] != "authlink-test" {
		t.Errorf("Expected iss authlink-test, got %v", claims["iss"])
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		t.Fatalf("Failed to read expiry: %v", err)
	}
	if remaining := time.Until(exp.Time); remaining < 55*time.Minute || remaining > time.Hour {
		t.Errorf("Expected about an hour of validity, got %v", remaining)
	}
}

func TestJWTIssuerDefaultExpiry(t *testing.T) {
	issuer := &al.JWTIssuer{SecretKey: "test-secret"}
	signed, err := issuer.IssueToken(&al.User{ID: "user-1"}, 0)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("Failed to parse issued token: %v", err)
	}
	exp, err := parsed.Claims.(jwt.MapClaims).GetExpirationTime()
	if err != nil {
		t.Fatalf("Failed to read expiry: %v", err)
	}
	if remaining := time.Until(exp.Time); remaining > al.DefaultTokenExpiry {
		t.Errorf("Expected default expiry of %v, got %v remaining", al.DefaultTokenExpiry, remaining)
	}
}

func TestJWTIssuerSigningAlgorithms(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		issuer := &al.JWTIssuer{SecretKey: "test-secret", SigningAlg: alg}
		signed, err := issuer.IssueToken(&al.User{ID: "user-1"}, time.Minute)
		if err != nil {
			t.Fatalf("Failed to issue %s token: %v", alg, err)
		}
		if _, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
			return []byte("test-secret"), nil
		}, jwt.WithValidMethods([]string{alg})); err != nil {
			t.Errorf("Failed to verify %s token: %v", alg, err)
		}
	}
}

func TestJWTIssuerRequiresUser(t *testing.T) {
	issuer := &al.JWTIssuer{SecretKey: "test-secret"}
	if _, err := issuer.IssueToken(nil, time.Minute); err == nil {
		t.Error("Expected error for nil user")
	}
	if _, err := issuer.IssueToken(&al.User{}, time.Minute); err == nil {
		t.Error("Expected error for user without id")
	}
}
