package authlink

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiry is the default lifetime for issued access tokens.
const DefaultTokenExpiry = 15 * time.Minute

// TokenIssuer is the token-issuance collaborator, the reverse side of the
// user schema's jsonWebTokens relation. The engine never calls it; the
// surrounding application issues a token for the user the engine resolves.
type TokenIssuer interface {
	IssueToken(user *User, ttl time.Duration) (string, error)
}

// JWTIssuer issues HMAC-signed JWT access tokens for resolved accounts.
type JWTIssuer struct {
	SecretKey string
	Issuer    string
	Audience  string

	// SigningAlg selects HS256 (default), HS384 or HS512.
	SigningAlg string
}

// IssueToken signs an access token for the user. A zero ttl uses
// DefaultTokenExpiry.
func (j *JWTIssuer) IssueToken(user *User, ttl time.Duration) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("user required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if j.Issuer != "" {
		claims["iss"] = j.Issuer
	}
	if j.Audience != "" {
		claims["aud"] = j.Audience
	}

	signingMethod := jwt.SigningMethodHS256
	if j.SigningAlg == "HS384" {
		signingMethod = jwt.SigningMethodHS384
	} else if j.SigningAlg == "HS512" {
		signingMethod = jwt.SigningMethodHS512
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	signed, err := token.SignedString([]byte(j.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
