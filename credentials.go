package authlink

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// ProviderLocal is the provider tag for password credentials.
const ProviderLocal = "local"

// extraPasswordHash is the provider-bag key holding the bcrypt hash for
// local credentials.
const extraPasswordHash = "password_hash"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LocalAttributes builds the attribute set for a password credential. The
// password is bcrypt-hashed into the provider bag; the engine never sees the
// plaintext again.
func LocalAttributes(username, email, password string) (AuthAttributes, error) {
	if email != "" && !emailRegex.MatchString(email) {
		return AuthAttributes{}, fmt.Errorf("invalid email format")
	}
	if password == "" {
		return AuthAttributes{}, fmt.Errorf("password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthAttributes{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return AuthAttributes{
		Provider: ProviderLocal,
		Username: username,
		Email:    email,
		Extra:    map[string]any{extraPasswordHash: string(hash)},
	}, nil
}

// VerifyLocalPassword checks a plaintext password against the hash stored in
// a local auth's provider bag.
func VerifyLocalPassword(auth *Auth, password string) error {
	hash, ok := auth.Extra[extraPasswordHash].(string)
	if !ok {
		return fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("invalid credentials")
	}
	return nil
}
