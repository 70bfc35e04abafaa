package authlink

import (
	"time"

	"golang.org/x/oauth2"
)

// OAuthAttributes builds the attribute set for an OAuth credential from the
// provider's token and userinfo payload. Well-known userinfo keys map onto
// the auth's first-class fields; everything else, plus the token material,
// lands in the provider bag.
func OAuthAttributes(provider string, tok *oauth2.Token, userInfo map[string]any) AuthAttributes {
	attrs := AuthAttributes{
		Provider: provider,
		Extra:    map[string]any{},
	}

	for key, value := range userInfo {
		switch key {
		case "email":
			if s, ok := value.(string); ok {
				attrs.Email = s
				continue
			}
		case "username", "login":
			if s, ok := value.(string); ok && attrs.Username == "" {
				attrs.Username = s
				continue
			}
		}
		attrs.Extra[key] = value
	}
	if attrs.Username == "" {
		if name, ok := userInfo["name"].(string); ok {
			attrs.Username = name
			delete(attrs.Extra, "name")
		}
	}

	if tok != nil {
		attrs.Extra["access_token"] = tok.AccessToken
		attrs.Extra["token_type"] = tok.TokenType
		if tok.RefreshToken != "" {
			attrs.Extra["refresh_token"] = tok.RefreshToken
		}
		if !tok.Expiry.IsZero() {
			attrs.Extra["expires_at"] = tok.Expiry.UTC().Format(time.RFC3339)
		}
	}
	return attrs
}
