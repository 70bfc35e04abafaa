package authlink

import "time"

// Auth is a stored credential for exactly one (user, provider) pair.
// It is created unlinked by a provider-specific verification step and
// transitions to linked exactly once, when the engine assigns an owner.
type Auth struct {
	ID       string         `json:"id"`
	Provider string         `json:"provider"` // "local", "google", "github"
	Email    string         `json:"email,omitempty"`
	Username string         `json:"username,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"` // provider-specific fields (password_hash, access_token, etc.)

	// UserID is the owner foreign key. Empty until linked. This field is the
	// canonical side of the User<->Auth relation; User.Auths is derived.
	UserID string `json:"user_id,omitempty"`

	// Owner is the eagerly loaded owning user. Only set when the record was
	// fetched with owner population; never persisted directly.
	Owner *User `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Linked reports whether the auth has an owning user.
func (a *Auth) Linked() bool {
	return a.UserID != ""
}

// User is an application account. Username and email are seeded from the
// first auth that creates the account and are independently mutable
// afterwards.
type User struct {
	ID       string         `json:"id"`
	Username string         `json:"username,omitempty"`
	Email    string         `json:"email,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"` // application-specific fields

	// Auths is the derived collection of owned credentials, ordered by
	// linkage time. Populated on demand; in-memory appends during a workflow
	// are a same-request optimization, not durable state.
	Auths []*Auth `json:"auths,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthForProvider returns the user's auth for the given provider, or nil.
// Requires Auths to be populated.
func (u *User) AuthForProvider(provider string) *Auth {
	for _, a := range u.Auths {
		if a.Provider == provider {
			return a
		}
	}
	return nil
}
