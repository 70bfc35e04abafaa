package authlink

import "context"

// AuthCriteria selects at most one auth record. Zero-valued fields are
// ignored; set fields are combined with AND and matched exactly.
type AuthCriteria struct {
	ID       string
	Provider string
	Email    string
	Username string
	UserID   string
}

// IsZero reports whether no field is set.
func (c AuthCriteria) IsZero() bool {
	return c == AuthCriteria{}
}

// AuthAttributes is the full attribute set used when an auth record must be
// created.
type AuthAttributes struct {
	Provider string
	Email    string
	Username string
	UserID   string // pre-linked owner, set only when creation is scoped to a known user
	Extra    map[string]any
}

// AuthPatch is a partial field update for an auth record. Nil pointers leave
// the stored value unchanged; a non-nil Extra replaces the stored bag.
type AuthPatch struct {
	UserID   *string
	Email    *string
	Username *string
	Extra    map[string]any
}

// UserCriteria selects at most one user record.
type UserCriteria struct {
	ID       string
	Email    string
	Username string
}

// UserAttributes is the attribute set for user creation.
type UserAttributes struct {
	Username string
	Email    string
	Extra    map[string]any
}

// AuthStore manages auth (credential) records.
//
// Every lookup distinguishes not-found from failure: a lookup that matches
// nothing returns (nil, nil). Store failures are returned as-is and are never
// wrapped by implementations.
type AuthStore interface {
	// FindOne returns the auth matching criteria, or (nil, nil) when there is
	// no match. With withOwner set the owning user is eagerly loaded into
	// Auth.Owner (nil for unlinked records).
	FindOne(ctx context.Context, criteria AuthCriteria, withOwner bool) (*Auth, error)

	// FindOrCreate atomically gets or inserts the auth keyed by criteria.
	// Concurrent calls with identical criteria must not produce two records.
	// The returned record does not have its owner populated.
	FindOrCreate(ctx context.Context, criteria AuthCriteria, attrs AuthAttributes) (auth *Auth, created bool, err error)

	// Update applies a partial field update and returns the updated record.
	Update(ctx context.Context, id string, patch AuthPatch) (*Auth, error)
}

// UserStore manages user (account) records.
type UserStore interface {
	// Create inserts a new user and returns it.
	Create(ctx context.Context, attrs UserAttributes) (*User, error)

	// FindOne returns the user matching criteria, or (nil, nil) when there is
	// no match. With withAuths set the owned auths are eagerly loaded into
	// User.Auths, ordered by linkage time.
	FindOne(ctx context.Context, criteria UserCriteria, withAuths bool) (*User, error)
}
