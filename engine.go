package authlink

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// Engine is the account reconciliation core. Given a freshly authenticated
// credential it decides whether that credential belongs to an existing
// account or requires a new one, and keeps the Auth<->User association
// consistent as providers accumulate for the same person.
//
// The engine holds no state of its own beyond its collaborators: every
// operation is a sequence of store round trips, and records passed in are
// borrowed only for the duration of the call.
type Engine struct {
	auths  AuthStore
	users  UserStore
	logger *slog.Logger
	schema *UserSchema
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for diagnostics on store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithUserSchema makes the engine validate user attribute bags against the
// given schema before account creation.
func WithUserSchema(schema *UserSchema) Option {
	return func(e *Engine) { e.schema = schema }
}

// New creates an Engine backed by the given stores.
func New(auths AuthStore, users UserStore, opts ...Option) (*Engine, error) {
	if auths == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	e := &Engine{auths: auths, users: users}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// FindAuth locates an auth record by criteria with its owner eagerly loaded
// and returns the account-centric view: the owning user whose Auths slice
// holds exactly the auth that was looked up. Callers almost always want "the
// account that owns this credential", not the credential itself, and the
// inversion avoids a second round trip for the reverse relation.
//
// Returns (nil, nil) when no auth matches, or when the matched auth has no
// owner yet.
func (e *Engine) FindAuth(ctx context.Context, criteria AuthCriteria) (*User, error) {
	auth, err := e.auths.FindOne(ctx, criteria, true)
	if err != nil {
		e.logger.Debug("auth lookup failed", "error", err)
		return nil, err
	}
	return invertAuth(auth), nil
}

// FindOrCreateAuth idempotently obtains the auth record keyed by criteria,
// creating it from attrs if absent, and resolves its owning account. This is
// the entry point for flows where only provider credentials are known ("log
// in with provider X").
func (e *Engine) FindOrCreateAuth(ctx context.Context, criteria AuthCriteria, attrs AuthAttributes) (*User, error) {
	auth, _, err := e.auths.FindOrCreate(ctx, criteria, attrs)
	if err != nil {
		e.logger.Debug("auth find-or-create failed", "error", err)
		return nil, err
	}

	// The find-or-create primitive does not guarantee relation population,
	// so re-fetch by id with the owner loaded.
	auth, err = e.auths.FindOne(ctx, AuthCriteria{ID: auth.ID}, true)
	if err != nil {
		e.logger.Debug("auth re-fetch failed", "error", err)
		return nil, err
	}
	if auth == nil {
		return nil, fmt.Errorf("auth disappeared after find-or-create")
	}

	return e.resolveOwner(ctx, auth)
}

// AttachAuthToUser links the credential described by attrs to an already
// resolved account, for flows where identity is known up front ("add this
// provider to my current session"). If the user already has an auth for the
// provider its attributes are updated in place when they differ; otherwise a
// new auth is created scoped to this user, never through the email-matching
// heuristic.
func (e *Engine) AttachAuthToUser(ctx context.Context, attrs AuthAttributes, user *User) (*User, error) {
	if attrs.Provider == "" {
		return nil, ErrMissingProvider
	}
	if user == nil || user.ID == "" {
		return nil, ErrMissingUser
	}

	// Creation, if it happens, must come out pre-linked to this user.
	attrs.UserID = user.ID

	full, err := e.users.FindOne(ctx, UserCriteria{ID: user.ID}, true)
	if err != nil {
		e.logger.Debug("user lookup failed", "error", err)
		return nil, err
	}
	if full == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user.ID)
	}

	existing := full.AuthForProvider(attrs.Provider)
	if existing == nil {
		// Force creation scoped to this user. The caller has already
		// resolved identity; the merge heuristic must not re-run.
		return e.FindOrCreateAuth(ctx, AuthCriteria{UserID: full.ID, Provider: attrs.Provider}, attrs)
	}

	if patch, changed := diffAuth(existing, attrs); changed {
		updated, err := e.auths.Update(ctx, existing.ID, patch)
		if err != nil {
			e.logger.Debug("auth update failed", "error", err)
			return nil, err
		}
		replaceAuth(full, updated)
	}
	return full, nil
}

// resolveOwner is the core decision procedure. Called with an auth that has
// just been fetched or created, owner populated if present.
//
// Linked: terminal, no store mutation; return the inverted view.
//
// Unlinked: search for a candidate, another auth with exactly this email.
// A candidate with a different id means this credential is assumed to belong
// to the candidate owner's real-world person: adopt that owner (merge).
// Otherwise seed a brand-new account from the auth's username and email.
//
// Matching is by exact email equality only and the first store-ordered match
// wins; multiple same-email candidates are not disambiguated. If user
// creation succeeds but the subsequent owner update fails, the user row
// persists unlinked; that window is accepted, not masked.
func (e *Engine) resolveOwner(ctx context.Context, auth *Auth) (*User, error) {
	if auth.Linked() {
		return invertAuth(auth), nil
	}

	var candidate *Auth
	if auth.Email != "" {
		var err error
		candidate, err = e.auths.FindOne(ctx, AuthCriteria{Email: auth.Email}, true)
		if err != nil {
			e.logger.Debug("candidate search failed", "error", err)
			return nil, err
		}
	}

	if candidate != nil && candidate.ID != auth.ID && candidate.Owner != nil {
		return e.mergeInto(ctx, auth, candidate.Owner)
	}
	return e.seedUser(ctx, auth)
}

// mergeInto links auth to an existing owner discovered via email match.
func (e *Engine) mergeInto(ctx context.Context, auth *Auth, owner *User) (*User, error) {
	updated, err := e.auths.Update(ctx, auth.ID, AuthPatch{UserID: &owner.ID})
	if err != nil {
		e.logger.Debug("owner update failed", "error", err)
		return nil, err
	}
	owner.Auths = append(owner.Auths, updated)
	return owner, nil
}

// seedUser creates a brand-new account owned by auth.
func (e *Engine) seedUser(ctx context.Context, auth *Auth) (*User, error) {
	attrs := UserAttributes{Username: auth.Username, Email: auth.Email}
	if e.schema != nil {
		if err := e.schema.ValidateAttributes(attrs); err != nil {
			return nil, err
		}
	}

	user, err := e.users.Create(ctx, attrs)
	if err != nil {
		e.logger.Debug("user create failed", "error", err)
		return nil, err
	}

	updated, err := e.auths.Update(ctx, auth.ID, AuthPatch{UserID: &user.ID})
	if err != nil {
		e.logger.Debug("owner update failed", "error", err)
		return nil, err
	}
	user.Auths = append(user.Auths, updated)
	return user, nil
}

// invertAuth reshapes an owner-populated auth into the account-centric view
// so callers do not need a second query for the reverse relation.
func invertAuth(auth *Auth) *User {
	if auth == nil || auth.Owner == nil {
		return nil
	}
	owner := auth.Owner
	auth.Owner = nil
	owner.Auths = []*Auth{auth}
	return owner
}

// diffAuth compares a stored auth against an incoming attribute set and
// builds the patch that would reconcile them, attributes winning on
// conflict. Empty incoming fields leave the stored value alone.
func diffAuth(auth *Auth, attrs AuthAttributes) (AuthPatch, bool) {
	var patch AuthPatch
	changed := false

	if attrs.Email != "" && attrs.Email != auth.Email {
		patch.Email = &attrs.Email
		changed = true
	}
	if attrs.Username != "" && attrs.Username != auth.Username {
		patch.Username = &attrs.Username
		changed = true
	}
	if len(attrs.Extra) > 0 {
		merged := make(map[string]any, len(auth.Extra)+len(attrs.Extra))
		for k, v := range auth.Extra {
			merged[k] = v
		}
		for k, v := range attrs.Extra {
			merged[k] = v
		}
		if !reflect.DeepEqual(merged, auth.Extra) {
			patch.Extra = merged
			changed = true
		}
	}
	return patch, changed
}

// replaceAuth swaps the matching entry of the user's populated auths view so
// the returned view reflects post-operation state for the touched provider.
func replaceAuth(user *User, updated *Auth) {
	for i, a := range user.Auths {
		if a.ID == updated.ID {
			user.Auths[i] = updated
			return
		}
	}
	user.Auths = append(user.Auths, updated)
}
