// Package authlink reconciles authenticated credentials with application
// accounts. Given a freshly verified credential from any provider (password,
// OAuth, token) it decides whether that credential belongs to an existing
// account or requires a new one, and keeps the bidirectional association
// between accounts and credentials consistent as providers accumulate for
// the same person.
//
// # Architecture
//
// Auth: A stored credential for exactly one (user, provider) pair. An auth
// carries the provider tag, optional email and username, and an opaque
// provider-specific bag. It is created unlinked and transitions to linked
// exactly once.
//
// User: An application account owning any number of auths. The Auth.UserID
// foreign key is the canonical side of the relation; User.Auths is a derived
// view reconstructed by query-time population.
//
// Engine: The decision core. Two entry workflows compose its operations:
//
//   - FindOrCreateAuth, for first-contact logins where only provider
//     credentials are known. An unlinked auth is matched against existing
//     auths by exact email equality: a match joins the credential to that
//     auth's owner (merge), no match seeds a brand-new account.
//   - AttachAuthToUser, for sessions where the account is already known.
//     The user's auth for that provider is updated in place when attributes
//     differ, or created scoped to the user; the email heuristic never
//     re-runs once identity is resolved.
//
// # Basic Usage
//
// Set up stores and the engine:
//
//	import (
//	    "github.com/authlink/authlink"
//	    "github.com/authlink/authlink/stores/fs"
//	)
//
//	storagePath := "/path/to/storage"
//	engine, err := authlink.New(
//	    fs.NewAuthStore(storagePath),
//	    fs.NewUserStore(storagePath),
//	)
//
// Resolve a login:
//
//	attrs := authlink.OAuthAttributes("google", token, userInfo)
//	user, err := engine.FindOrCreateAuth(ctx,
//	    authlink.AuthCriteria{Provider: "google", Email: attrs.Email}, attrs)
//
// Link a second provider to a logged-in session:
//
//	user, err = engine.AttachAuthToUser(ctx, attrs, sessionUser)
//
// # Store Implementations
//
// File-based stores in stores/fs suit development and tests. The stores/gorm
// backend targets SQL databases through GORM and the stores/gae backend
// targets Google Cloud Datastore. For anything else, implement AuthStore and
// UserStore against your database.
//
// # Concurrency
//
// Store calls within one workflow are strictly sequential. The only
// atomicity required from a store is idempotent find-or-create for auths;
// two concurrent first-contact logins with the same novel email can still
// race to seed two accounts. Guard against that with a store-level email
// uniqueness constraint if it matters to your application.
package authlink
