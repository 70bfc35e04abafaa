package authlink

import "errors"

var (
	// ErrMissingProvider is returned by Attach when the attribute set does
	// not name a provider.
	ErrMissingProvider = errors.New("provider is required")

	// ErrMissingUser is returned by Attach when no target user is given.
	ErrMissingUser = errors.New("target user is required")

	// ErrUserNotFound is returned by Attach when the target user does not
	// exist in the store.
	ErrUserNotFound = errors.New("user not found")

	// ErrReservedField is returned by the user schema builder when an
	// application field would shadow one of the reserved relations.
	ErrReservedField = errors.New("field shadows a reserved relation")
)
