package authlink

import "context"

// AttemptRecorder is the rate-limiting collaborator, the reverse side of the
// user schema's attempts relation. Implementations persist login attempts
// against an account; the engine itself never records or consults them.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, userID string, successful bool) error
}
