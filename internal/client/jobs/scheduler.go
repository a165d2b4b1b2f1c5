// Package jobs provides the durable, constraint-gated job scheduler used by
// the upload pipeline. Jobs are keyed, persisted in the client database so
// they survive process restarts, and delivered at least once when the
// network constraint is satisfied.
package jobs

import "context"

// Policy controls what happens when a key is enqueued while a job with the
// same key is already queued.
type Policy string

const (
	// PolicyKeep leaves the existing job untouched; the new enqueue is a
	// no-op. This is what makes re-dispatch on cold start safe.
	PolicyKeep Policy = "KEEP"

	// PolicyReplace swaps in the new payload and resets the retry state.
	PolicyReplace Policy = "REPLACE"
)

// Scheduler is the durable job queue contract consumed by the sync
// coordinator.
type Scheduler interface {
	// EnqueueUnique queues payload under key. Behaviour on an existing key
	// is governed by policy.
	EnqueueUnique(ctx context.Context, key string, policy Policy, payload []byte) error

	// Cancel removes the queued job for key, if any, and aborts it when it
	// is currently executing. Cancelling an unknown key is a no-op.
	Cancel(ctx context.Context, key string) error
}

// Executor runs a job payload. Returning nil completes the job; returning
// an error wrapping common.ErrBadPayload drops it permanently; any other
// error reschedules the job for a later attempt.
type Executor interface {
	Execute(ctx context.Context, payload []byte) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, payload []byte) error

func (f ExecutorFunc) Execute(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}
