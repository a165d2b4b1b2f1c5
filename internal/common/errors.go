// Package common defines shared constants and sentinel errors used across
// ReceiptVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrNotSignedIn marks operations that need an owner id while no user
	// is signed in. Callers treat it as a silent no-op, not a failure.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrBadPayload marks a job payload that can never be executed.
	// The scheduler drops such jobs instead of retrying them.
	ErrBadPayload = errors.New("bad job payload")
)
