package model

import "errors"

var (
	// ErrValidation marks a malformed or missing required field; always the
	// caller's fault, never retried.
	ErrValidation = errors.New("validation error")
	// ErrModerationRejected marks a comment that failed the content screen.
	ErrModerationRejected = errors.New("moderation rejected")
	// ErrRateLimited marks a submitter over quota; retryable after the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStorageUnavailable marks an unreachable or timed-out backend.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConflict marks a duplicate record id. This cannot happen under
	// correct id generation and is treated as an internal invariant violation.
	ErrConflict = errors.New("conflict")
)
