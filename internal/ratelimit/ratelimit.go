// Package ratelimit caps per-submitter submissions over a sliding window.
package ratelimit

import (
	"context"
	"time"

	"github.com/locustgrub/locustgrub/server/internal/store"
)

// Limiter admits a submission when the submitter has fewer than max records
// in the trailing window. The count is evaluated against the store, so it
// must run inside the store's submitter lock to be race-free with respect to
// concurrent submissions from the same submitter.
type Limiter struct {
	store  store.Store
	window time.Duration
	max    int
}

// New creates a Limiter with the given window and cap.
func New(s store.Store, window time.Duration, max int) *Limiter {
	return &Limiter{store: s, window: window, max: max}
}

// Allow reports whether a submission from submitterID at now is under quota.
func (l *Limiter) Allow(ctx context.Context, submitterID string, now time.Time) (bool, error) {
	n, err := l.store.CountSince(ctx, submitterID, now.Add(-l.window))
	if err != nil {
		return false, err
	}
	return n < l.max, nil
}
