package store

import (
	"context"
	"time"

	"github.com/locustgrub/locustgrub/server/internal/model"
)

// Store exposes the durable record operations required by services. The two
// implementations (internal/store/postgres, internal/store/filelog) must
// satisfy this contract identically; storetest.Run exercises both.
type Store interface {
	// Append persists a fully populated check-in record. It fails with
	// model.ErrStorageUnavailable when the backend is unreachable and with
	// model.ErrConflict when the id already exists.
	Append(ctx context.Context, c *model.Checkin) (*model.Checkin, error)

	// Query returns matching records newest first. The ordering is a total
	// order: CreatedAt descending, ID descending on ties.
	Query(ctx context.Context, f model.CheckinFilter) ([]*model.Checkin, error)

	// Recent returns the newest records across all vendors, newest first.
	Recent(ctx context.Context, limit int) ([]*model.Checkin, error)

	// CountSince counts a submitter's records created at or after the cutoff.
	// Records committed by Append before the call must be visible.
	CountSince(ctx context.Context, submitterID string, since time.Time) (int, error)

	// WithSubmitterLock serializes fn against concurrent submissions from the
	// same submitter. The rate-limit check and the subsequent Append must both
	// run inside fn, otherwise two concurrent requests can jointly exceed the
	// submission cap.
	WithSubmitterLock(ctx context.Context, submitterID string, fn func(ctx context.Context) error) error
}
