package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/locustgrub/locustgrub/server/internal/model"
	"github.com/locustgrub/locustgrub/server/internal/store"
)

// Run exercises the record-store compliance suite against a store.Store
// implementation. Implementations should provide a clean, isolated store
// and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	vendorA := "vendor-" + uuid.New().String()
	vendorB := "vendor-" + uuid.New().String()
	submitter := "sub-" + uuid.New().String()
	base := time.Now().UTC().Truncate(time.Second)

	mk := func(vendor string, presence model.Presence, at time.Time) *model.Checkin {
		return &model.Checkin{
			ID:          uuid.New().String(),
			VendorID:    vendor,
			Presence:    presence,
			LineLength:  model.LineShort,
			SubmitterID: submitter,
			CreatedAt:   at,
		}
	}

	first := mk(vendorA, model.PresencePresent, base.Add(-20*time.Minute))
	second := mk(vendorA, model.PresenceAbsent, base.Add(-5*time.Minute))
	other := mk(vendorB, model.PresencePresent, base.Add(-1*time.Minute))

	for _, c := range []*model.Checkin{first, second, other} {
		if _, err := s.Append(ctx, c); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Duplicate id must surface as a conflict.
	if _, err := s.Append(ctx, first); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("Append duplicate: want ErrConflict, got %v", err)
	}

	// Vendor filter + newest-first ordering.
	recs, err := s.Query(ctx, model.CheckinFilter{VendorID: vendorA})
	if err != nil {
		t.Fatalf("Query vendor: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != second.ID || recs[1].ID != first.ID {
		t.Fatalf("Query vendor: wrong records/order: %+v", recs)
	}

	// Round-trip field fidelity.
	if recs[1].Presence != first.Presence || recs[1].LineLength != first.LineLength ||
		recs[1].SubmitterID != first.SubmitterID || !recs[1].CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("Query round-trip mismatch: got %+v want %+v", recs[1], first)
	}

	// Time filter composes with the vendor filter.
	cutoff := base.Add(-10 * time.Minute)
	recs, err = s.Query(ctx, model.CheckinFilter{VendorID: vendorA, Since: &cutoff})
	if err != nil {
		t.Fatalf("Query windowed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != second.ID {
		t.Fatalf("Query windowed: got %+v", recs)
	}

	// Identical timestamps order by id descending.
	tieAt := base.Add(-2 * time.Minute)
	tieA := mk(vendorA, model.PresencePresent, tieAt)
	tieB := mk(vendorA, model.PresencePresent, tieAt)
	for _, c := range []*model.Checkin{tieA, tieB} {
		if _, err := s.Append(ctx, c); err != nil {
			t.Fatalf("Append tie: %v", err)
		}
	}
	recs, err = s.Query(ctx, model.CheckinFilter{VendorID: vendorA})
	if err != nil {
		t.Fatalf("Query after tie: %v", err)
	}
	wantFirst, wantSecond := tieA.ID, tieB.ID
	if wantSecond > wantFirst {
		wantFirst, wantSecond = wantSecond, wantFirst
	}
	if recs[0].ID != wantFirst || recs[1].ID != wantSecond {
		t.Fatalf("tie order: got [%s %s] want [%s %s]", recs[0].ID, recs[1].ID, wantFirst, wantSecond)
	}

	// Recent spans vendors, newest first, honoring the limit.
	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != other.ID {
		t.Fatalf("Recent: got %+v", recent)
	}

	// CountSince sees every append made above (read-after-write).
	n, err := s.CountSince(ctx, submitter, base.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if n != 5 {
		t.Fatalf("CountSince: got %d want 5", n)
	}
	n, err = s.CountSince(ctx, submitter, base.Add(-3*time.Minute))
	if err != nil {
		t.Fatalf("CountSince windowed: %v", err)
	}
	if n != 3 {
		t.Fatalf("CountSince windowed: got %d want 3", n)
	}

	// WithSubmitterLock runs fn and propagates its error unchanged.
	sentinel := errors.New("boom")
	if err := s.WithSubmitterLock(ctx, submitter, func(ctx context.Context) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("WithSubmitterLock: want sentinel error, got %v", err)
	}
	if err := s.WithSubmitterLock(ctx, submitter, func(ctx context.Context) error {
		_, err := s.Append(ctx, mk(vendorB, model.PresenceAbsent, base))
		return err
	}); err != nil {
		t.Fatalf("WithSubmitterLock append: %v", err)
	}
}
