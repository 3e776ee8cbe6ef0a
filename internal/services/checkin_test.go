package services

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/locustgrub/locustgrub/server/internal/model"
	"github.com/locustgrub/locustgrub/server/internal/store/filelog"
)

func newTestService(t *testing.T) (*CheckinService, *fakeClock) {
	t.Helper()
	fs, err := filelog.Open(filepath.Join(t.TempDir(), "checkins.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	clock := &fakeClock{at: time.Date(2026, 4, 12, 12, 0, 0, 0, time.UTC)}
	svc := NewCheckinService(fs, zerolog.Nop(), 5*time.Second).WithClock(clock.Now)
	return svc, clock
}

type fakeClock struct{ at time.Time }

func (c *fakeClock) Now() time.Time          { return c.at }
func (c *fakeClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

func validInput() model.CheckinInput {
	return model.CheckinInput{
		VendorID:    "magic-carpet",
		Presence:    "present",
		LineLength:  "short",
		SubmitterID: "worker-1",
	}
}

func mustCount(t *testing.T, svc *CheckinService) int {
	t.Helper()
	recs, err := svc.GetRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	return len(recs)
}

func TestSubmit_ValidationLeavesStoreUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bad := []model.CheckinInput{
		{Presence: "present", LineLength: "short"},
		{VendorID: "v", Presence: "hovering", LineLength: "short"},
		{VendorID: "v", Presence: "present", LineLength: "enormous"},
	}
	for _, in := range bad {
		if _, err := svc.Submit(ctx, in); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("want ErrValidation for %+v, got %v", in, err)
		}
	}
	if n := mustCount(t, svc); n != 0 {
		t.Fatalf("store should be empty after validation failures, has %d records", n)
	}
}

func TestSubmit_AssignsServerFields(t *testing.T) {
	svc, clock := newTestService(t)

	rec, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("id not assigned")
	}
	if !rec.CreatedAt.Equal(clock.Now().UTC()) {
		t.Fatalf("createdAt: got %v want %v", rec.CreatedAt, clock.Now().UTC())
	}
}

func TestSubmit_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.Comment = "  great falafel  "
	in.Rating = 4.4
	in.EnteredRaffle = true

	rec, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	recs, err := svc.GetWindow(ctx, 30)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	got := recs[0]
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
	if got.Comment == nil || *got.Comment != "great falafel" {
		t.Fatalf("comment not trimmed: %v", got.Comment)
	}
	if got.Rating == nil || *got.Rating != 4 {
		t.Fatalf("rating not rounded: %v", got.Rating)
	}
}

func TestSubmit_ModerationRejectsEndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.Comment = "this line is total SHIT"
	if _, err := svc.Submit(ctx, in); !errors.Is(err, model.ErrModerationRejected) {
		t.Fatalf("want ErrModerationRejected, got %v", err)
	}
	if n := mustCount(t, svc); n != 0 {
		t.Fatalf("rejected submission left %d records behind", n)
	}
}

func TestSubmit_ModerationScreensBeforeTruncation(t *testing.T) {
	svc, _ := newTestService(t)

	// The profanity sits past the 240-char cut; truncate-then-accept would
	// let it through.
	in := validInput()
	in.Comment = strings.Repeat("a", 250) + " shit"
	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, model.ErrModerationRejected) {
		t.Fatalf("want ErrModerationRejected for overflow profanity, got %v", err)
	}
}

func TestSubmit_TruncatesCleanCommentTo240(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput()
	in.Comment = strings.Repeat("b", 300)
	rec, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Comment == nil || len(*rec.Comment) != 240 {
		t.Fatalf("comment not truncated to 240: %v", rec.Comment)
	}
}

func TestSubmit_TruncatesOnCharactersNotBytes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 300 three-byte runes: a byte-indexed cut would keep only 80 characters.
	in := validInput()
	in.Comment = strings.Repeat("日", 300)
	rec, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Comment == nil || utf8.RuneCountInString(*rec.Comment) != 240 {
		t.Fatalf("multibyte comment not truncated to 240 characters: %v", rec.Comment)
	}

	// Force the 240th byte to land mid-rune; the stored comment must still be
	// valid UTF-8 and survive persistence unchanged.
	in = validInput()
	in.SubmitterID = "worker-2"
	in.Comment = strings.Repeat("a", 239) + strings.Repeat("é", 30)
	rec2, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec2.Comment == nil || !utf8.ValidString(*rec2.Comment) {
		t.Fatalf("truncated comment is not valid UTF-8: %q", *rec2.Comment)
	}
	if want := strings.Repeat("a", 239) + "é"; *rec2.Comment != want {
		t.Fatalf("truncated comment: got %q want %q", *rec2.Comment, want)
	}

	recs, err := svc.GetWindow(ctx, 30)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	for _, got := range recs {
		if got.ID == rec2.ID && *got.Comment != *rec2.Comment {
			t.Fatalf("persisted comment differs:\n got %q\nwant %q", *got.Comment, *rec2.Comment)
		}
	}
}

func TestSubmit_RateLimitFourthRejected(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		in := validInput()
		// Vendor and content do not matter for the cap.
		if i == 1 {
			in.VendorID = "other-vendor"
		}
		if _, err := svc.Submit(ctx, in); err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
		clock.Advance(time.Minute)
	}

	if _, err := svc.Submit(ctx, validInput()); !errors.Is(err, model.ErrRateLimited) {
		t.Fatalf("4th submission: want ErrRateLimited, got %v", err)
	}
	if n := mustCount(t, svc); n != 3 {
		t.Fatalf("rate-limited submission must not write, have %d records", n)
	}

	// A different submitter is unaffected.
	in := validInput()
	in.SubmitterID = "worker-2"
	if _, err := svc.Submit(ctx, in); err != nil {
		t.Fatalf("other submitter: %v", err)
	}

	// After the window rolls past, the original submitter is admitted again.
	clock.Advance(9 * time.Minute)
	if _, err := svc.Submit(ctx, validInput()); err != nil {
		t.Fatalf("post-window submission: %v", err)
	}
}

func TestSubmit_ConcurrentSameSubmitterHonorsCap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, validInput())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, model.ErrRateLimited):
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if accepted != RateLimitMax {
		t.Fatalf("accepted %d concurrent submissions, want %d", accepted, RateLimitMax)
	}
	if n := mustCount(t, svc); n != RateLimitMax {
		t.Fatalf("store holds %d records, want %d", n, RateLimitMax)
	}
}

func TestSubmit_AnonymousSubmitterIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.SubmitterID = "   "
	a, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	b, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(a.SubmitterID, "anon-") || !strings.HasPrefix(b.SubmitterID, "anon-") {
		t.Fatalf("anonymous ids missing prefix: %s %s", a.SubmitterID, b.SubmitterID)
	}
	if a.SubmitterID == b.SubmitterID {
		t.Fatalf("anonymous ids must not be reused across submissions")
	}
}

func TestGetStatus_EmptyWindowIsUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	st, err := svc.GetStatus(context.Background(), "ghost-vendor")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.Status != model.StateUnknown || st.StatusConfidence != 0 ||
		st.LineLength != model.LineUnknown || st.LineConfidence != 0 ||
		st.FreshnessMinutes != nil || st.SubmissionsInWindow != 0 {
		t.Fatalf("empty window snapshot wrong: %+v", st)
	}
}

func TestGetStatus_WindowExcludesStaleRecords(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, validInput()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	clock.Advance(31 * time.Minute)

	st, err := svc.GetStatus(ctx, "magic-carpet")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.SubmissionsInWindow != 0 || st.Status != model.StateUnknown {
		t.Fatalf("31-minute-old record must fall out of the window: %+v", st)
	}
}

func TestGetStatus_IdempotentReads(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		in := validInput()
		in.SubmitterID = "worker-" + string(rune('a'+i))
		if _, err := svc.Submit(ctx, in); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	first, err := svc.GetStatus(ctx, "magic-carpet")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	second, err := svc.GetStatus(ctx, "magic-carpet")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("back-to-back snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestNormalizeRating(t *testing.T) {
	cases := []struct {
		in   any
		want *int
	}{
		{nil, nil},
		{4.0, intp(4)},
		{4.6, intp(5)},
		{"3", intp(3)},
		{" 2.2 ", intp(2)},
		{0.9, nil},
		{5.4, nil},
		{6, nil},
		{-1, nil},
		{"five", nil},
		{true, nil},
	}
	for _, c := range cases {
		got := normalizeRating(c.in)
		switch {
		case c.want == nil && got != nil:
			t.Errorf("normalizeRating(%v) = %d, want nil", c.in, *got)
		case c.want != nil && (got == nil || *got != *c.want):
			t.Errorf("normalizeRating(%v) = %v, want %d", c.in, got, *c.want)
		}
	}
}

func intp(v int) *int { return &v }
