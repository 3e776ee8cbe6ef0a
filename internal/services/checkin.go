package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/locustgrub/locustgrub/server/internal/aggregate"
	"github.com/locustgrub/locustgrub/server/internal/model"
	"github.com/locustgrub/locustgrub/server/internal/moderation"
	"github.com/locustgrub/locustgrub/server/internal/ratelimit"
	"github.com/locustgrub/locustgrub/server/internal/store"
	"github.com/locustgrub/locustgrub/server/internal/validate"
)

// Policy constants. The status window feeds the aggregator; the rate-limit
// window caps submissions per submitter. They are distinct on purpose.
const (
	StatusWindow    = 30 * time.Minute
	RateLimitWindow = 10 * time.Minute
	RateLimitMax    = 3

	MaxCommentLength   = 240
	DefaultRecentLimit = 50
)

// CheckinService orchestrates check-in ingestion and the derived reads.
// It is the single mutation entry point: every write goes through Submit.
type CheckinService struct {
	store   store.Store
	limiter *ratelimit.Limiter
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewCheckinService wires the service over a record store. timeout bounds
// every store operation.
func NewCheckinService(s store.Store, log zerolog.Logger, timeout time.Duration) *CheckinService {
	return &CheckinService{
		store:   s,
		limiter: ratelimit.New(s, RateLimitWindow, RateLimitMax),
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock overrides the wall-clock source. Used by tests.
func (s *CheckinService) WithClock(now func() time.Time) *CheckinService {
	s.now = now
	return s
}

// Submit validates, moderates, rate-limits and persists one check-in.
// A rejected submission leaves no trace in the store and consumes no quota.
func (s *CheckinService) Submit(ctx context.Context, in model.CheckinInput) (*model.Checkin, error) {
	if err := validate.CheckinInput(in); err != nil {
		return nil, err
	}

	// Trim is normalization and happens before moderation; truncation is
	// not, so it waits until the screen has seen the full comment.
	comment := strings.TrimSpace(in.Comment)
	if comment != "" && !moderation.IsClean(comment) {
		return nil, fmt.Errorf("%w: please keep reviews respectful", model.ErrModerationRejected)
	}
	// The cap counts characters, not bytes; a byte slice could tear a
	// multibyte rune.
	if r := []rune(comment); len(r) > MaxCommentLength {
		comment = string(r[:MaxCommentLength])
	}

	submitterID := strings.TrimSpace(in.SubmitterID)
	if submitterID == "" {
		submitterID = "anon-" + uuid.New().String()[:8]
	}

	rec := &model.Checkin{
		ID:            uuid.New().String(),
		VendorID:      in.VendorID,
		Presence:      model.Presence(in.Presence),
		LineLength:    model.LineLength(in.LineLength),
		Rating:        normalizeRating(in.Rating),
		EnteredRaffle: in.EnteredRaffle,
		SubmitterID:   submitterID,
	}
	if comment != "" {
		rec.Comment = &comment
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.store.WithSubmitterLock(opCtx, submitterID, func(ctx context.Context) error {
		now := s.now().UTC()
		ok, err := s.limiter.Allow(ctx, submitterID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: submitter %s exceeded %d submissions per %s",
				model.ErrRateLimited, submitterID, RateLimitMax, RateLimitWindow)
		}
		rec.CreatedAt = now
		_, err = s.store.Append(ctx, rec)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("checkin_id", rec.ID).
		Str("vendor_id", rec.VendorID).
		Str("presence", string(rec.Presence)).
		Msg("check-in recorded")
	return rec, nil
}

// GetStatus computes the derived snapshot for one vendor from its trailing
// 30-minute window. An empty window yields the unknown snapshot, not an error.
func (s *CheckinService) GetStatus(ctx context.Context, vendorID string) (*model.VendorStatus, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, fmt.Errorf("%w: vendorId is required", model.ErrValidation)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	since := now.Add(-StatusWindow)
	recs, err := s.store.Query(opCtx, model.CheckinFilter{VendorID: vendorID, Since: &since})
	if err != nil {
		return nil, err
	}
	status := aggregate.Compute(vendorID, recs, now)
	return &status, nil
}

// GetRecent returns the newest records across all vendors for audit views.
func (s *CheckinService) GetRecent(ctx context.Context, limit int) ([]*model.Checkin, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Recent(opCtx, limit)
}

// GetWindow returns raw records across all vendors in a trailing window.
func (s *CheckinService) GetWindow(ctx context.Context, minutes int) ([]*model.Checkin, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", model.ErrValidation)
	}
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	since := s.now().UTC().Add(-time.Duration(minutes) * time.Minute)
	return s.store.Query(opCtx, model.CheckinFilter{Since: &since})
}

// normalizeRating rounds a valid numeric rating into 1..5 and drops
// everything else. Out-of-range values are dropped, never clamped.
func normalizeRating(v any) *int {
	if v == nil {
		return nil
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || f < 1 || f > 5 {
		return nil
	}
	r := int(math.Round(f))
	return &r
}
