// Package aggregate collapses a vendor's windowed check-ins into one
// derived status snapshot. It performs no I/O and keeps no state; the same
// input always yields the same snapshot.
package aggregate

import (
	"time"

	"github.com/locustgrub/locustgrub/server/internal/model"
)

// Compute derives the status snapshot for one vendor from its windowed
// records. Records must be ordered newest first, the total order the store
// guarantees (CreatedAt descending, ID descending on ties); the most-recent
// tie-break rules below rely on it.
func Compute(vendorID string, records []*model.Checkin, now time.Time) model.VendorStatus {
	out := model.VendorStatus{
		VendorID:   vendorID,
		Status:     model.StateUnknown,
		LineLength: model.LineUnknown,
	}
	if len(records) == 0 {
		return out
	}
	out.SubmissionsInWindow = len(records)

	// Presence vote across the whole window.
	present, absent := 0, 0
	for _, r := range records {
		if r.Presence == model.PresencePresent {
			present++
		} else {
			absent++
		}
	}
	switch {
	case present > absent:
		out.Status = model.StatePresent
	case absent > present:
		out.Status = model.StateAbsent
	}
	if total := present + absent; total > 0 {
		out.StatusConfidence = float64(max(present, absent)) / float64(total)
	}

	// Line-length vote among present reports only; absent reports carry no
	// line information. Scanning newest first means the first category to
	// reach the maximal count wins a tie.
	lineVotes := map[model.LineLength]int{}
	bestCount := 0
	for _, r := range records {
		if r.Presence != model.PresencePresent {
			continue
		}
		lineVotes[r.LineLength]++
		if lineVotes[r.LineLength] > bestCount {
			bestCount = lineVotes[r.LineLength]
			out.LineLength = r.LineLength
		}
	}
	if present > 0 && bestCount > 0 {
		out.LineConfidence = float64(bestCount) / float64(present)
	}

	// Freshness counts any report, absent included: a recent "not here" is
	// still fresh information.
	minutes := int(now.Sub(records[0].CreatedAt).Minutes())
	out.FreshnessMinutes = &minutes

	for _, r := range records {
		if r.Presence == model.PresencePresent {
			at := r.CreatedAt
			out.LastVerifiedAt = &at
			break
		}
	}
	return out
}
