package model

import "time"

// Presence is the binary observation carried by a check-in.
type Presence string

const (
	PresencePresent Presence = "present"
	PresenceAbsent  Presence = "absent"
)

// Valid reports whether p is one of the two accepted observations.
func (p Presence) Valid() bool {
	return p == PresencePresent || p == PresenceAbsent
}

// LineLength is the reported queue estimate. LineUnknown only ever appears
// in derived snapshots, never in stored records.
type LineLength string

const (
	LineNone    LineLength = "none"
	LineShort   LineLength = "short"
	LineMedium  LineLength = "medium"
	LineLong    LineLength = "long"
	LineUnknown LineLength = "unknown"
)

// Valid reports whether l is acceptable on an incoming check-in.
func (l LineLength) Valid() bool {
	switch l {
	case LineNone, LineShort, LineMedium, LineLong:
		return true
	}
	return false
}

// VendorState is the derived presence verdict for a vendor.
type VendorState string

const (
	StatePresent VendorState = "present"
	StateAbsent  VendorState = "absent"
	StateUnknown VendorState = "unknown"
)

// Checkin is one crowd-submitted report about a vendor. Records are
// write-once: there is no update or delete path.
type Checkin struct {
	ID            string     `json:"id"`
	VendorID      string     `json:"vendorId"`
	Presence      Presence   `json:"presence"`
	LineLength    LineLength `json:"lineLength"`
	Comment       *string    `json:"comment,omitempty"`
	Rating        *int       `json:"rating,omitempty"`
	EnteredRaffle bool       `json:"enteredRaffle"`
	SubmitterID   string     `json:"submitterId"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// CheckinInput is the caller-supplied payload for one submission. Rating is
// untyped on purpose: numbers are rounded, numeric strings parsed, and
// anything else (or anything outside 1..5) is dropped rather than clamped.
type CheckinInput struct {
	VendorID      string `json:"vendorId"`
	Presence      string `json:"presence"`
	LineLength    string `json:"lineLength"`
	Comment       string `json:"comment,omitempty"`
	Rating        any    `json:"rating,omitempty"`
	EnteredRaffle bool   `json:"enteredRaffle,omitempty"`
	SubmitterID   string `json:"submitterId,omitempty"`
}

// VendorStatus is the derived snapshot for one vendor. It is recomputed on
// every read and never persisted.
type VendorStatus struct {
	VendorID            string      `json:"vendorId"`
	Status              VendorState `json:"status"`
	StatusConfidence    float64     `json:"statusConfidence"`
	LineLength          LineLength  `json:"lineLength"`
	LineConfidence      float64     `json:"lineConfidence"`
	FreshnessMinutes    *int        `json:"freshnessMinutes"`
	LastVerifiedAt      *time.Time  `json:"lastVerifiedAt,omitempty"`
	SubmissionsInWindow int         `json:"submissionsInWindow"`
}

// CheckinFilter captures the composable filters accepted by Store.Query.
type CheckinFilter struct {
	VendorID string
	Since    *time.Time
}
