package models

import "time"

// CandidacyState tracks a (kid, week, session) tuple through planning.
type CandidacyState string

const (
	// StateIdea is the initial, unranked state.
	StateIdea CandidacyState = "idea"
	// StatePreferred carries a rank on the kid's shortlist for the week.
	StatePreferred CandidacyState = "preferred"
	// StateBooked is the confirmed registration; unique per (kid, week).
	StateBooked CandidacyState = "booked"
	// StateSuperseded hides a candidacy because a sibling became booked.
	// The prior state and rank are retained for restoration.
	StateSuperseded CandidacyState = "superseded"
	// StateOrphaned marks a candidacy whose week disappeared during
	// regeneration. Surfaced for manual cleanup, never deleted.
	StateOrphaned CandidacyState = "orphaned"
)

// Candidacy is the central mutable entity: one session under
// consideration for one kid in one week.
type Candidacy struct {
	ID              int64          `json:"id" db:"id"`
	KidID           int64          `json:"kid_id" db:"kid_id"`
	WeekID          int64          `json:"week_id" db:"week_id"`
	SessionID       int64          `json:"session_id" db:"session_id"`
	State           CandidacyState `json:"state" db:"state"`
	Rank            *int           `json:"rank" db:"rank"`
	PrevState       *CandidacyState `json:"prev_state" db:"prev_state"`
	PrevRank        *int           `json:"prev_rank" db:"prev_rank"`
	GroupID         string         `json:"group_id" db:"group_id"`
	FriendsAttending []string      `json:"friends_attending" db:"friends_attending"`
	UsesEarlyCare   bool           `json:"uses_early_care" db:"uses_early_care"`
	UsesLateCare    bool           `json:"uses_late_care" db:"uses_late_care"`
	Notes           string         `json:"notes" db:"notes"`
	SyncDegraded    bool           `json:"sync_degraded" db:"sync_degraded"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// IsBooked reports whether the candidacy is the confirmed registration.
func (c *Candidacy) IsBooked() bool {
	return c.State == StateBooked
}

// IsActive reports whether the candidacy shows in the default view when
// no sibling is booked. Superseded and orphaned candidacies only appear
// under an explicit show-hidden request.
func (c *Candidacy) IsActive() bool {
	return c.State == StateIdea || c.State == StatePreferred || c.State == StateBooked
}
