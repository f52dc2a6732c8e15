package models

import "time"

// Trip represents a family trip that makes overlapping weeks unavailable.
// An empty KidIDs list means the whole family is away.
type Trip struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	KidIDs    []int64   `json:"kid_ids" db:"kid_ids"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppliesTo reports whether the trip affects the given kid.
func (t *Trip) AppliesTo(kidID int64) bool {
	if len(t.KidIDs) == 0 {
		return true // whole-family trip
	}
	for _, id := range t.KidIDs {
		if id == kidID {
			return true
		}
	}
	return false
}

// Overlaps reports whether the trip touches any day in [start, end].
func (t *Trip) Overlaps(start, end time.Time) bool {
	return !t.StartDate.After(end) && !t.EndDate.Before(start)
}
