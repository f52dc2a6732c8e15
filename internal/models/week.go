package models

import "time"

// Week is one Monday-to-Sunday span of summer. Weeks are a projection
// derived from school dates; they are regenerated in full, never edited.
type Week struct {
	ID        int64     `json:"id" db:"id"`
	Number    int       `json:"number" db:"number"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Contains reports whether the given date falls inside the week.
func (w *Week) Contains(date time.Time) bool {
	return !date.Before(w.StartDate) && !date.After(w.EndDate)
}

// AvailableFor reports whether the week is free of trips for the given
// kid. Unavailability is advisory: ideas may still be added for the week.
func (w *Week) AvailableFor(kidID int64, trips []*Trip) bool {
	for _, trip := range trips {
		if trip.AppliesTo(kidID) && trip.Overlaps(w.StartDate, w.EndDate) {
			return false
		}
	}
	return true
}
