package models

import "time"

// Session is a bookable unit within a camp: a date span, an eligibility
// window, daily times, and a registration-open moment. A session is
// week-agnostic of any particular kid; CoveredWeeks projects it onto a
// derived week set.
type Session struct {
	ID               int64       `json:"id" db:"id"`
	CampID           int64       `json:"camp_id" db:"camp_id"`
	Name             string      `json:"name" db:"name"`
	AgeMin           *int        `json:"age_min" db:"age_min"`
	AgeMax           *int        `json:"age_max" db:"age_max"`
	GradeMin         *int        `json:"grade_min" db:"grade_min"`
	GradeMax         *int        `json:"grade_max" db:"grade_max"`
	StartDate        time.Time   `json:"start_date" db:"start_date"`
	EndDate          time.Time   `json:"end_date" db:"end_date"`
	Holidays         []time.Time `json:"holidays" db:"holidays"`
	StartTime        string      `json:"start_time" db:"start_time"`
	EndTime          string      `json:"end_time" db:"end_time"`
	DropoffStart     string      `json:"dropoff_start" db:"dropoff_start"`
	DropoffEnd       string      `json:"dropoff_end" db:"dropoff_end"`
	PickupStart      string      `json:"pickup_start" db:"pickup_start"`
	PickupEnd        string      `json:"pickup_end" db:"pickup_end"`
	Cost             *float64    `json:"cost" db:"cost"`
	EarlyCare        bool        `json:"early_care" db:"early_care"`
	EarlyCareCost    *float64    `json:"early_care_cost" db:"early_care_cost"`
	LateCare         bool        `json:"late_care" db:"late_care"`
	LateCareCost     *float64    `json:"late_care_cost" db:"late_care_cost"`
	RegistrationOpen *time.Time  `json:"registration_open" db:"registration_open"`
	URL              string      `json:"url" db:"url"`
	ExpectedFriends  []string    `json:"expected_friends" db:"expected_friends"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// CoveredWeeks returns the IDs of the weeks the session spans, in week
// order. A week counts as covered when the session's date range touches
// it and at least one of the week's days is not a session holiday.
func (s *Session) CoveredWeeks(weeks []*Week) []int64 {
	var ids []int64
	for _, w := range weeks {
		if s.StartDate.After(w.EndDate) || s.EndDate.Before(w.StartDate) {
			continue
		}
		if s.weekAllHolidays(w) {
			continue
		}
		ids = append(ids, w.ID)
	}
	return ids
}

// HolidaysWithinSpan reports whether every holiday carved out of the
// session's calendar lies inside its covered date range.
func (s *Session) HolidaysWithinSpan() bool {
	for _, h := range s.Holidays {
		if h.Before(s.StartDate) || h.After(s.EndDate) {
			return false
		}
	}
	return true
}

// MutualFriends returns the kid's friends expected to attend the session.
func (s *Session) MutualFriends(kid *Kid) []string {
	expected := make(map[string]bool, len(s.ExpectedFriends))
	for _, name := range s.ExpectedFriends {
		expected[name] = true
	}
	var mutual []string
	for _, name := range kid.Friends {
		if expected[name] {
			mutual = append(mutual, name)
		}
	}
	return mutual
}

func (s *Session) weekAllHolidays(w *Week) bool {
	if len(s.Holidays) == 0 {
		return false
	}
	holiday := make(map[string]bool, len(s.Holidays))
	for _, h := range s.Holidays {
		holiday[h.Format("2006-01-02")] = true
	}
	for d := maxDate(w.StartDate, s.StartDate); !d.After(minDate(w.EndDate, s.EndDate)); d = d.AddDate(0, 0, 1) {
		if !holiday[d.Format("2006-01-02")] {
			return false
		}
	}
	return true
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
