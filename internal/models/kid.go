package models

import "time"

// Kid represents a child on the family roster. Kids are never deleted,
// only deactivated, because their candidacies may reference money spent.
type Kid struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Birthdate        time.Time  `json:"birthdate" db:"birthdate"`
	Grade            *int       `json:"grade" db:"grade"`
	Friends          []string   `json:"friends" db:"friends"`
	LastDayOfSchool  *time.Time `json:"last_day_of_school" db:"last_day_of_school"`
	FirstDayOfSchool *time.Time `json:"first_day_of_school" db:"first_day_of_school"`
	Active           bool       `json:"active" db:"active"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// AgeAt returns the kid's age in whole years as of the given date.
func (k *Kid) AgeAt(date time.Time) int {
	age := date.Year() - k.Birthdate.Year()
	anniversary := time.Date(date.Year(), k.Birthdate.Month(), k.Birthdate.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(anniversary) {
		age--
	}
	return age
}

// HasSchoolDates reports whether both school-year boundary dates are set,
// which is required before summer weeks can be derived for this kid.
func (k *Kid) HasSchoolDates() bool {
	return k.LastDayOfSchool != nil && k.FirstDayOfSchool != nil
}
