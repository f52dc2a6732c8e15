package models

import "time"

// Parent owns the external calendar identities that synchronized events
// are written to. Read-only from the planning engine's perspective.
type Parent struct {
	ID                 int64     `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Email              string    `json:"email" db:"email"`
	BookingCalendarID  string    `json:"booking_calendar_id" db:"booking_calendar_id"`
	ReminderCalendarID string    `json:"reminder_calendar_id" db:"reminder_calendar_id"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
