package models

import "time"

// SyncKind identifies which external event stream a job belongs to.
type SyncKind string

const (
	// SyncKindBookingEvent mirrors a booked candidacy onto the booking calendar.
	SyncKindBookingEvent SyncKind = "booking_event"
	// SyncKindRegistrationReminder places a reminder shortly before a
	// session's registration opens, on the reminder calendar.
	SyncKindRegistrationReminder SyncKind = "registration_reminder"
)

// SyncAction is the operation requested against the calendar service.
type SyncAction string

const (
	SyncActionUpsert  SyncAction = "upsert"
	SyncActionRetract SyncAction = "retract"
)

// SyncStatus is the lifecycle of a queued synchronization job.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusDone     SyncStatus = "done"
	SyncStatusDegraded SyncStatus = "degraded"
)

// SyncJob is an outbox entry decoupling local state transitions from
// external calendar I/O. Jobs are keyed by a stable idempotency key so
// re-enqueueing an unchanged source entity cannot duplicate events.
type SyncJob struct {
	ID             int64      `json:"id" db:"id"`
	Kind           SyncKind   `json:"kind" db:"kind"`
	Action         SyncAction `json:"action" db:"action"`
	IdempotencyKey string     `json:"idempotency_key" db:"idempotency_key"`
	CandidacyID    *int64     `json:"candidacy_id" db:"candidacy_id"`
	SessionID      *int64     `json:"session_id" db:"session_id"`
	CalendarID     string     `json:"calendar_id" db:"calendar_id"`
	Summary        string     `json:"summary" db:"summary"`
	Description    string     `json:"description" db:"description"`
	StartAt        time.Time  `json:"start_at" db:"start_at"`
	EndAt          time.Time  `json:"end_at" db:"end_at"`
	AllDay         bool       `json:"all_day" db:"all_day"`
	Status         SyncStatus `json:"status" db:"status"`
	Attempts       int        `json:"attempts" db:"attempts"`
	NextAttemptAt  time.Time  `json:"next_attempt_at" db:"next_attempt_at"`
	LastError      string     `json:"last_error" db:"last_error"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsDue reports whether the job should be attempted now.
func (j *SyncJob) IsDue(now time.Time) bool {
	return j.Status == SyncStatusPending && !now.Before(j.NextAttemptAt)
}
