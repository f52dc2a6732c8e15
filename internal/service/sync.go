package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/calendarapi"
	"github.com/mledder/camplan/internal/metrics"
	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

// bookingEventKey and registrationReminderKey are the idempotency keys
// the calendar service deduplicates on. Re-enqueueing the same source
// entity overwrites the pending job and, eventually, the same event.
func bookingEventKey(candidacyID int64) string {
	return fmt.Sprintf("booking-%d", candidacyID)
}

func registrationReminderKey(sessionID int64) string {
	return fmt.Sprintf("registration-%d", sessionID)
}

// enqueueBookingEvent snapshots a booked candidacy into the outbox. The
// event spans the session's days within the candidacy's week and carries
// time-of-day plus dropoff/pickup annotations in the description.
func (s *Service) enqueueBookingEvent(ctx context.Context, c *models.Candidacy) error {
	session, err := s.Sessions.GetByID(ctx, c.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %d not found", c.SessionID)
	}
	week, err := s.Weeks.GetByID(ctx, c.WeekID)
	if err != nil {
		return fmt.Errorf("failed to load week: %w", err)
	}
	if week == nil {
		return fmt.Errorf("week %d not found", c.WeekID)
	}
	kid, err := s.Kids.GetByID(ctx, c.KidID)
	if err != nil {
		return fmt.Errorf("failed to load kid: %w", err)
	}
	camp, err := s.Camps.GetByID(ctx, session.CampID)
	if err != nil {
		return fmt.Errorf("failed to load camp: %w", err)
	}

	calendarID, _, err := s.calendarIDs(ctx)
	if err != nil {
		return err
	}

	start := maxDay(session.StartDate, week.StartDate)
	end := minDay(session.EndDate, week.EndDate)

	kidName := fmt.Sprintf("kid %d", c.KidID)
	if kid != nil {
		kidName = kid.Name
	}
	campName := ""
	if camp != nil {
		campName = camp.Name + " — "
	}

	job := &models.SyncJob{
		Kind:           models.SyncKindBookingEvent,
		Action:         models.SyncActionUpsert,
		IdempotencyKey: bookingEventKey(c.ID),
		CandidacyID:    &c.ID,
		SessionID:      &session.ID,
		CalendarID:     calendarID,
		Summary:        fmt.Sprintf("%s: %s%s", kidName, campName, session.Name),
		Description:    bookingDescription(session),
		StartAt:        start,
		EndAt:          end,
		AllDay:         true,
		Status:         models.SyncStatusPending,
		NextAttemptAt:  s.now(),
	}
	if _, err := s.SyncJobs.Upsert(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue booking event: %w", err)
	}
	return nil
}

// enqueueBookingRetraction queues removal of an unbooked candidacy's
// calendar event, reusing the booking key so the retraction replaces any
// still-pending upsert.
func (s *Service) enqueueBookingRetraction(ctx context.Context, c *models.Candidacy) error {
	calendarID, _, err := s.calendarIDs(ctx)
	if err != nil {
		return err
	}
	job := &models.SyncJob{
		Kind:           models.SyncKindBookingEvent,
		Action:         models.SyncActionRetract,
		IdempotencyKey: bookingEventKey(c.ID),
		CandidacyID:    &c.ID,
		CalendarID:     calendarID,
		Status:         models.SyncStatusPending,
		NextAttemptAt:  s.now(),
	}
	if _, err := s.SyncJobs.Upsert(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue booking retraction: %w", err)
	}
	return nil
}

// EnqueueRegistrationReminders scans sessions whose registration opens in
// the future and queues one reminder per session, placed the configured
// lead time before the open moment. Safe to call repeatedly.
func (s *Service) EnqueueRegistrationReminders(ctx context.Context) (int, error) {
	now := s.now()
	sessions, err := s.Sessions.GetWithRegistrationOpen(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	_, reminderCal, err := s.calendarIDs(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, session := range sessions {
		startAt := session.RegistrationOpen.Add(-s.reminderLead)
		key := registrationReminderKey(session.ID)
		// An existing job for the same open moment is left alone, whatever
		// its status; upserting would wipe its attempts and resurrect done
		// or degraded jobs on every tick.
		existing, err := s.SyncJobs.GetByKey(ctx, key)
		if err != nil {
			return queued, fmt.Errorf("failed to load sync job %q: %w", key, err)
		}
		if existing != nil && existing.StartAt.Equal(startAt) {
			continue
		}
		job := &models.SyncJob{
			Kind:           models.SyncKindRegistrationReminder,
			Action:         models.SyncActionUpsert,
			IdempotencyKey: key,
			SessionID:      &session.ID,
			CalendarID:     reminderCal,
			Summary:        fmt.Sprintf("Registration opens: %s", session.Name),
			Description:    fmt.Sprintf("Registration for %s opens at %s.\n%s", session.Name, session.RegistrationOpen.Format(time.RFC1123), session.URL),
			StartAt:        startAt,
			EndAt:          *session.RegistrationOpen,
			Status:         models.SyncStatusPending,
			NextAttemptAt:  now,
		}
		if _, err := s.SyncJobs.Upsert(ctx, job); err != nil {
			return queued, fmt.Errorf("failed to enqueue reminder for session %d: %w", session.ID, err)
		}
		queued++
	}
	return queued, nil
}

// ProcessSyncJobs drains due outbox jobs through the calendar client.
// Transient failures back off exponentially; permanent failures and
// exhausted retries degrade the job (and its candidacy) instead of
// blocking the queue. Local state is never rolled back.
func (s *Service) ProcessSyncJobs(ctx context.Context) error {
	now := s.now()
	jobs, err := s.SyncJobs.GetDue(ctx, now, s.syncBatchSize)
	if err != nil {
		return fmt.Errorf("failed to load due sync jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.pushJob(ctx, job); err != nil {
			s.handleSyncFailure(ctx, job, err)
			continue
		}
		metrics.SyncAttemptsTotal.WithLabelValues("ok").Inc()
		job.Status = models.SyncStatusDone
		job.LastError = ""
		job.Attempts++
		if _, err := s.SyncJobs.Update(ctx, job); err != nil {
			return fmt.Errorf("failed to mark sync job %d done: %w", job.ID, err)
		}
		// A successful push clears any earlier degraded marker.
		if job.CandidacyID != nil {
			if err := s.Candidacies.SetSyncDegraded(ctx, *job.CandidacyID, false); err != nil {
				s.logger.WithError(err).Warn("failed to clear degraded marker")
			}
		}
	}
	return nil
}

func (s *Service) pushJob(ctx context.Context, job *models.SyncJob) error {
	switch job.Action {
	case models.SyncActionRetract:
		return s.calendar.Retract(ctx, job.IdempotencyKey, job.CalendarID)
	default:
		return s.calendar.Upsert(ctx, calendarapi.Event{
			Key:         job.IdempotencyKey,
			CalendarID:  job.CalendarID,
			Summary:     job.Summary,
			Description: job.Description,
			Start:       job.StartAt,
			End:         job.EndAt,
			AllDay:      job.AllDay,
		})
	}
}

func (s *Service) handleSyncFailure(ctx context.Context, job *models.SyncJob, pushErr error) {
	job.Attempts++
	job.LastError = pushErr.Error()

	permanent := calendarapi.IsPermanent(pushErr)
	exhausted := job.Attempts >= s.syncMaxAttempts
	if permanent || exhausted {
		metrics.SyncAttemptsTotal.WithLabelValues("permanent").Inc()
		metrics.SyncDegradedTotal.Inc()
		job.Status = models.SyncStatusDegraded
		s.logger.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"key":      job.IdempotencyKey,
			"attempts": job.Attempts,
		}).WithError(pushErr).Error("sync job degraded")

		if job.CandidacyID != nil {
			if err := s.Candidacies.SetSyncDegraded(ctx, *job.CandidacyID, true); err != nil {
				s.logger.WithError(err).Warn("failed to set degraded marker")
			}
			s.notifier.SyncDegraded(*job.CandidacyID, pushErr.Error())
		}
	} else {
		metrics.SyncAttemptsTotal.WithLabelValues("transient").Inc()
		job.NextAttemptAt = s.now().Add(backoff(job.Attempts))
		s.logger.WithFields(logrus.Fields{
			"job_id":       job.ID,
			"key":          job.IdempotencyKey,
			"attempts":     job.Attempts,
			"next_attempt": job.NextAttemptAt,
		}).WithError(pushErr).Warn("sync job failed, will retry")
	}

	if _, err := s.SyncJobs.Update(ctx, job); err != nil {
		s.logger.WithError(err).Error("failed to persist sync job failure")
	}
}

// backoff doubles per attempt: 30s, 1m, 2m, 4m... capped at 30m.
func backoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts && d < 30*time.Minute; i++ {
		d *= 2
	}
	if d > 30*time.Minute {
		d = 30 * time.Minute
	}
	return d
}

// DegradedCandidacies lists candidacies whose last sync attempt gave up,
// for the persistent indicator in the UI.
func (s *Service) DegradedCandidacies(ctx context.Context) ([]*models.Candidacy, error) {
	degraded := true
	return s.Candidacies.GetAll(ctx, repository.CandidacyFilters{Degraded: &degraded})
}

// RetrySync requeues a degraded job for immediate retry.
func (s *Service) RetrySync(ctx context.Context, key string) error {
	job, err := s.SyncJobs.GetByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load sync job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("sync job %q not found", key)
	}
	job.Status = models.SyncStatusPending
	job.Attempts = 0
	job.NextAttemptAt = s.now()
	if _, err := s.SyncJobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to requeue sync job: %w", err)
	}
	return nil
}

// calendarIDs resolves the booking and reminder calendars from the first
// parent on file. Falling back to defaults keeps the queue usable before
// parents are configured.
func (s *Service) calendarIDs(ctx context.Context) (booking, reminder string, err error) {
	parents, err := s.Parents.GetAll(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to load parents: %w", err)
	}
	booking, reminder = "bookings", "reminders"
	for _, p := range parents {
		if p.BookingCalendarID != "" {
			booking = p.BookingCalendarID
		}
		if p.ReminderCalendarID != "" {
			reminder = p.ReminderCalendarID
		}
		break
	}
	return booking, reminder, nil
}

func bookingDescription(session *models.Session) string {
	var b strings.Builder
	if session.StartTime != "" && session.EndTime != "" {
		fmt.Fprintf(&b, "Camp hours %s–%s.\n", session.StartTime, session.EndTime)
	}
	if session.DropoffStart != "" {
		fmt.Fprintf(&b, "Dropoff %s–%s.\n", session.DropoffStart, session.DropoffEnd)
	}
	if session.PickupStart != "" {
		fmt.Fprintf(&b, "Pickup %s–%s.\n", session.PickupStart, session.PickupEnd)
	}
	if session.EarlyCare {
		b.WriteString("Early care available.\n")
	}
	if session.LateCare {
		b.WriteString("Late care available.\n")
	}
	if session.URL != "" {
		b.WriteString(session.URL)
	}
	return strings.TrimSpace(b.String())
}

func maxDay(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDay(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
