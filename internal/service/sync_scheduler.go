package service

import (
	"context"
	"time"
)

// StartSyncScheduler runs a background loop that drains the calendar
// outbox on every tick and refreshes registration reminders for newly
// added sessions. It blocks until the context is cancelled, so it should
// be launched in a separate goroutine.
func (s *Service) StartSyncScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Calendar sync scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Calendar sync scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.EnqueueRegistrationReminders(ctx); err != nil {
				s.logger.Errorf("Failed to enqueue registration reminders: %v", err)
			}
			if err := s.ProcessSyncJobs(ctx); err != nil {
				s.logger.Errorf("Failed to process sync jobs: %v", err)
			}
		}
	}
}
