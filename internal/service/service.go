package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/calendarapi"
	"github.com/mledder/camplan/internal/repository"
)

// EventSender pushes events to the external calendar service. The real
// implementation lives in internal/calendarapi; tests substitute fakes.
type EventSender interface {
	Upsert(ctx context.Context, ev calendarapi.Event) error
	Retract(ctx context.Context, key, calendarID string) error
}

// Notifier receives advisory output from the engine: preference conflicts
// and degraded-sync markers. Implementations must not block.
type Notifier interface {
	ConflictsDetected(kidID, weekID int64, count int)
	SyncDegraded(candidacyID int64, reason string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) ConflictsDetected(int64, int64, int) {}
func (NopNotifier) SyncDegraded(int64, string)          {}

// Options tunes the service beyond its repositories.
type Options struct {
	ReminderLead    time.Duration
	SyncMaxAttempts int
	SyncBatchSize   int
	Now             func() time.Time
}

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	db     *sql.DB
	logger *logrus.Logger
	now    func() time.Time

	Kids        repository.KidRepository
	Trips       repository.TripRepository
	Weeks       repository.WeekRepository
	Camps       repository.CampRepository
	Sessions    repository.SessionRepository
	Candidacies repository.CandidacyRepository
	Parents     repository.ParentRepository
	SyncJobs    repository.SyncJobRepository

	calendar EventSender
	notifier Notifier

	reminderLead    time.Duration
	syncMaxAttempts int
	syncBatchSize   int

	locks pairLocks
}

// New creates a new Service with all required dependencies.
func New(db *sql.DB, logger *logrus.Logger,
	kids repository.KidRepository,
	trips repository.TripRepository,
	weeks repository.WeekRepository,
	camps repository.CampRepository,
	sessions repository.SessionRepository,
	candidacies repository.CandidacyRepository,
	parents repository.ParentRepository,
	syncJobs repository.SyncJobRepository,
	calendar EventSender,
	notifier Notifier,
	opts Options,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReminderLead <= 0 {
		opts.ReminderLead = 5 * time.Minute
	}
	if opts.SyncMaxAttempts <= 0 {
		opts.SyncMaxAttempts = 6
	}
	if opts.SyncBatchSize <= 0 {
		opts.SyncBatchSize = 50
	}
	return &Service{
		db: db, logger: logger, now: opts.Now,
		Kids: kids, Trips: trips, Weeks: weeks, Camps: camps,
		Sessions: sessions, Candidacies: candidacies, Parents: parents, SyncJobs: syncJobs,
		calendar: calendar, notifier: notifier,
		reminderLead:    opts.ReminderLead,
		syncMaxAttempts: opts.SyncMaxAttempts,
		syncBatchSize:   opts.SyncBatchSize,
	}
}

// pairLocks serializes ledger mutations per (kid, week) pair so that two
// rapid "book" requests for the same pair cannot race past the
// one-booked invariant. Unrelated pairs proceed concurrently.
type pairLocks struct {
	mu    sync.Mutex
	locks map[[2]int64]*sync.Mutex
}

func (p *pairLocks) lock(kidID, weekID int64) func() {
	key := [2]int64{kidID, weekID}
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[[2]int64]*sync.Mutex)
	}
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
