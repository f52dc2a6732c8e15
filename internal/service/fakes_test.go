package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/calendarapi"
	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

// In-memory repository fakes for exercising the service layer without a
// database. Only the behavior the tests rely on is faithful; everything
// else is a straight map lookup.

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeKids struct {
	byID map[int64]*models.Kid
}

func (f *fakeKids) Create(_ context.Context, kid *models.Kid) (*models.Kid, error) {
	if f.byID == nil {
		f.byID = map[int64]*models.Kid{}
	}
	kid.ID = int64(len(f.byID) + 1)
	f.byID[kid.ID] = kid
	return kid, nil
}

func (f *fakeKids) GetByID(_ context.Context, id int64) (*models.Kid, error) {
	return f.byID[id], nil
}

func (f *fakeKids) GetAll(_ context.Context, activeOnly bool) ([]*models.Kid, error) {
	var out []*models.Kid
	for _, k := range f.byID {
		if !activeOnly || k.Active {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKids) Update(_ context.Context, kid *models.Kid) (*models.Kid, error) {
	f.byID[kid.ID] = kid
	return kid, nil
}

func (f *fakeKids) Deactivate(_ context.Context, id int64) error {
	if k := f.byID[id]; k != nil {
		k.Active = false
	}
	return nil
}

type fakeWeeks struct {
	weeks []*models.Week
}

func (f *fakeWeeks) ReplaceAll(_ context.Context, weeks []*models.Week) ([]*models.Week, error) {
	for i, w := range weeks {
		w.ID = int64(i + 1)
	}
	f.weeks = weeks
	return weeks, nil
}

func (f *fakeWeeks) GetAll(_ context.Context) ([]*models.Week, error) {
	return f.weeks, nil
}

func (f *fakeWeeks) GetByID(_ context.Context, id int64) (*models.Week, error) {
	for _, w := range f.weeks {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

type fakeSessions struct {
	byID             map[int64]*models.Session
	openAfterResults []*models.Session
}

func (f *fakeSessions) Create(_ context.Context, s *models.Session) (*models.Session, error) {
	if f.byID == nil {
		f.byID = map[int64]*models.Session{}
	}
	s.ID = int64(len(f.byID) + 1)
	f.byID[s.ID] = s
	return s, nil
}

func (f *fakeSessions) GetByID(_ context.Context, id int64) (*models.Session, error) {
	return f.byID[id], nil
}

func (f *fakeSessions) GetByCampID(_ context.Context, campID int64) ([]*models.Session, error) {
	var out []*models.Session
	for _, s := range f.byID {
		if s.CampID == campID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) GetAll(_ context.Context) ([]*models.Session, error) {
	var out []*models.Session
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSessions) GetWithRegistrationOpen(_ context.Context, _ time.Time) ([]*models.Session, error) {
	return f.openAfterResults, nil
}

func (f *fakeSessions) Update(_ context.Context, s *models.Session) (*models.Session, error) {
	f.byID[s.ID] = s
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

type fakeCamps struct {
	byID map[int64]*models.Camp
}

func (f *fakeCamps) Create(_ context.Context, c *models.Camp) (*models.Camp, error) {
	if f.byID == nil {
		f.byID = map[int64]*models.Camp{}
	}
	c.ID = int64(len(f.byID) + 1)
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCamps) GetByID(_ context.Context, id int64) (*models.Camp, error) {
	return f.byID[id], nil
}

func (f *fakeCamps) GetAll(_ context.Context) ([]*models.Camp, error) {
	var out []*models.Camp
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCamps) Update(_ context.Context, c *models.Camp) (*models.Camp, error) {
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCamps) Delete(_ context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

type fakeTrips struct {
	trips []*models.Trip
}

func (f *fakeTrips) Create(_ context.Context, t *models.Trip) (*models.Trip, error) {
	t.ID = int64(len(f.trips) + 1)
	f.trips = append(f.trips, t)
	return t, nil
}

func (f *fakeTrips) GetByID(_ context.Context, id int64) (*models.Trip, error) {
	for _, t := range f.trips {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTrips) GetAll(_ context.Context) ([]*models.Trip, error) {
	return f.trips, nil
}

func (f *fakeTrips) Update(_ context.Context, t *models.Trip) (*models.Trip, error) {
	return t, nil
}

func (f *fakeTrips) Delete(_ context.Context, _ int64) error { return nil }

type fakeParents struct {
	parents []*models.Parent
}

func (f *fakeParents) Create(_ context.Context, p *models.Parent) (*models.Parent, error) {
	p.ID = int64(len(f.parents) + 1)
	f.parents = append(f.parents, p)
	return p, nil
}

func (f *fakeParents) GetByID(_ context.Context, id int64) (*models.Parent, error) {
	for _, p := range f.parents {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeParents) GetAll(_ context.Context) ([]*models.Parent, error) {
	return f.parents, nil
}

func (f *fakeParents) Update(_ context.Context, p *models.Parent) (*models.Parent, error) {
	return p, nil
}

type fakeCandidacies struct {
	mu      sync.Mutex
	byID    map[int64]*models.Candidacy
	nextID  int64
	updates int
}

func (f *fakeCandidacies) Create(_ context.Context, c *models.Candidacy) (*models.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = map[int64]*models.Candidacy{}
	}
	f.nextID++
	c.ID = f.nextID
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCandidacies) GetByID(_ context.Context, id int64) (*models.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeCandidacies) GetByKidWeek(_ context.Context, kidID, weekID int64) ([]*models.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Candidacy
	for _, c := range f.byID {
		if c.KidID == kidID && c.WeekID == weekID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandidacies) GetByKid(_ context.Context, kidID int64, _ repository.CandidacyFilters) ([]*models.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Candidacy
	for _, c := range f.byID {
		if c.KidID == kidID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandidacies) GetAll(_ context.Context, filters repository.CandidacyFilters) ([]*models.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Candidacy
	for _, c := range f.byID {
		if filters.State != nil && c.State != *filters.State {
			continue
		}
		if filters.Degraded != nil && c.SyncDegraded != *filters.Degraded {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCandidacies) Update(_ context.Context, c *models.Candidacy) (*models.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCandidacies) UpdateWeekRefs(_ context.Context, oldToNew map[int64]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if newID, ok := oldToNew[c.WeekID]; ok {
			c.WeekID = newID
		}
	}
	return nil
}

func (f *fakeCandidacies) MarkOrphaned(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if c := f.byID[id]; c != nil {
			c.State = models.StateOrphaned
		}
	}
	return nil
}

func (f *fakeCandidacies) SetSyncDegraded(_ context.Context, id int64, degraded bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.byID[id]; c != nil {
		c.SyncDegraded = degraded
	}
	return nil
}

type fakeSyncJobs struct {
	byKey     map[string]*models.SyncJob
	nextID    int64
	upsertErr error
}

func (f *fakeSyncJobs) Upsert(_ context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.byKey == nil {
		f.byKey = map[string]*models.SyncJob{}
	}
	if existing, ok := f.byKey[job.IdempotencyKey]; ok {
		job.ID = existing.ID
	} else {
		f.nextID++
		job.ID = f.nextID
	}
	job.Attempts = 0
	f.byKey[job.IdempotencyKey] = job
	return job, nil
}

func (f *fakeSyncJobs) GetDue(_ context.Context, now time.Time, limit int) ([]*models.SyncJob, error) {
	var out []*models.SyncJob
	for _, j := range f.byKey {
		if j.IsDue(now) && len(out) < limit {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeSyncJobs) GetByKey(_ context.Context, key string) (*models.SyncJob, error) {
	return f.byKey[key], nil
}

func (f *fakeSyncJobs) Update(_ context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	f.byKey[job.IdempotencyKey] = job
	return job, nil
}

// fakeSender records calendar pushes and fails on demand.
type fakeSender struct {
	mu       sync.Mutex
	upserts  []calendarapi.Event
	retracts []string
	err      error
}

func (f *fakeSender) Upsert(_ context.Context, ev calendarapi.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, ev)
	return nil
}

func (f *fakeSender) Retract(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.retracts = append(f.retracts, key)
	return nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	conflicts []int64
	degraded  []int64
}

func (r *recordingNotifier) ConflictsDetected(kidID, _ int64, _ int) {
	r.conflicts = append(r.conflicts, kidID)
}

func (r *recordingNotifier) SyncDegraded(candidacyID int64, _ string) {
	r.degraded = append(r.degraded, candidacyID)
}

// testEnv wires a Service over the fakes with a fixed clock.
type testEnv struct {
	svc         *Service
	kids        *fakeKids
	trips       *fakeTrips
	weeks       *fakeWeeks
	camps       *fakeCamps
	sessions    *fakeSessions
	candidacies *fakeCandidacies
	parents     *fakeParents
	jobs        *fakeSyncJobs
	sender      *fakeSender
	notifier    *recordingNotifier
	now         time.Time
}

func newTestEnv(t interface{ Helper() }) *testEnv {
	t.Helper()
	env := &testEnv{
		kids:        &fakeKids{byID: map[int64]*models.Kid{}},
		trips:       &fakeTrips{},
		weeks:       &fakeWeeks{},
		camps:       &fakeCamps{byID: map[int64]*models.Camp{}},
		sessions:    &fakeSessions{byID: map[int64]*models.Session{}},
		candidacies: &fakeCandidacies{},
		parents:     &fakeParents{},
		jobs:        &fakeSyncJobs{},
		sender:      &fakeSender{},
		notifier:    &recordingNotifier{},
		now:         time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = New(nil, quietLogger(),
		env.kids, env.trips, env.weeks, env.camps,
		env.sessions, env.candidacies, env.parents, env.jobs,
		env.sender, env.notifier,
		Options{Now: func() time.Time { return env.now }},
	)
	return env
}
