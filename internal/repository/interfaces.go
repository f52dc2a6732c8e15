package repository

import (
	"context"
	"time"

	"github.com/mledder/camplan/internal/models"
)

// KidRepository defines the interface for kid roster operations. Kids are
// deactivated rather than deleted.
type KidRepository interface {
	Create(ctx context.Context, kid *models.Kid) (*models.Kid, error)
	GetByID(ctx context.Context, id int64) (*models.Kid, error)
	GetAll(ctx context.Context, activeOnly bool) ([]*models.Kid, error)
	Update(ctx context.Context, kid *models.Kid) (*models.Kid, error)
	Deactivate(ctx context.Context, id int64) error
}

// TripRepository defines the interface for trip operations.
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	GetByID(ctx context.Context, id int64) (*models.Trip, error)
	GetAll(ctx context.Context) ([]*models.Trip, error)
	Update(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	Delete(ctx context.Context, id int64) error
}

// WeekRepository defines the interface for derived summer weeks. Weeks
// are replaced as a whole set, never patched row by row.
type WeekRepository interface {
	ReplaceAll(ctx context.Context, weeks []*models.Week) ([]*models.Week, error)
	GetAll(ctx context.Context) ([]*models.Week, error)
	GetByID(ctx context.Context, id int64) (*models.Week, error)
}

// CampRepository defines the interface for camp operations.
type CampRepository interface {
	Create(ctx context.Context, camp *models.Camp) (*models.Camp, error)
	GetByID(ctx context.Context, id int64) (*models.Camp, error)
	GetAll(ctx context.Context) ([]*models.Camp, error)
	Update(ctx context.Context, camp *models.Camp) (*models.Camp, error)
	Delete(ctx context.Context, id int64) error
}

// SessionRepository defines the interface for camp session operations.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	GetByCampID(ctx context.Context, campID int64) ([]*models.Session, error)
	GetAll(ctx context.Context) ([]*models.Session, error)
	GetWithRegistrationOpen(ctx context.Context, after time.Time) ([]*models.Session, error)
	Update(ctx context.Context, session *models.Session) (*models.Session, error)
	Delete(ctx context.Context, id int64) error
}

// CandidacyRepository defines the interface for the booking ledger's
// persistent state.
type CandidacyRepository interface {
	Create(ctx context.Context, c *models.Candidacy) (*models.Candidacy, error)
	GetByID(ctx context.Context, id int64) (*models.Candidacy, error)
	GetByKidWeek(ctx context.Context, kidID, weekID int64) ([]*models.Candidacy, error)
	GetByKid(ctx context.Context, kidID int64, filters CandidacyFilters) ([]*models.Candidacy, error)
	GetAll(ctx context.Context, filters CandidacyFilters) ([]*models.Candidacy, error)
	Update(ctx context.Context, c *models.Candidacy) (*models.Candidacy, error)
	UpdateWeekRefs(ctx context.Context, oldToNew map[int64]int64) error
	MarkOrphaned(ctx context.Context, ids []int64) error
	SetSyncDegraded(ctx context.Context, id int64, degraded bool) error
}

// SyncJobRepository defines the interface for the calendar outbox.
type SyncJobRepository interface {
	Upsert(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]*models.SyncJob, error)
	GetByKey(ctx context.Context, key string) (*models.SyncJob, error)
	Update(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error)
}

// ParentRepository defines the interface for parent records.
type ParentRepository interface {
	Create(ctx context.Context, parent *models.Parent) (*models.Parent, error)
	GetByID(ctx context.Context, id int64) (*models.Parent, error)
	GetAll(ctx context.Context) ([]*models.Parent, error)
	Update(ctx context.Context, parent *models.Parent) (*models.Parent, error)
}

// CandidacyFilters represents filters for querying candidacies.
type CandidacyFilters struct {
	State     *models.CandidacyState
	WeekID    *int64
	SessionID *int64
	Degraded  *bool
}
