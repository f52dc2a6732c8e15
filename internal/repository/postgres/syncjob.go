package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

type syncJobRepository struct {
	db *sql.DB
}

// NewSyncJobRepository creates a new sync job repository.
func NewSyncJobRepository(db *sql.DB) repository.SyncJobRepository {
	return &syncJobRepository{db: db}
}

const syncJobColumns = `id, kind, action, idempotency_key, candidacy_id, session_id, calendar_id,
	summary, description, start_at, end_at, all_day, status, attempts, next_attempt_at, last_error,
	created_at, updated_at`

func scanSyncJob(scan func(dest ...any) error) (*models.SyncJob, error) {
	j := &models.SyncJob{}
	err := scan(
		&j.ID, &j.Kind, &j.Action, &j.IdempotencyKey, &j.CandidacyID, &j.SessionID, &j.CalendarID,
		&j.Summary, &j.Description, &j.StartAt, &j.EndAt, &j.AllDay, &j.Status, &j.Attempts,
		&j.NextAttemptAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Upsert inserts a job or, when the idempotency key already exists,
// refreshes its payload and resets it to pending. Re-enqueueing an
// unchanged source entity therefore never creates a second job.
func (r *syncJobRepository) Upsert(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	query := `INSERT INTO sync_jobs (kind, action, idempotency_key, candidacy_id, session_id, calendar_id,
			summary, description, start_at, end_at, all_day, status, attempts, next_attempt_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, '', $14, $14)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			action = EXCLUDED.action,
			calendar_id = EXCLUDED.calendar_id,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			all_day = EXCLUDED.all_day,
			status = EXCLUDED.status,
			attempts = 0,
			next_attempt_at = EXCLUDED.next_attempt_at,
			last_error = '',
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`
	now := time.Now()
	if job.Status == "" {
		job.Status = models.SyncStatusPending
	}
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = now
	}
	err := r.db.QueryRowContext(ctx, query,
		job.Kind, job.Action, job.IdempotencyKey, job.CandidacyID, job.SessionID, job.CalendarID,
		job.Summary, job.Description, job.StartAt, job.EndAt, job.AllDay, job.Status,
		job.NextAttemptAt, now,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sync job: %w", err)
	}
	return job, nil
}

func (r *syncJobRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, models.SyncStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		j, err := scanSyncJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *syncJobRepository) GetByKey(ctx context.Context, key string) (*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE idempotency_key = $1`
	row := r.db.QueryRowContext(ctx, query, key)
	j, err := scanSyncJob(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}
	return j, nil
}

func (r *syncJobRepository) Update(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	query := `UPDATE sync_jobs SET status=$2, attempts=$3, next_attempt_at=$4, last_error=$5, updated_at=$6
		WHERE id=$1 RETURNING updated_at`
	job.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		job.ID, job.Status, job.Attempts, job.NextAttemptAt, job.LastError, job.UpdatedAt,
	).Scan(&job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update sync job: %w", err)
	}
	return job, nil
}
