package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

type candidacyRepository struct {
	db *sql.DB
}

// NewCandidacyRepository creates a new candidacy repository.
func NewCandidacyRepository(db *sql.DB) repository.CandidacyRepository {
	return &candidacyRepository{db: db}
}

const candidacyColumns = `id, kid_id, week_id, session_id, state, rank, prev_state, prev_rank,
	group_id, friends_attending, uses_early_care, uses_late_care, notes, sync_degraded,
	created_at, updated_at`

func scanCandidacy(scan func(dest ...any) error) (*models.Candidacy, error) {
	c := &models.Candidacy{}
	var prevState sql.NullString
	err := scan(
		&c.ID, &c.KidID, &c.WeekID, &c.SessionID, &c.State, &c.Rank, &prevState, &c.PrevRank,
		&c.GroupID, pq.Array(&c.FriendsAttending), &c.UsesEarlyCare, &c.UsesLateCare,
		&c.Notes, &c.SyncDegraded, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if prevState.Valid {
		s := models.CandidacyState(prevState.String)
		c.PrevState = &s
	}
	return c, nil
}

func (r *candidacyRepository) Create(ctx context.Context, c *models.Candidacy) (*models.Candidacy, error) {
	query := `INSERT INTO candidacies (kid_id, week_id, session_id, state, rank, prev_state, prev_rank,
			group_id, friends_attending, uses_early_care, uses_late_care, notes, sync_degraded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.State == "" {
		c.State = models.StateIdea
	}
	err := r.db.QueryRowContext(ctx, query,
		c.KidID, c.WeekID, c.SessionID, c.State, c.Rank, prevStateValue(c.PrevState), c.PrevRank,
		c.GroupID, pq.Array(c.FriendsAttending), c.UsesEarlyCare, c.UsesLateCare,
		c.Notes, c.SyncDegraded, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidacy: %w", err)
	}
	return c, nil
}

func (r *candidacyRepository) GetByID(ctx context.Context, id int64) (*models.Candidacy, error) {
	query := `SELECT ` + candidacyColumns + ` FROM candidacies WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanCandidacy(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidacy: %w", err)
	}
	return c, nil
}

func (r *candidacyRepository) GetByKidWeek(ctx context.Context, kidID, weekID int64) ([]*models.Candidacy, error) {
	query := `SELECT ` + candidacyColumns + ` FROM candidacies
		WHERE kid_id = $1 AND week_id = $2 ORDER BY rank NULLS LAST, id`
	return r.queryCandidacies(ctx, query, kidID, weekID)
}

func (r *candidacyRepository) GetByKid(ctx context.Context, kidID int64, filters repository.CandidacyFilters) ([]*models.Candidacy, error) {
	query := `SELECT ` + candidacyColumns + ` FROM candidacies WHERE kid_id = $1`
	args := []any{kidID}
	query, args = applyCandidacyFilters(query, args, filters)
	query += ` ORDER BY week_id, rank NULLS LAST, id`
	return r.queryCandidacies(ctx, query, args...)
}

func (r *candidacyRepository) GetAll(ctx context.Context, filters repository.CandidacyFilters) ([]*models.Candidacy, error) {
	query := `SELECT ` + candidacyColumns + ` FROM candidacies WHERE true`
	var args []any
	query, args = applyCandidacyFilters(query, args, filters)
	query += ` ORDER BY kid_id, week_id, rank NULLS LAST, id`
	return r.queryCandidacies(ctx, query, args...)
}

func applyCandidacyFilters(query string, args []any, filters repository.CandidacyFilters) (string, []any) {
	argIdx := len(args) + 1
	if filters.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, *filters.State)
		argIdx++
	}
	if filters.WeekID != nil {
		query += fmt.Sprintf(" AND week_id = $%d", argIdx)
		args = append(args, *filters.WeekID)
		argIdx++
	}
	if filters.SessionID != nil {
		query += fmt.Sprintf(" AND session_id = $%d", argIdx)
		args = append(args, *filters.SessionID)
		argIdx++
	}
	if filters.Degraded != nil {
		query += fmt.Sprintf(" AND sync_degraded = $%d", argIdx)
		args = append(args, *filters.Degraded)
	}
	return query, args
}

func (r *candidacyRepository) queryCandidacies(ctx context.Context, query string, args ...any) ([]*models.Candidacy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidacies: %w", err)
	}
	defer rows.Close()

	var candidacies []*models.Candidacy
	for rows.Next() {
		c, err := scanCandidacy(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidacy: %w", err)
		}
		candidacies = append(candidacies, c)
	}
	return candidacies, rows.Err()
}

func (r *candidacyRepository) Update(ctx context.Context, c *models.Candidacy) (*models.Candidacy, error) {
	query := `UPDATE candidacies SET state=$2, rank=$3, prev_state=$4, prev_rank=$5,
			friends_attending=$6, uses_early_care=$7, uses_late_care=$8, notes=$9, sync_degraded=$10, updated_at=$11
		WHERE id=$1 RETURNING updated_at`
	c.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.State, c.Rank, prevStateValue(c.PrevState), c.PrevRank,
		pq.Array(c.FriendsAttending), c.UsesEarlyCare, c.UsesLateCare, c.Notes, c.SyncDegraded, c.UpdatedAt,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update candidacy: %w", err)
	}
	return c, nil
}

// UpdateWeekRefs re-points candidacies onto regenerated weeks. Keys of
// oldToNew are previous week IDs, values are the surviving replacements.
func (r *candidacyRepository) UpdateWeekRefs(ctx context.Context, oldToNew map[int64]int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin week ref update: %w", err)
	}
	defer tx.Rollback()

	for oldID, newID := range oldToNew {
		if _, err := tx.ExecContext(ctx,
			`UPDATE candidacies SET week_id=$2, updated_at=$3 WHERE week_id=$1`,
			oldID, newID, time.Now(),
		); err != nil {
			return fmt.Errorf("failed to re-point candidacies from week %d: %w", oldID, err)
		}
	}
	return tx.Commit()
}

func (r *candidacyRepository) MarkOrphaned(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE candidacies SET state=$2, updated_at=$3 WHERE id = ANY($1)`,
		pq.Array(ids), models.StateOrphaned, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark candidacies orphaned: %w", err)
	}
	return nil
}

func (r *candidacyRepository) SetSyncDegraded(ctx context.Context, id int64, degraded bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE candidacies SET sync_degraded=$2, updated_at=$3 WHERE id=$1`,
		id, degraded, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set sync degraded flag: %w", err)
	}
	return nil
}

func prevStateValue(s *models.CandidacyState) any {
	if s == nil {
		return nil
	}
	return string(*s)
}
