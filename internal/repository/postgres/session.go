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

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, camp_id, name, age_min, age_max, grade_min, grade_max,
	start_date, end_date, holidays, start_time, end_time,
	dropoff_start, dropoff_end, pickup_start, pickup_end,
	cost, early_care, early_care_cost, late_care, late_care_cost,
	registration_open, url, expected_friends, created_at, updated_at`

func scanSession(scan func(dest ...any) error) (*models.Session, error) {
	s := &models.Session{}
	err := scan(
		&s.ID, &s.CampID, &s.Name, &s.AgeMin, &s.AgeMax, &s.GradeMin, &s.GradeMax,
		&s.StartDate, &s.EndDate, pq.Array(&s.Holidays), &s.StartTime, &s.EndTime,
		&s.DropoffStart, &s.DropoffEnd, &s.PickupStart, &s.PickupEnd,
		&s.Cost, &s.EarlyCare, &s.EarlyCareCost, &s.LateCare, &s.LateCareCost,
		&s.RegistrationOpen, &s.URL, pq.Array(&s.ExpectedFriends), &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	query := `INSERT INTO sessions (camp_id, name, age_min, age_max, grade_min, grade_max,
			start_date, end_date, holidays, start_time, end_time,
			dropoff_start, dropoff_end, pickup_start, pickup_end,
			cost, early_care, early_care_cost, late_care, late_care_cost,
			registration_open, url, expected_friends, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		s.CampID, s.Name, s.AgeMin, s.AgeMax, s.GradeMin, s.GradeMax,
		s.StartDate, s.EndDate, pq.Array(s.Holidays), s.StartTime, s.EndTime,
		s.DropoffStart, s.DropoffEnd, s.PickupStart, s.PickupEnd,
		s.Cost, s.EarlyCare, s.EarlyCareCost, s.LateCare, s.LateCareCost,
		s.RegistrationOpen, s.URL, pq.Array(s.ExpectedFriends), s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanSession(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) GetByCampID(ctx context.Context, campID int64) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE camp_id = $1 ORDER BY start_date, name`
	return r.querySessions(ctx, query, campID)
}

func (r *sessionRepository) GetAll(ctx context.Context) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY start_date, name`
	return r.querySessions(ctx, query)
}

func (r *sessionRepository) GetWithRegistrationOpen(ctx context.Context, after time.Time) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE registration_open IS NOT NULL AND registration_open > $1
		ORDER BY registration_open`
	return r.querySessions(ctx, query, after)
}

func (r *sessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepository) Update(ctx context.Context, s *models.Session) (*models.Session, error) {
	query := `UPDATE sessions SET camp_id=$2, name=$3, age_min=$4, age_max=$5, grade_min=$6, grade_max=$7,
			start_date=$8, end_date=$9, holidays=$10, start_time=$11, end_time=$12,
			dropoff_start=$13, dropoff_end=$14, pickup_start=$15, pickup_end=$16,
			cost=$17, early_care=$18, early_care_cost=$19, late_care=$20, late_care_cost=$21,
			registration_open=$22, url=$23, expected_friends=$24, updated_at=$25
		WHERE id=$1 RETURNING updated_at`
	s.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.CampID, s.Name, s.AgeMin, s.AgeMax, s.GradeMin, s.GradeMax,
		s.StartDate, s.EndDate, pq.Array(s.Holidays), s.StartTime, s.EndTime,
		s.DropoffStart, s.DropoffEnd, s.PickupStart, s.PickupEnd,
		s.Cost, s.EarlyCare, s.EarlyCareCost, s.LateCare, s.LateCareCost,
		s.RegistrationOpen, s.URL, pq.Array(s.ExpectedFriends), s.UpdatedAt,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}
