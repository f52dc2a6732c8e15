package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

type weekRepository struct {
	db *sql.DB
}

// NewWeekRepository creates a new week repository.
func NewWeekRepository(db *sql.DB) repository.WeekRepository {
	return &weekRepository{db: db}
}

// ReplaceAll swaps the entire derived week set in one transaction. Weeks
// are a projection of school dates, so partial updates are never valid.
func (r *weekRepository) ReplaceAll(ctx context.Context, weeks []*models.Week) ([]*models.Week, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin week replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weeks`); err != nil {
		return nil, fmt.Errorf("failed to clear weeks: %w", err)
	}

	query := `INSERT INTO weeks (number, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	now := time.Now()
	for _, w := range weeks {
		w.CreatedAt = now
		if err := tx.QueryRowContext(ctx, query, w.Number, w.StartDate, w.EndDate, w.CreatedAt).
			Scan(&w.ID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert week %d: %w", w.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit week replacement: %w", err)
	}
	return weeks, nil
}

func (r *weekRepository) GetAll(ctx context.Context) ([]*models.Week, error) {
	query := `SELECT id, number, start_date, end_date, created_at FROM weeks ORDER BY number`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query weeks: %w", err)
	}
	defer rows.Close()

	var weeks []*models.Week
	for rows.Next() {
		w := &models.Week{}
		if err := rows.Scan(&w.ID, &w.Number, &w.StartDate, &w.EndDate, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func (r *weekRepository) GetByID(ctx context.Context, id int64) (*models.Week, error) {
	query := `SELECT id, number, start_date, end_date, created_at FROM weeks WHERE id = $1`
	w := &models.Week{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.Number, &w.StartDate, &w.EndDate, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get week: %w", err)
	}
	return w, nil
}
