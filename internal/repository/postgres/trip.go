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

type tripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository.
func NewTripRepository(db *sql.DB) repository.TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	query := `INSERT INTO trips (name, start_date, end_date, kid_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		trip.Name, trip.StartDate, trip.EndDate, pq.Array(trip.KidIDs),
		trip.CreatedAt, trip.UpdatedAt,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	return trip, nil
}

func (r *tripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	query := `SELECT id, name, start_date, end_date, kid_ids, created_at, updated_at
		FROM trips WHERE id = $1`
	trip := &models.Trip{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&trip.ID, &trip.Name, &trip.StartDate, &trip.EndDate, pq.Array(&trip.KidIDs),
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

func (r *tripRepository) GetAll(ctx context.Context) ([]*models.Trip, error) {
	query := `SELECT id, name, start_date, end_date, kid_ids, created_at, updated_at
		FROM trips ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		if err := rows.Scan(
			&trip.ID, &trip.Name, &trip.StartDate, &trip.EndDate, pq.Array(&trip.KidIDs),
			&trip.CreatedAt, &trip.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func (r *tripRepository) Update(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	query := `UPDATE trips SET name=$2, start_date=$3, end_date=$4, kid_ids=$5, updated_at=$6
		WHERE id=$1 RETURNING updated_at`
	trip.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		trip.ID, trip.Name, trip.StartDate, trip.EndDate, pq.Array(trip.KidIDs), trip.UpdatedAt,
	).Scan(&trip.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	return trip, nil
}

func (r *tripRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("trip %d not found", id)
	}
	return nil
}
