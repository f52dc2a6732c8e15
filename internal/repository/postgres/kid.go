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

type kidRepository struct {
	db *sql.DB
}

// NewKidRepository creates a new kid repository.
func NewKidRepository(db *sql.DB) repository.KidRepository {
	return &kidRepository{db: db}
}

func (r *kidRepository) Create(ctx context.Context, kid *models.Kid) (*models.Kid, error) {
	query := `INSERT INTO kids (name, birthdate, grade, friends, last_day_of_school, first_day_of_school, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	kid.CreatedAt = now
	kid.UpdatedAt = now
	kid.Active = true
	err := r.db.QueryRowContext(ctx, query,
		kid.Name, kid.Birthdate, kid.Grade, pq.Array(kid.Friends),
		kid.LastDayOfSchool, kid.FirstDayOfSchool, kid.Active,
		kid.CreatedAt, kid.UpdatedAt,
	).Scan(&kid.ID, &kid.CreatedAt, &kid.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create kid: %w", err)
	}
	return kid, nil
}

func (r *kidRepository) GetByID(ctx context.Context, id int64) (*models.Kid, error) {
	query := `SELECT id, name, birthdate, grade, friends, last_day_of_school, first_day_of_school, active, created_at, updated_at
		FROM kids WHERE id = $1`
	kid := &models.Kid{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&kid.ID, &kid.Name, &kid.Birthdate, &kid.Grade, pq.Array(&kid.Friends),
		&kid.LastDayOfSchool, &kid.FirstDayOfSchool, &kid.Active,
		&kid.CreatedAt, &kid.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

func (r *kidRepository) GetAll(ctx context.Context, activeOnly bool) ([]*models.Kid, error) {
	query := `SELECT id, name, birthdate, grade, friends, last_day_of_school, first_day_of_school, active, created_at, updated_at
		FROM kids`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	var kids []*models.Kid
	for rows.Next() {
		kid := &models.Kid{}
		if err := rows.Scan(
			&kid.ID, &kid.Name, &kid.Birthdate, &kid.Grade, pq.Array(&kid.Friends),
			&kid.LastDayOfSchool, &kid.FirstDayOfSchool, &kid.Active,
			&kid.CreatedAt, &kid.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, kid)
	}
	return kids, rows.Err()
}

func (r *kidRepository) Update(ctx context.Context, kid *models.Kid) (*models.Kid, error) {
	query := `UPDATE kids SET name=$2, birthdate=$3, grade=$4, friends=$5, last_day_of_school=$6, first_day_of_school=$7, active=$8, updated_at=$9
		WHERE id=$1 RETURNING updated_at`
	kid.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		kid.ID, kid.Name, kid.Birthdate, kid.Grade, pq.Array(kid.Friends),
		kid.LastDayOfSchool, kid.FirstDayOfSchool, kid.Active, kid.UpdatedAt,
	).Scan(&kid.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update kid: %w", err)
	}
	return kid, nil
}

func (r *kidRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE kids SET active=false, updated_at=$2 WHERE id=$1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate kid: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("kid %d not found", id)
	}
	return nil
}
