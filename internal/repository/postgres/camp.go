package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

type campRepository struct {
	db *sql.DB
}

// NewCampRepository creates a new camp repository.
func NewCampRepository(db *sql.DB) repository.CampRepository {
	return &campRepository{db: db}
}

func (r *campRepository) Create(ctx context.Context, camp *models.Camp) (*models.Camp, error) {
	query := `INSERT INTO camps (name, website, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	camp.CreatedAt = now
	camp.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		camp.Name, camp.Website, camp.Phone, camp.Email, camp.CreatedAt, camp.UpdatedAt,
	).Scan(&camp.ID, &camp.CreatedAt, &camp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create camp: %w", err)
	}
	return camp, nil
}

func (r *campRepository) GetByID(ctx context.Context, id int64) (*models.Camp, error) {
	query := `SELECT id, name, website, phone, email, created_at, updated_at FROM camps WHERE id = $1`
	camp := &models.Camp{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&camp.ID, &camp.Name, &camp.Website, &camp.Phone, &camp.Email,
		&camp.CreatedAt, &camp.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get camp: %w", err)
	}
	return camp, nil
}

func (r *campRepository) GetAll(ctx context.Context) ([]*models.Camp, error) {
	query := `SELECT id, name, website, phone, email, created_at, updated_at FROM camps ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query camps: %w", err)
	}
	defer rows.Close()

	var camps []*models.Camp
	for rows.Next() {
		camp := &models.Camp{}
		if err := rows.Scan(
			&camp.ID, &camp.Name, &camp.Website, &camp.Phone, &camp.Email,
			&camp.CreatedAt, &camp.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan camp: %w", err)
		}
		camps = append(camps, camp)
	}
	return camps, rows.Err()
}

func (r *campRepository) Update(ctx context.Context, camp *models.Camp) (*models.Camp, error) {
	query := `UPDATE camps SET name=$2, website=$3, phone=$4, email=$5, updated_at=$6
		WHERE id=$1 RETURNING updated_at`
	camp.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		camp.ID, camp.Name, camp.Website, camp.Phone, camp.Email, camp.UpdatedAt,
	).Scan(&camp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update camp: %w", err)
	}
	return camp, nil
}

func (r *campRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM camps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete camp: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("camp %d not found", id)
	}
	return nil
}
