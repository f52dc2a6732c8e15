package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

type parentRepository struct {
	db *sql.DB
}

// NewParentRepository creates a new parent repository.
func NewParentRepository(db *sql.DB) repository.ParentRepository {
	return &parentRepository{db: db}
}

func (r *parentRepository) Create(ctx context.Context, parent *models.Parent) (*models.Parent, error) {
	query := `INSERT INTO parents (name, email, booking_calendar_id, reminder_calendar_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	parent.CreatedAt = now
	parent.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		parent.Name, parent.Email, parent.BookingCalendarID, parent.ReminderCalendarID,
		parent.CreatedAt, parent.UpdatedAt,
	).Scan(&parent.ID, &parent.CreatedAt, &parent.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent: %w", err)
	}
	return parent, nil
}

func (r *parentRepository) GetByID(ctx context.Context, id int64) (*models.Parent, error) {
	query := `SELECT id, name, email, booking_calendar_id, reminder_calendar_id, created_at, updated_at
		FROM parents WHERE id = $1`
	parent := &models.Parent{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&parent.ID, &parent.Name, &parent.Email, &parent.BookingCalendarID,
		&parent.ReminderCalendarID, &parent.CreatedAt, &parent.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}
	return parent, nil
}

func (r *parentRepository) GetAll(ctx context.Context) ([]*models.Parent, error) {
	query := `SELECT id, name, email, booking_calendar_id, reminder_calendar_id, created_at, updated_at
		FROM parents ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query parents: %w", err)
	}
	defer rows.Close()

	var parents []*models.Parent
	for rows.Next() {
		parent := &models.Parent{}
		if err := rows.Scan(
			&parent.ID, &parent.Name, &parent.Email, &parent.BookingCalendarID,
			&parent.ReminderCalendarID, &parent.CreatedAt, &parent.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan parent: %w", err)
		}
		parents = append(parents, parent)
	}
	return parents, rows.Err()
}

func (r *parentRepository) Update(ctx context.Context, parent *models.Parent) (*models.Parent, error) {
	query := `UPDATE parents SET name=$2, email=$3, booking_calendar_id=$4, reminder_calendar_id=$5, updated_at=$6
		WHERE id=$1 RETURNING updated_at`
	parent.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		parent.ID, parent.Name, parent.Email, parent.BookingCalendarID,
		parent.ReminderCalendarID, parent.UpdatedAt,
	).Scan(&parent.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update parent: %w", err)
	}
	return parent, nil
}
