package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusevents/event-api/internal/models"
)

// RegistrationRepository persists the registration ledger.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Exists reports whether userID is registered for eventID.
func (r *RegistrationRepository) Exists(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, userID, eventID); err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

// Create records a registration. An existing (user, event) pair yields
// ErrDuplicate and a vanished event yields ErrReferenceViolation.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registrations (id, user_id, event_id, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, event_id) DO NOTHING RETURNING id`
	var id string
	if err := r.db.QueryRowxContext(ctx, query, reg.ID, reg.UserID, reg.EventID, reg.CreatedAt).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return ErrReferenceViolation
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// ListByUser returns the user's registrations newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	const query = `SELECT id, user_id, event_id, created_at FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`
	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, userID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// CountByEvent returns how many users registered for eventID.
func (r *RegistrationRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}
