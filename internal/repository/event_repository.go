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

const eventColumns = `id, title, description, date, time, venue, category, image, registration_note, timeline, status, created_by, created_at, updated_at`

// EventRepository persists catalog events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID returns an event regardless of status.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// FindByKey returns the event matching the materialization key.
func (r *EventRepository) FindByKey(ctx context.Context, key models.EventKey) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE title = $1 AND date = $2 AND created_by = $3 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, key.Title, key.Date, key.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event by key: %w", err)
	}
	return &event, nil
}

// FindByIDs resolves events keyed by id.
func (r *EventRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Event, error) {
	result := make(map[string]models.Event, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT `+eventColumns+` FROM events WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build events by ids: %w", err)
	}
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find events by ids: %w", err)
	}
	for _, e := range events {
		result[e.ID] = e
	}
	return result, nil
}

// ListByStatus returns events with the given status ordered by date. An empty
// status returns every event.
func (r *EventRepository) ListByStatus(ctx context.Context, status models.EventStatus) ([]models.Event, error) {
	var (
		events []models.Event
		err    error
	)
	if status == "" {
		err = r.db.SelectContext(ctx, &events, `SELECT `+eventColumns+` FROM events ORDER BY date ASC, created_at ASC`)
	} else {
		err = r.db.SelectContext(ctx, &events, `SELECT `+eventColumns+` FROM events WHERE status = $1 ORDER BY date ASC, created_at ASC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Create inserts an event. A clash on (title, date, created_by) yields ErrDuplicate.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	prepareEvent(event)
	const query = `INSERT INTO events (` + eventColumns + `)
VALUES (:id, :title, :description, :date, :time, :venue, :category, :image, :registration_note, :timeline, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// CreateOrGet inserts event unless one with the same (title, date, created_by)
// already exists, in which case event is replaced by the stored row. The
// returned flag reports whether a new row was written.
func (r *EventRepository) CreateOrGet(ctx context.Context, event *models.Event) (bool, error) {
	prepareEvent(event)
	const query = `INSERT INTO events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (title, date, created_by) DO NOTHING
RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query,
		event.ID, event.Title, event.Description, event.Date, event.Time, event.Venue, event.Category,
		event.Image, event.RegistrationNote, event.Timeline, event.Status, event.CreatedBy, event.CreatedAt, event.UpdatedAt,
	).Scan(&id)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("create or get event: %w", err)
	}

	existing, err := r.FindByKey(ctx, models.EventKey{Title: event.Title, Date: event.Date, CreatedBy: event.CreatedBy})
	if err != nil {
		return false, err
	}
	*event = *existing
	return false, nil
}

// Update rewrites the mutable columns of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	if event.Timeline == nil {
		event.Timeline = models.Timeline{}
	}
	const query = `UPDATE events SET title = :title, description = :description, date = :date, time = :time, venue = :venue,
category = :category, image = :image, registration_note = :registration_note, timeline = :timeline, status = :status,
updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check event update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event row. Remaining registrations yield ErrReferenceViolation.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenceViolation
		}
		return fmt.Errorf("delete event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check event delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prepareEvent(event *models.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Status == "" {
		event.Status = models.StatusApproved
	}
	if event.Timeline == nil {
		event.Timeline = models.Timeline{}
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
}
