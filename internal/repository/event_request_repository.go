package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
)

const eventRequestColumns = `id, title, description, date, time, venue, category, image, registration_note, timeline, requested_by, status, created_at, updated_at`

const statusLogColumns = `id, request_id, seq, status, actor_id, note, at`

// EventRequestRepository persists event requests and their status history.
type EventRequestRepository struct {
	db *sqlx.DB
}

// NewEventRequestRepository constructs the repository.
func NewEventRequestRepository(db *sqlx.DB) *EventRequestRepository {
	return &EventRequestRepository{db: db}
}

// Create stores a new request together with its first status log entry.
func (r *EventRequestRepository) Create(ctx context.Context, req *models.EventRequest, first models.StatusLog) (err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	if req.Timeline == nil {
		req.Timeline = models.Timeline{}
	}
	first.ID = uuid.NewString()
	first.RequestID = req.ID
	first.Seq = 1
	first.Status = req.Status
	if first.At.IsZero() {
		first.At = req.CreatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create event request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRequest = `INSERT INTO event_requests (` + eventRequestColumns + `)
VALUES (:id, :title, :description, :date, :time, :venue, :category, :image, :registration_note, :timeline, :requested_by, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertRequest, req); err != nil {
		return fmt.Errorf("insert event request: %w", err)
	}
	if err = insertStatusLog(ctx, tx, &first); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create event request: %w", err)
	}

	req.StatusLogs = []models.StatusLog{first}
	return nil
}

// FindByID returns the request with its ordered status history.
func (r *EventRequestRepository) FindByID(ctx context.Context, id string) (*models.EventRequest, error) {
	query := `SELECT ` + eventRequestColumns + ` FROM event_requests WHERE id = $1`
	var req models.EventRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event request: %w", err)
	}

	logs, err := r.logsFor(ctx, []string{req.ID})
	if err != nil {
		return nil, err
	}
	req.StatusLogs = logs[req.ID]
	return &req, nil
}

// List returns requests newest first, each with its status history.
func (r *EventRequestRepository) List(ctx context.Context, filter models.EventRequestFilter) ([]models.EventRequest, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + eventRequestColumns + ` FROM event_requests`)

	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var requests []models.EventRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}
	if len(requests) == 0 {
		return requests, nil
	}

	ids := make([]string, len(requests))
	for i := range requests {
		ids[i] = requests[i].ID
	}
	logs, err := r.logsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		requests[i].StatusLogs = logs[requests[i].ID]
	}
	return requests, nil
}

// UpdateDetails rewrites the descriptive fields of a request that is still
// Pending. sql.ErrNoRows means the request is gone or no longer Pending.
func (r *EventRequestRepository) UpdateDetails(ctx context.Context, req *models.EventRequest) error {
	req.UpdatedAt = time.Now().UTC()
	if req.Timeline == nil {
		req.Timeline = models.Timeline{}
	}
	query := fmt.Sprintf(`UPDATE event_requests SET title = :title, description = :description, date = :date, time = :time,
venue = :venue, category = :category, image = :image, registration_note = :registration_note, timeline = :timeline,
updated_at = :updated_at WHERE id = :id AND status = '%s'`, models.StatusPending)
	result, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update event request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check event request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionStatus moves a request from one status to log.Status and appends
// log in the same transaction. sql.ErrNoRows means the request was not in
// the expected status.
func (r *EventRequestRepository) TransitionStatus(ctx context.Context, id string, from models.EventStatus, log *models.StatusLog) (err error) {
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	log.ID = uuid.NewString()
	log.RequestID = id

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE event_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, update, log.Status, log.At, id, from)
	if err != nil {
		return fmt.Errorf("update event request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check status transition rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = insertStatusLog(ctx, tx, log); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status transition: %w", err)
	}
	return nil
}

// HistoryRows flattens status logs joined with requester and actor details,
// oldest request first. An empty requestedBy returns every request.
func (r *EventRequestRepository) HistoryRows(ctx context.Context, requestedBy string) ([]dto.HistoryRow, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT er.id AS request_id, er.title, COALESCE(rq.name, '') AS requested_by_name,
COALESCE(rq.email, '') AS requested_by_email, l.status, COALESCE(ac.name, '') AS acted_by_name,
COALESCE(ac.email, '') AS acted_by_email, l.at, l.note
FROM event_request_status_logs l
JOIN event_requests er ON er.id = l.request_id
LEFT JOIN users rq ON rq.id = er.requested_by
LEFT JOIN users ac ON ac.id = l.actor_id`)
	args := make([]interface{}, 0, 1)
	if requestedBy != "" {
		args = append(args, requestedBy)
		builder.WriteString(" WHERE er.requested_by = $1")
	}
	builder.WriteString(" ORDER BY er.created_at ASC, l.seq ASC")

	var rows []dto.HistoryRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return rows, nil
}

func (r *EventRequestRepository) logsFor(ctx context.Context, ids []string) (map[string][]models.StatusLog, error) {
	query, args, err := sqlx.In(`SELECT `+statusLogColumns+` FROM event_request_status_logs WHERE request_id IN (?) ORDER BY request_id, seq ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build status log query: %w", err)
	}
	var logs []models.StatusLog
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list status logs: %w", err)
	}
	grouped := make(map[string][]models.StatusLog, len(ids))
	for _, l := range logs {
		grouped[l.RequestID] = append(grouped[l.RequestID], l)
	}
	return grouped, nil
}

func insertStatusLog(ctx context.Context, tx *sqlx.Tx, log *models.StatusLog) error {
	const query = `INSERT INTO event_request_status_logs (id, request_id, seq, status, actor_id, note, at)
SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6 FROM event_request_status_logs WHERE request_id = $2
RETURNING seq`
	if err := tx.QueryRowxContext(ctx, query, log.ID, log.RequestID, log.Status, log.ActorID, log.Note, log.At).Scan(&log.Seq); err != nil {
		return fmt.Errorf("append status log: %w", err)
	}
	return nil
}
