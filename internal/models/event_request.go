package models

import "time"

const (
	NoteRequested = "Requested"
	NoteApproved  = "Approved by admin"
	NoteRejected  = "Rejected by admin"
)

// StatusLog is one append-only entry of a request's history.
type StatusLog struct {
	ID        string      `db:"id" json:"id"`
	RequestID string      `db:"request_id" json:"-"`
	Seq       int         `db:"seq" json:"seq"`
	Status    EventStatus `db:"status" json:"status"`
	ActorID   *string     `db:"actor_id" json:"by,omitempty"`
	Note      string      `db:"note" json:"note"`
	At        time.Time   `db:"at" json:"at"`
}

// EventRequest is a committee's proposal for a catalog event.
type EventRequest struct {
	ID string `db:"id" json:"id"`
	EventDetails
	RequestedBy string      `db:"requested_by" json:"requested_by"`
	Status      EventStatus `db:"status" json:"status"`
	StatusLogs  []StatusLog `db:"-" json:"status_logs"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Key returns the idempotency key of the event materialized from r.
func (r *EventRequest) Key() EventKey {
	return EventKey{Title: r.Title, Date: r.Date, CreatedBy: r.RequestedBy}
}

// Materialize builds the approved catalog event for r.
func (r *EventRequest) Materialize() Event {
	return Event{
		EventDetails: r.EventDetails,
		Status:       StatusApproved,
		CreatedBy:    r.RequestedBy,
	}
}

// LastLog returns the newest status log entry, or nil when none are loaded.
func (r *EventRequest) LastLog() *StatusLog {
	if len(r.StatusLogs) == 0 {
		return nil
	}
	return &r.StatusLogs[len(r.StatusLogs)-1]
}

// HistoryConsistent reports whether the log is non-empty and ends in the current status.
func (r *EventRequest) HistoryConsistent() bool {
	last := r.LastLog()
	return last != nil && last.Status == r.Status
}

// OwnedBy reports whether userID submitted the request.
func (r *EventRequest) OwnedBy(userID string) bool {
	return userID != "" && r.RequestedBy == userID
}

// EventRequestFilter narrows request listings.
type EventRequestFilter struct {
	RequestedBy string
	Status      EventStatus
}
