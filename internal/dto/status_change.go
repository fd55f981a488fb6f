package dto

import (
	"time"

	"github.com/campusevents/event-api/internal/models"
)

// StatusSnapshotRequest is the caller's last seen request statuses keyed by id.
type StatusSnapshotRequest struct {
	Previous map[string]models.EventStatus `json:"previous"`
}

// StatusChange reports one request whose status moved since the snapshot.
type StatusChange struct {
	RequestID string             `json:"request_id"`
	Title     string             `json:"title"`
	Previous  models.EventStatus `json:"previous,omitempty"`
	Current   models.EventStatus `json:"current"`
	Note      string             `json:"note,omitempty"`
}

// StatusChangesResponse pairs the diff with the snapshot to send next time.
type StatusChangesResponse struct {
	Changes  []StatusChange                `json:"changes"`
	Snapshot map[string]models.EventStatus `json:"snapshot"`
}

// StatusChangeNotification describes a persisted workflow transition.
type StatusChangeNotification struct {
	RequestID   string             `json:"request_id"`
	Title       string             `json:"title"`
	RequestedBy string             `json:"requested_by"`
	Previous    models.EventStatus `json:"previous,omitempty"`
	Current     models.EventStatus `json:"current"`
	ActorID     string             `json:"actor_id,omitempty"`
	Note        string             `json:"note,omitempty"`
	EventID     string             `json:"event_id,omitempty"`
	At          time.Time          `json:"at"`
}
