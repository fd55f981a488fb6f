package models

import "time"

// EventStatus is shared by requests and catalog events.
type EventStatus string

const (
	StatusPending  EventStatus = "Pending"
	StatusApproved EventStatus = "Approved"
	StatusRejected EventStatus = "Rejected"
)

// EventDetails are the descriptive fields common to requests and events.
type EventDetails struct {
	Title            string   `db:"title" json:"title"`
	Description      string   `db:"description" json:"description"`
	Date             Date     `db:"date" json:"date"`
	Time             string   `db:"time" json:"time"`
	Venue            string   `db:"venue" json:"venue"`
	Category         string   `db:"category" json:"category"`
	Image            string   `db:"image" json:"image"`
	RegistrationNote string   `db:"registration_note" json:"registration_note"`
	Timeline         Timeline `db:"timeline" json:"timeline"`
}

// Event is a published catalog entry.
type Event struct {
	ID string `db:"id" json:"id"`
	EventDetails
	Status    EventStatus `db:"status" json:"status"`
	CreatedBy string      `db:"created_by" json:"created_by"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether principal may read the event.
func (e *Event) VisibleTo(principal *Principal) bool {
	return e.Status == StatusApproved || principal.IsAdmin()
}

// EventKey identifies the catalog event materialized from a request.
type EventKey struct {
	Title     string
	Date      Date
	CreatedBy string
}

// EventPatch carries a partial update. Nil fields keep their current value.
type EventPatch struct {
	Title            *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string   `json:"description"`
	Date             *Date     `json:"date"`
	Time             *string   `json:"time"`
	Venue            *string   `json:"venue"`
	Category         *string   `json:"category"`
	Image            *string   `json:"image" validate:"omitempty,url"`
	RegistrationNote *string   `json:"registration_note"`
	Timeline         *Timeline `json:"timeline"`
	// Status applies to catalog events only.
	Status *EventStatus `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
}

// Apply coalesces the patch onto details.
func (p EventPatch) Apply(details *EventDetails) {
	if p.Title != nil {
		details.Title = *p.Title
	}
	if p.Description != nil {
		details.Description = *p.Description
	}
	if p.Date != nil && !p.Date.IsZero() {
		details.Date = *p.Date
	}
	if p.Time != nil {
		details.Time = *p.Time
	}
	if p.Venue != nil {
		details.Venue = *p.Venue
	}
	if p.Category != nil {
		details.Category = *p.Category
	}
	if p.Image != nil {
		details.Image = *p.Image
	}
	if p.RegistrationNote != nil {
		details.RegistrationNote = *p.RegistrationNote
	}
	if p.Timeline != nil {
		details.Timeline = *p.Timeline
	}
}

// ApplyToEvent coalesces the patch onto a catalog event, status included.
func (p EventPatch) ApplyToEvent(event *Event) {
	p.Apply(&event.EventDetails)
	if p.Status != nil {
		event.Status = *p.Status
	}
}
