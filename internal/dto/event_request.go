package dto

import "github.com/campusevents/event-api/internal/models"

// EventInput carries the descriptive fields of a new request or catalog event.
type EventInput struct {
	Title            string          `json:"title" validate:"required,max=200"`
	Description      string          `json:"description"`
	Date             *models.Date    `json:"date" validate:"required"`
	Time             string          `json:"time"`
	Venue            string          `json:"venue"`
	Category         string          `json:"category"`
	Image            string          `json:"image" validate:"omitempty,url"`
	RegistrationNote string          `json:"registration_note"`
	Timeline         models.Timeline `json:"timeline"`
	// Status is honoured for admin-created catalog events and defaults to Approved.
	Status models.EventStatus `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
}

// Details converts the payload into entity fields.
func (r EventInput) Details() models.EventDetails {
	details := models.EventDetails{
		Title:            r.Title,
		Description:      r.Description,
		Time:             r.Time,
		Venue:            r.Venue,
		Category:         r.Category,
		Image:            r.Image,
		RegistrationNote: r.RegistrationNote,
		Timeline:         r.Timeline,
	}
	if r.Date != nil {
		details.Date = *r.Date
	}
	if details.Timeline == nil {
		details.Timeline = models.Timeline{}
	}
	return details
}

// CatalogStatus returns the requested catalog status, Approved when unset.
func (r EventInput) CatalogStatus() models.EventStatus {
	if r.Status == "" {
		return models.StatusApproved
	}
	return r.Status
}

// DecisionRequest carries the optional admin note for approve/reject.
type DecisionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// ApprovalResult is returned by approve.
type ApprovalResult struct {
	Event           *models.Event        `json:"event"`
	Request         *models.EventRequest `json:"request"`
	AlreadyApproved bool                 `json:"already_approved"`
}

// CatalogView is the role-filtered listing of events and requests.
type CatalogView struct {
	Events   []models.Event        `json:"events"`
	Requests []models.EventRequest `json:"requests,omitempty"`
}
