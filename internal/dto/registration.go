package dto

// RegisterEventRequest captures POST /registrations payload.
type RegisterEventRequest struct {
	EventID string `json:"event_id" validate:"required"`
}
