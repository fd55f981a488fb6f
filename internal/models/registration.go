package models

import "time"

// Registration links a user to an event.
type Registration struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	EventID   string    `db:"event_id" json:"event_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RegistrationWithEvent is a registration resolved with its event.
type RegistrationWithEvent struct {
	Registration
	Event *Event `json:"event"`
}
