package models

import "time"

// Event is a scheduled gathering members can register for.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Recurrence  *string   `db:"recurrence" json:"recurrence,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Recurring reports whether the event carries a recurrence rule.
func (e *Event) Recurring() bool {
	return e.Recurrence != nil && *e.Recurrence != ""
}

// EventDetail carries an event with its registration count.
type EventDetail struct {
	Event
	Registered int `db:"registered" json:"registered"`
}

// EventRegistration links a user to an event.
type EventRegistration struct {
	ID           string    `db:"id" json:"id"`
	EventID      string    `db:"event_id" json:"event_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// EventFilter captures list query options for events.
type EventFilter struct {
	Search    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
