package models

import "time"

// Shift is one schedulable position within a ministry. Several shifts may
// share the same date and time range; each remains an independent record
// with its own lifecycle.
type Shift struct {
	ID         string     `db:"id" json:"id"`
	MinistryID string     `db:"ministry_id" json:"ministry_id"`
	Date       time.Time  `db:"shift_date" json:"date"`
	StartTime  string     `db:"start_time" json:"start_time"`
	EndTime    string     `db:"end_time" json:"end_time"`
	Notes      string     `db:"notes" json:"notes"`
	MemberID   *string    `db:"member_id" json:"member_id,omitempty"`
	AssignedAt *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Assigned reports whether the shift position is filled.
func (s *Shift) Assigned() bool {
	return s.MemberID != nil && *s.MemberID != ""
}

// ShiftDetail adds the assigned volunteer's identity when filled.
type ShiftDetail struct {
	Shift
	AssigneeName  *string `db:"assignee_name" json:"assignee_name,omitempty"`
	AssigneeEmail *string `db:"assignee_email" json:"assignee_email,omitempty"`
}

// ShiftFilter captures list query options for shifts.
type ShiftFilter struct {
	MinistryID string
	From       *time.Time
	To         *time.Time
	Unassigned *bool
	Page       int
	PageSize   int
	SortOrder  string
}
