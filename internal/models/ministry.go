package models

import (
	"time"

	"github.com/lib/pq"
)

// Ministry is an organizational unit owning members, shifts and assignments.
type Ministry struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MinistryDetail carries a ministry with aggregate counts used by list views.
type MinistryDetail struct {
	Ministry
	ActiveMembers    int `db:"active_members" json:"active_members"`
	TotalMembers     int `db:"total_members" json:"total_members"`
	UnassignedShifts int `db:"unassigned_shifts" json:"unassigned_shifts"`
}

// MinistryFilter captures list query options for ministries.
type MinistryFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MemberRole enumerates roles a member can hold inside a ministry.
type MemberRole string

const (
	MemberRoleVolunteer MemberRole = "volunteer"
	MemberRoleLead      MemberRole = "lead"
	MemberRoleUsher     MemberRole = "usher"
	MemberRoleWorship   MemberRole = "worship"
)

// ValidMemberRole reports whether the role is one of the known values.
func ValidMemberRole(role MemberRole) bool {
	switch role {
	case MemberRoleVolunteer, MemberRoleLead, MemberRoleUsher, MemberRoleWorship:
		return true
	}
	return false
}

// MinistryMember links a user to a ministry together with the
// availability constraints the rotation engine consumes.
type MinistryMember struct {
	ID                   string         `db:"id" json:"id"`
	MinistryID           string         `db:"ministry_id" json:"ministry_id"`
	UserID               string         `db:"user_id" json:"user_id"`
	Role                 MemberRole     `db:"role" json:"role"`
	Active               bool           `db:"active" json:"active"`
	AvailableDays        pq.StringArray `db:"available_days" json:"available_days"`
	MaxConsecutiveShifts int            `db:"max_consecutive_shifts" json:"max_consecutive_shifts"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// MinistryMemberDetail joins the linked user's identity fields.
type MinistryMemberDetail struct {
	MinistryMember
	FullName string  `db:"full_name" json:"full_name"`
	Email    string  `db:"email" json:"email"`
	Phone    *string `db:"phone" json:"phone,omitempty"`
}

// MemberFilter captures list query options for ministry members.
type MemberFilter struct {
	MinistryID string
	Role       *MemberRole
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AvailableOn reports whether the member serves on the given weekday.
// Day names are stored lowercase ("monday".."sunday").
func (m *MinistryMember) AvailableOn(weekday time.Weekday) bool {
	name := weekdayName(weekday)
	for _, day := range m.AvailableDays {
		if day == name {
			return true
		}
	}
	return false
}

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func weekdayName(d time.Weekday) string {
	return weekdayNames[int(d)%7]
}

// KnownWeekday reports whether the given lowercase name is a weekday.
func KnownWeekday(name string) bool {
	for _, day := range weekdayNames {
		if day == name {
			return true
		}
	}
	return false
}
