package dto

// DashboardResponse aggregates the four admin dashboard sections. Each
// section resolves independently; a failing section reports its own error
// instead of failing the whole payload.
type DashboardResponse struct {
	Members DashboardSection `json:"members"`
	Events  DashboardSection `json:"events"`
	Tasks   DashboardSection `json:"tasks"`
	Shifts  DashboardSection `json:"shifts"`
}

// DashboardSection is one widget's data or its error.
type DashboardSection struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// MemberStats summarises congregation membership.
type MemberStats struct {
	TotalMembers  int `json:"total_members"`
	ActiveMembers int `json:"active_members"`
	Ministries    int `json:"ministries"`
}

// UpcomingEvent is a trimmed event for the dashboard widget.
type UpcomingEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
	Location string `json:"location"`
}

// TaskStats summarises open administrative work.
type TaskStats struct {
	Open    int `json:"open"`
	Overdue int `json:"overdue"`
}

// ShiftStats summarises unassigned positions in the coming window.
type ShiftStats struct {
	UnassignedShifts int `json:"unassigned_shifts"`
	WindowDays       int `json:"window_days"`
}
