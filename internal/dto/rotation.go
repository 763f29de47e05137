package dto

// RotateShiftsRequest describes one rotation run. The same payload drives
// both the preview (dry_run=true) and the commit (dry_run=false).
type RotateShiftsRequest struct {
	Days             int  `json:"days" validate:"omitempty,min=1"`
	Notify           bool `json:"notify"`
	DryRun           bool `json:"dry_run"`
	LimitPerMinistry int  `json:"limit_per_ministry" validate:"omitempty,min=0"`
}

// RotateShiftsResult summarises a rotation run. The skipped lists carry
// ministry names; errors carry per-shift failure strings.
type RotateShiftsResult struct {
	Created            int      `json:"created"`
	Emailed            int      `json:"emailed"`
	SkippedNoMembers   []string `json:"skipped_no_members"`
	SkippedNoAvailable []string `json:"skipped_no_available"`
	Errors             []string `json:"errors"`
}

// RotationAssignment is one volunteer-to-shift pairing produced by a run.
type RotationAssignment struct {
	ShiftID     string `json:"shift_id"`
	MemberID    string `json:"member_id"`
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"-"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}
