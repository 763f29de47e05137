package dto

import "github.com/parishhub/chms-api/internal/models"

// ShiftSlot groups shifts sharing the same (date, start, end) into the
// time-slot shape list views render. Positions keep list order.
type ShiftSlot struct {
	Date       string               `json:"date"`
	StartTime  string               `json:"start_time"`
	EndTime    string               `json:"end_time"`
	Positions  []models.ShiftDetail `json:"positions"`
	Assigned   int                  `json:"assigned"`
	Total      int                  `json:"total"`
	Unassigned int                  `json:"unassigned"`
}

// FullyAssigned reports whether every position in the slot is filled.
func (s *ShiftSlot) FullyAssigned() bool {
	return s.Unassigned == 0
}

// CreateShiftGroupRequest creates quantity independent shift records
// sharing the same date, time range and notes.
type CreateShiftGroupRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Notes     string `json:"notes"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=20"`
}

// DeleteShiftGroupRequest identifies a slot group by its shared fields.
type DeleteShiftGroupRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

// ShiftItemResult reports the outcome of one item in a bulk operation.
type ShiftItemResult struct {
	ShiftID string `json:"shift_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// BulkShiftResult aggregates per-item outcomes of a bulk operation.
type BulkShiftResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []ShiftItemResult `json:"items"`
}

// AssignShiftRequest fills one shift position.
type AssignShiftRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}
