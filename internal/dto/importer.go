package dto

// ImportMembersResult reports the outcome of a CSV member import.
// Row errors accumulate without blocking valid rows.
type ImportMembersResult struct {
	Imported    int      `json:"imported"`
	CardsQueued int      `json:"cards_queued"`
	Errors      []string `json:"errors"`
}

// ImportedMemberRow is one parsed CSV row.
type ImportedMemberRow struct {
	Line                 int
	FullName             string
	Email                string
	Phone                string
	Role                 string
	AvailableDays        []string
	MaxConsecutiveShifts int
}
