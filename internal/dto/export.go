package dto

// ExportRequest asks for a roster or schedule export.
type ExportRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=roster schedule"`
	Format     string `json:"format" validate:"required,oneof=csv pdf"`
	MinistryID string `json:"ministry_id" validate:"required"`
}

// ExportResponse returns the signed download location.
type ExportResponse struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	ExpiresAt string `json:"expires_at"`
}
