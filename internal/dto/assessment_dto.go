package dto

import (
	"time"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// AssessmentCreateRequest is the payload an instructor submits to record a
// skill measurement.
type AssessmentCreateRequest struct {
	LicenseID    uint   `json:"license_id" validate:"required"`
	Skill        string `json:"skill" validate:"required"`
	PointsEarned int    `json:"points_earned" validate:"min=0"`
	PointsTotal  int    `json:"points_total" validate:"required,min=1"`
	AssessorID   uint   `json:"assessor_id" validate:"required"`
	Notes        string `json:"notes"`
}

// AssessmentHistoryRequest narrows the assessment history listing.
type AssessmentHistoryRequest struct {
	LicenseID uint   `json:"license_id" validate:"required"`
	Skill     string `json:"skill"`
	Status    string `json:"status"`
}

// AssessmentResponse is the API projection of a skill assessment.
type AssessmentResponse struct {
	ID                 uint       `json:"id"`
	LicenseID          uint       `json:"license_id"`
	Skill              string     `json:"skill"`
	PointsEarned       int        `json:"points_earned"`
	PointsTotal        int        `json:"points_total"`
	Percentage         float64    `json:"percentage"`
	AssessorID         uint       `json:"assessor_id"`
	AssessedAt         time.Time  `json:"assessed_at"`
	Notes              string     `json:"notes,omitempty"`
	Status             string     `json:"status"`
	PreviousStatus     string     `json:"previous_status,omitempty"`
	RequiresValidation bool       `json:"requires_validation"`
	ValidatedBy        *uint      `json:"validated_by,omitempty"`
	ValidatedAt        *time.Time `json:"validated_at,omitempty"`
	ArchivedBy         *uint      `json:"archived_by,omitempty"`
	ArchivedAt         *time.Time `json:"archived_at,omitempty"`
	ArchiveReason      string     `json:"archive_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewAssessmentResponse converts the model into its API projection.
func NewAssessmentResponse(assessment models.SkillAssessment) AssessmentResponse {
	return AssessmentResponse{
		ID:                 assessment.ID,
		LicenseID:          assessment.LicenseID,
		Skill:              assessment.Skill,
		PointsEarned:       assessment.PointsEarned,
		PointsTotal:        assessment.PointsTotal,
		Percentage:         assessment.Percentage,
		AssessorID:         assessment.AssessorID,
		AssessedAt:         assessment.AssessedAt,
		Notes:              assessment.Notes,
		Status:             assessment.Status,
		PreviousStatus:     assessment.PreviousStatus,
		RequiresValidation: assessment.RequiresValidation,
		ValidatedBy:        assessment.ValidatedBy,
		ValidatedAt:        assessment.ValidatedAt,
		ArchivedBy:         assessment.ArchivedBy,
		ArchivedAt:         assessment.ArchivedAt,
		ArchiveReason:      assessment.ArchiveReason,
		CreatedAt:          assessment.CreatedAt,
	}
}

// SkillAverageView is the normalized projection of one skill map entry.
type SkillAverageView struct {
	Baseline        float64 `json:"baseline"`
	CurrentLevel    float64 `json:"current_level"`
	TournamentDelta float64 `json:"tournament_delta"`
	TotalDelta      float64 `json:"total_delta"`
	TournamentCount int     `json:"tournament_count"`
}

// NewSkillAverageView normalizes a rating before projecting it.
func NewSkillAverageView(rating models.SkillRating) SkillAverageView {
	normalized := rating.Normalized()
	return SkillAverageView{
		Baseline:        normalized.Baseline,
		CurrentLevel:    normalized.CurrentLevel,
		TournamentDelta: normalized.TournamentDelta,
		TotalDelta:      normalized.TotalDelta,
		TournamentCount: normalized.TournamentCount,
	}
}

// CurrentAveragesResponse carries the cached per-skill averages of a license.
type CurrentAveragesResponse struct {
	LicenseID uint                        `json:"license_id"`
	Averages  map[string]SkillAverageView `json:"averages"`
}

// NewCurrentAveragesResponse projects a license's skill map.
func NewCurrentAveragesResponse(license models.License) CurrentAveragesResponse {
	averages := make(map[string]SkillAverageView, len(license.SkillAverages))
	for skill, rating := range license.SkillAverages {
		averages[skill] = NewSkillAverageView(rating)
	}
	return CurrentAveragesResponse{LicenseID: license.ID, Averages: averages}
}
