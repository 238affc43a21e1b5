package models

import "time"

// Assessment lifecycle statuses. "not_assessed" is virtual: no row exists yet.
const (
	AssessmentStatusNotAssessed = "not_assessed"
	AssessmentStatusAssessed    = "assessed"
	AssessmentStatusValidated   = "validated"
	AssessmentStatusArchived    = "archived"
)

// assessmentTransitions enumerates every permitted status change.
var assessmentTransitions = map[string][]string{
	AssessmentStatusNotAssessed: {AssessmentStatusAssessed},
	AssessmentStatusAssessed:    {AssessmentStatusValidated, AssessmentStatusArchived},
	AssessmentStatusValidated:   {AssessmentStatusArchived},
	AssessmentStatusArchived:    {},
}

// CanTransitionAssessment reports whether from → to is a legal lifecycle move.
// Same-state transitions are not listed here; callers treat them as no-ops.
func CanTransitionAssessment(from, to string) bool {
	for _, allowed := range assessmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SkillAssessment records one measurement of one skill for one license.
// Rows are never hard-deleted; archival is the terminal disposition.
type SkillAssessment struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	LicenseID          uint       `gorm:"not null;index:idx_assessment_license_skill,priority:1" json:"license_id"`
	Skill              string     `gorm:"size:64;not null;index:idx_assessment_license_skill,priority:2" json:"skill"`
	PointsEarned       int        `gorm:"not null" json:"points_earned"`
	PointsTotal        int        `gorm:"not null" json:"points_total"`
	Percentage         float64    `gorm:"not null" json:"percentage"`
	AssessorID         uint       `gorm:"not null" json:"assessor_id"`
	AssessedAt         time.Time  `gorm:"not null" json:"assessed_at"`
	Notes              string     `gorm:"type:text" json:"notes"`
	Status             string     `gorm:"size:32;not null" json:"status"`
	PreviousStatus     string     `gorm:"size:32" json:"previous_status"`
	StatusChangedAt    *time.Time `json:"status_changed_at"`
	StatusChangedBy    *uint      `json:"status_changed_by"`
	RequiresValidation bool       `gorm:"not null;default:false" json:"requires_validation"`
	ValidatedBy        *uint      `json:"validated_by"`
	ValidatedAt        *time.Time `json:"validated_at"`
	ArchivedBy         *uint      `json:"archived_by"`
	ArchivedAt         *time.Time `json:"archived_at"`
	ArchiveReason      string     `gorm:"size:255" json:"archive_reason"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	License            License    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsArchived reports whether the assessment reached its terminal state.
func (a SkillAssessment) IsArchived() bool {
	return a.Status == AssessmentStatusArchived
}

// MatchesScore reports whether the assessment carries the exact same score,
// used for content-based idempotency on duplicate instructor submissions.
func (a SkillAssessment) MatchesScore(skill string, pointsEarned, pointsTotal int) bool {
	return a.Skill == skill && a.PointsEarned == pointsEarned && a.PointsTotal == pointsTotal
}
