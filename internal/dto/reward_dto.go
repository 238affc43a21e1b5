package dto

import (
	"time"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// RecordParticipationRequest carries a finalized tournament outcome for one
// learner. Placement nil means participated, unranked.
type RecordParticipationRequest struct {
	UserID       uint           `json:"user_id" validate:"required"`
	TournamentID uint           `json:"tournament_id" validate:"required"`
	Placement    *int           `json:"placement" validate:"omitempty,min=1"`
	SkillPoints  map[string]int `json:"skill_points"`
	BaseXP       int64          `json:"base_xp" validate:"min=0"`
	Credits      int64          `json:"credits" validate:"min=0"`
	AssessorID   *uint          `json:"assessor_id"`
}

// ParticipationResponse is the API projection of a participation record.
type ParticipationResponse struct {
	ID                 uint               `json:"id"`
	UserID             uint               `json:"user_id"`
	TournamentID       uint               `json:"tournament_id"`
	Placement          *int               `json:"placement"`
	SkillPointsAwarded map[string]int     `json:"skill_points_awarded"`
	XPAwarded          int64              `json:"xp_awarded"`
	CreditsAwarded     int64              `json:"credits_awarded"`
	SkillRatingDeltas  map[string]float64 `json:"skill_rating_deltas,omitempty"`
	XPBalance          int64              `json:"xp_balance"`
	CreditBalance      int64              `json:"credit_balance"`
	AchievedAt         time.Time          `json:"achieved_at"`
}

// NewParticipationResponse projects a participation plus the post-update balances.
func NewParticipationResponse(participation models.TournamentParticipation, xpBalance, creditBalance int64) ParticipationResponse {
	return ParticipationResponse{
		ID:                 participation.ID,
		UserID:             participation.UserID,
		TournamentID:       participation.TournamentID,
		Placement:          participation.Placement,
		SkillPointsAwarded: participation.SkillPointsAwarded,
		XPAwarded:          participation.XPAwarded,
		CreditsAwarded:     participation.CreditsAwarded,
		SkillRatingDeltas:  participation.SkillRatingDeltas,
		XPBalance:          xpBalance,
		CreditBalance:      creditBalance,
		AchievedAt:         participation.AchievedAt,
	}
}

// AwardSkillPointsRequest credits (or penalizes) skill points from a
// non-tournament source.
type AwardSkillPointsRequest struct {
	UserID     uint   `json:"user_id" validate:"required"`
	SourceType string `json:"source_type" validate:"required,oneof=tournament training manual"`
	SourceID   uint   `json:"source_id" validate:"required"`
	Skill      string `json:"skill" validate:"required"`
	Points     int    `json:"points"`
}

// SkillRewardResponse is the API projection of a skill reward ledger entry.
type SkillRewardResponse struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	SourceType string    `json:"source_type"`
	SourceID   uint      `json:"source_id"`
	Skill      string    `json:"skill"`
	Points     int       `json:"points"`
	Created    bool      `json:"created"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSkillRewardResponse projects a reward row and whether this call created it.
func NewSkillRewardResponse(reward models.SkillReward, created bool) SkillRewardResponse {
	return SkillRewardResponse{
		ID:         reward.ID,
		UserID:     reward.UserID,
		SourceType: reward.SourceType,
		SourceID:   reward.SourceID,
		Skill:      reward.Skill,
		Points:     reward.Points,
		Created:    created,
		CreatedAt:  reward.CreatedAt,
	}
}
