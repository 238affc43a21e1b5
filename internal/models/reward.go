package models

import "time"

// Reward source types accepted by the reward pipeline.
const (
	RewardSourceTournament = "tournament"
	RewardSourceTraining   = "training"
	RewardSourceManual     = "manual"
)

// SkillReward is an immutable ledger entry: N points of one skill awarded to a
// user from one originating event. Negative points record penalties. The
// composite unique index is the constraint the idempotency guard relies on.
type SkillReward struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:ux_skill_reward_source,priority:1" json:"user_id"`
	SourceType string    `gorm:"size:32;not null;uniqueIndex:ux_skill_reward_source,priority:2" json:"source_type"`
	SourceID   uint      `gorm:"not null;uniqueIndex:ux_skill_reward_source,priority:3" json:"source_id"`
	Skill      string    `gorm:"size:64;not null;uniqueIndex:ux_skill_reward_source,priority:4" json:"skill"`
	Points     int       `gorm:"not null" json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}
