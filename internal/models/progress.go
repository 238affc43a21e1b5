package models

import (
	"time"

	"gorm.io/datatypes"
)

// SpecializationProgress is the gameplay-driven progression record for one
// learner in one specialization. It evolves independently of the license and
// may legitimately drift from it; only the sync service reconciles the two.
type SpecializationProgress struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex:ux_progress_user_spec,priority:1" json:"user_id"`
	Specialization    string    `gorm:"size:64;not null;uniqueIndex:ux_progress_user_spec,priority:2" json:"specialization"`
	Level             int       `gorm:"not null;default:0" json:"level"`
	XP                int64     `gorm:"not null;default:0" json:"xp"`
	SessionsCompleted int       `gorm:"not null;default:0" json:"sessions_completed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Progression history sources.
const (
	ProgressionSourceSyncToLicense  = "sync_progress_to_license"
	ProgressionSourceSyncToProgress = "sync_license_to_progress"
)

// ProgressionHistory explains every level change applied by the sync service.
type ProgressionHistory struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	UserID         uint              `gorm:"not null;index" json:"user_id"`
	Specialization string            `gorm:"size:64;not null" json:"specialization"`
	FromLevel      int               `gorm:"not null" json:"from_level"`
	ToLevel        int               `gorm:"not null" json:"to_level"`
	Source         string            `gorm:"size:64;not null" json:"source"`
	SyncedBy       *uint             `json:"synced_by"`
	Metadata       datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
}
