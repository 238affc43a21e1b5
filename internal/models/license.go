package models

import "time"

// License is the administratively governed credential for one learner in one
// specialization. Both the assessment pipeline and the tournament reward
// pipeline read-modify-write SkillAverages, so every writer must lock the row
// before reading the column.
type License struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:ux_license_user_spec,priority:1" json:"user_id"`
	Specialization   string    `gorm:"size:64;not null;uniqueIndex:ux_license_user_spec,priority:2" json:"specialization"`
	CurrentLevel     int       `gorm:"not null;default:0" json:"current_level"`
	MaxAchievedLevel int       `gorm:"not null;default:0" json:"max_achieved_level"`
	Active           bool      `gorm:"not null;default:true" json:"active"`
	Verified         bool      `gorm:"not null;default:false" json:"verified"`
	SkillAverages    SkillMap  `gorm:"type:json" json:"skill_averages"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	User             User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
