package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Tournament is an externally finalized competition event. Placements and
// totals are decided by the finalization workflow; this core only applies them.
type Tournament struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Season         string    `gorm:"size:64" json:"season"`
	Specialization string    `gorm:"size:64;not null" json:"specialization"`
	HeldAt         time.Time `gorm:"not null" json:"held_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SkillPoints is the per-skill point allocation attached to a participation.
type SkillPoints map[string]int

// Value implements driver.Valuer for JSON storage.
func (p SkillPoints) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSON storage.
func (p *SkillPoints) Scan(value interface{}) error {
	return scanJSONMap(value, p)
}

// RatingDeltas is the write-once per-skill rating contribution of one
// tournament. A nil map round-trips as SQL NULL, which is how "not yet
// computed" is distinguished from "computed, empty".
type RatingDeltas map[string]float64

// Value implements driver.Valuer; nil stays NULL to preserve write-once semantics.
func (d RatingDeltas) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *RatingDeltas) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	return scanJSONMap(value, d)
}

func scanJSONMap(value, dest interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// TournamentParticipation is one learner's outcome for one tournament.
// Placement nil means participated but unranked. SkillRatingDeltas is
// write-once: retries may refresh the awarded fields but must never recompute
// a delta that is already set.
type TournamentParticipation struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	UserID             uint         `gorm:"not null;uniqueIndex:ux_participation_user_tournament,priority:1" json:"user_id"`
	TournamentID       uint         `gorm:"not null;uniqueIndex:ux_participation_user_tournament,priority:2" json:"tournament_id"`
	Placement          *int         `json:"placement"`
	SkillPointsAwarded SkillPoints  `gorm:"type:json" json:"skill_points_awarded"`
	XPAwarded          int64        `gorm:"not null;default:0" json:"xp_awarded"`
	CreditsAwarded     int64        `gorm:"not null;default:0" json:"credits_awarded"`
	SkillRatingDeltas  RatingDeltas `gorm:"type:json" json:"skill_rating_deltas"`
	AchievedAt         time.Time    `gorm:"not null;index" json:"achieved_at"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Tournament         Tournament   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User               User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasRatingDeltas reports whether the write-once delta has already been stored.
func (p TournamentParticipation) HasRatingDeltas() bool {
	return p.SkillRatingDeltas != nil
}
