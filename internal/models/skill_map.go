package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SkillRating is the value stored per skill on a license's skill map. Legacy
// rows written by the assessment pipeline hold a bare number (the assessment
// average); rows touched by the tournament pipeline hold a structured record.
// Both shapes share the same column, so the type round-trips either form.
type SkillRating struct {
	Structured      bool    `json:"-"`
	Baseline        float64 `json:"baseline"`
	CurrentLevel    float64 `json:"current_level"`
	TournamentDelta float64 `json:"tournament_delta"`
	TotalDelta      float64 `json:"total_delta"`
	TournamentCount int     `json:"tournament_count"`
}

// ScalarRating builds a bare-number rating as the assessment pipeline writes it.
func ScalarRating(value float64) SkillRating {
	return SkillRating{Baseline: value}
}

// Normalized promotes a scalar rating to the structured form so merge
// operations never have to special-case the legacy shape. Structured ratings
// are returned unchanged.
func (r SkillRating) Normalized() SkillRating {
	if r.Structured {
		return r
	}
	return SkillRating{
		Structured:   true,
		Baseline:     r.Baseline,
		CurrentLevel: r.Baseline,
	}
}

// MarshalJSON writes the bare number for scalar ratings and the full record otherwise.
func (r SkillRating) MarshalJSON() ([]byte, error) {
	if !r.Structured {
		return json.Marshal(r.Baseline)
	}

	type structuredRating struct {
		Baseline        float64 `json:"baseline"`
		CurrentLevel    float64 `json:"current_level"`
		TournamentDelta float64 `json:"tournament_delta"`
		TotalDelta      float64 `json:"total_delta"`
		TournamentCount int     `json:"tournament_count"`
	}
	return json.Marshal(structuredRating{
		Baseline:        r.Baseline,
		CurrentLevel:    r.CurrentLevel,
		TournamentDelta: r.TournamentDelta,
		TotalDelta:      r.TotalDelta,
		TournamentCount: r.TournamentCount,
	})
}

// UnmarshalJSON accepts either a bare number or a structured record.
func (r *SkillRating) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*r = SkillRating{Baseline: scalar}
		return nil
	}

	type structuredRating struct {
		Baseline        float64 `json:"baseline"`
		CurrentLevel    float64 `json:"current_level"`
		TournamentDelta float64 `json:"tournament_delta"`
		TotalDelta      float64 `json:"total_delta"`
		TournamentCount int     `json:"tournament_count"`
	}
	var structured structuredRating
	if err := json.Unmarshal(data, &structured); err != nil {
		return fmt.Errorf("skill rating is neither a number nor a record: %w", err)
	}

	*r = SkillRating{
		Structured:      true,
		Baseline:        structured.Baseline,
		CurrentLevel:    structured.CurrentLevel,
		TournamentDelta: structured.TournamentDelta,
		TotalDelta:      structured.TotalDelta,
		TournamentCount: structured.TournamentCount,
	}
	return nil
}

// SkillMap is the license's per-skill rating column.
type SkillMap map[string]SkillRating

// Value implements driver.Valuer for JSON storage.
func (m SkillMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSON storage.
func (m *SkillMap) Scan(value interface{}) error {
	if value == nil {
		*m = SkillMap{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported skill map column type %T", value)
	}

	if len(data) == 0 {
		*m = SkillMap{}
		return nil
	}

	return json.Unmarshal(data, m)
}
