package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkillRatingScalarRoundTrip(t *testing.T) {
	rating := ScalarRating(78.5)

	payload, err := json.Marshal(rating)
	require.NoError(t, err)
	require.Equal(t, "78.5", string(payload), "scalar ratings must serialize as a bare number")

	var decoded SkillRating
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.False(t, decoded.Structured)
	require.Equal(t, 78.5, decoded.Baseline)
}

func TestSkillRatingStructuredRoundTrip(t *testing.T) {
	rating := SkillRating{
		Structured:      true,
		Baseline:        60,
		CurrentLevel:    63.4,
		TournamentDelta: 1.2,
		TotalDelta:      3.4,
		TournamentCount: 4,
	}

	payload, err := json.Marshal(rating)
	require.NoError(t, err)

	var decoded SkillRating
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.True(t, decoded.Structured)
	require.Equal(t, rating.Baseline, decoded.Baseline)
	require.Equal(t, rating.CurrentLevel, decoded.CurrentLevel)
	require.Equal(t, rating.TournamentDelta, decoded.TournamentDelta)
	require.Equal(t, rating.TotalDelta, decoded.TotalDelta)
	require.Equal(t, rating.TournamentCount, decoded.TournamentCount)
}

func TestSkillMapPreservesMixedFormats(t *testing.T) {
	original := SkillMap{
		"passing": ScalarRating(70),
		"stamina": {
			Structured:      true,
			Baseline:        55,
			CurrentLevel:    58.3,
			TournamentDelta: 0.8,
			TotalDelta:      3.3,
			TournamentCount: 2,
		},
	}

	value, err := original.Value()
	require.NoError(t, err)

	var restored SkillMap
	require.NoError(t, restored.Scan(value))

	require.False(t, restored["passing"].Structured, "scalar entry must stay scalar across a round trip")
	require.Equal(t, 70.0, restored["passing"].Baseline)
	require.True(t, restored["stamina"].Structured, "structured entry must stay structured across a round trip")
	require.Equal(t, 58.3, restored["stamina"].CurrentLevel)
	require.Equal(t, 2, restored["stamina"].TournamentCount)
}

func TestSkillMapScanNil(t *testing.T) {
	var m SkillMap
	require.NoError(t, m.Scan(nil))
	require.NotNil(t, m)
	require.Empty(t, m)
}

func TestNormalizedPromotesScalar(t *testing.T) {
	scalar := ScalarRating(64)
	normalized := scalar.Normalized()

	require.True(t, normalized.Structured)
	require.Equal(t, 64.0, normalized.Baseline)
	require.Equal(t, 64.0, normalized.CurrentLevel)
	require.Zero(t, normalized.TournamentDelta)
	require.Zero(t, normalized.TournamentCount)

	structured := SkillRating{Structured: true, Baseline: 50, CurrentLevel: 61, TournamentCount: 3}
	require.Equal(t, structured, structured.Normalized(), "structured ratings pass through unchanged")
}
