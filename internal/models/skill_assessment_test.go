package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssessmentTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{AssessmentStatusNotAssessed, AssessmentStatusAssessed, true},
		{AssessmentStatusAssessed, AssessmentStatusValidated, true},
		{AssessmentStatusAssessed, AssessmentStatusArchived, true},
		{AssessmentStatusValidated, AssessmentStatusArchived, true},
		{AssessmentStatusArchived, AssessmentStatusAssessed, false},
		{AssessmentStatusArchived, AssessmentStatusValidated, false},
		{AssessmentStatusValidated, AssessmentStatusAssessed, false},
		{AssessmentStatusNotAssessed, AssessmentStatusValidated, false},
		{AssessmentStatusNotAssessed, AssessmentStatusArchived, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, CanTransitionAssessment(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	for _, to := range []string{
		AssessmentStatusNotAssessed,
		AssessmentStatusAssessed,
		AssessmentStatusValidated,
	} {
		require.False(t, CanTransitionAssessment(AssessmentStatusArchived, to),
			"archived must not transition to %s", to)
	}
}

func TestMatchesScore(t *testing.T) {
	assessment := SkillAssessment{Skill: "passing", PointsEarned: 8, PointsTotal: 10}

	require.True(t, assessment.MatchesScore("passing", 8, 10))
	require.False(t, assessment.MatchesScore("passing", 7, 10))
	require.False(t, assessment.MatchesScore("dribbling", 8, 10))
}
