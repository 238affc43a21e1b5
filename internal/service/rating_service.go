package service

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

// ErrParticipationNotFound indicates the requested participation row is missing.
var ErrParticipationNotFound = errors.New("tournament participation not found")

// DefaultSkillBaseline is the rating assumed for a skill with no recorded baseline.
const DefaultSkillBaseline = 50.0

// RatingService computes the deterministic per-tournament skill rating deltas.
type RatingService interface {
	ComputeTournamentSkillDelta(ctx context.Context, userID, tournamentID uint) (models.RatingDeltas, error)
	ComputeFromHistory(history []models.TournamentParticipation, baselines map[string]float64, targetID uint) models.RatingDeltas
}

type ratingService struct {
	participations repository.ParticipationRepository
	licenses       repository.LicenseRepository
	alpha          float64
	logger         zerolog.Logger
}

// NewRatingService constructs the rating engine. Alpha is the EMA smoothing
// factor in (0, 1].
func NewRatingService(participations repository.ParticipationRepository, licenses repository.LicenseRepository, alpha float64, logger zerolog.Logger) RatingService {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.2
	}
	return &ratingService{
		participations: participations,
		licenses:       licenses,
		alpha:          alpha,
		logger:         logger.With().Str("component", "rating_service").Logger(),
	}
}

// ComputeTournamentSkillDelta replays the user's full tournament history in
// (achieved_at, id) order and reports the isolated contribution of the target
// tournament. The function is pure over the stored history and re-entrant, but
// running it again after later tournaments were recorded yields a different
// answer — write-once enforcement is the caller's responsibility.
func (s *ratingService) ComputeTournamentSkillDelta(ctx context.Context, userID, tournamentID uint) (models.RatingDeltas, error) {
	target, err := s.participations.GetByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}

	history, err := s.participations.ListByUserOrdered(ctx, userID)
	if err != nil {
		return nil, err
	}

	baselines, err := s.baselineSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.ComputeFromHistory(history, baselines, target.ID), nil
}

// ComputeFromHistory is the pure replay core. Callers inside a transaction
// pass history fetched under that transaction so phase-1 writes are visible.
func (s *ratingService) ComputeFromHistory(history []models.TournamentParticipation, baselines map[string]float64, targetID uint) models.RatingDeltas {
	ratings := map[string]float64{}
	deltas := models.RatingDeltas{}

	for _, participation := range history {
		isTarget := participation.ID == targetID
		for skill, points := range participation.SkillPointsAwarded {
			current, ok := ratings[skill]
			if !ok {
				if baseline, has := baselines[skill]; has {
					current = baseline
				} else {
					current = DefaultSkillBaseline
				}
			}

			performance := performanceScore(participation.Placement, points)
			next := current + s.alpha*(performance-current)
			ratings[skill] = next

			if isTarget {
				deltas[skill] = round2(next - current)
			}
		}

		// History beyond the target cannot influence its delta.
		if isTarget {
			break
		}
	}

	return deltas
}

func (s *ratingService) baselineSnapshot(ctx context.Context, userID uint) (map[string]float64, error) {
	licenses, err := s.licenses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	baselines := map[string]float64{}
	for _, license := range licenses {
		for skill, rating := range license.SkillAverages {
			normalized := rating.Normalized()
			if _, exists := baselines[skill]; !exists {
				baselines[skill] = normalized.Baseline
			}
		}
	}
	return baselines, nil
}

// performanceScore maps one tournament outcome for one skill onto the 0-100
// rating scale. Pure and total: every input yields a defined score.
func performanceScore(placement *int, points int) float64 {
	score := 50.0 + 2.0*float64(points)

	if placement != nil {
		switch {
		case *placement == 1:
			score += 15
		case *placement == 2:
			score += 10
		case *placement == 3:
			score += 5
		case *placement > 10:
			score -= 5
		}
	}

	return math.Max(0, math.Min(100, score))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
