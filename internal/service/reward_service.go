package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/observability"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

// ErrUserNotFound indicates the referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrTournamentNotFound indicates the referenced tournament does not exist.
var ErrTournamentNotFound = errors.New("tournament not found")

// ErrZeroPoints indicates a skill reward of zero points, which is never meaningful.
var ErrZeroPoints = errors.New("reward points must not be zero")

// ConversionRates maps skill categories to XP-per-skill-point rates.
type ConversionRates struct {
	ByCategory map[string]float64
	Default    float64
}

// DefaultConversionRates is the shipped conversion table.
func DefaultConversionRates() ConversionRates {
	return ConversionRates{
		ByCategory: map[string]float64{
			models.SkillCategoryTechnical:   2.0,
			models.SkillCategoryPhysical:    1.0,
			models.SkillCategoryTactical:    2.5,
			models.SkillCategoryGoalkeeping: 3.0,
		},
		Default: 1.5,
	}
}

// Rate returns the category rate, falling back to the default for unmapped
// categories rather than failing the distribution.
func (c ConversionRates) Rate(category string) float64 {
	if rate, ok := c.ByCategory[category]; ok {
		return rate
	}
	return c.Default
}

// RewardService distributes tournament outcomes: participation upsert,
// write-once rating deltas, idempotent XP/credit ledger entries and skill
// reward rows, all inside one transaction under the user row lock.
type RewardService interface {
	RecordTournamentParticipation(ctx context.Context, payload dto.RecordParticipationRequest) (dto.ParticipationResponse, error)
	AwardSkillPoints(ctx context.Context, payload dto.AwardSkillPointsRequest) (dto.SkillRewardResponse, bool, error)
}

type rewardService struct {
	db             *gorm.DB
	users          repository.UserRepository
	tournaments    repository.TournamentRepository
	participations repository.ParticipationRepository
	rewards        repository.RewardRepository
	ledger         repository.LedgerRepository
	licenses       repository.LicenseRepository
	rating         RatingService
	rates          ConversionRates
	validator      *validator.Validate
	locks          *observability.LockTracker
	logger         zerolog.Logger
}

// NewRewardService constructs the reward distribution orchestrator.
func NewRewardService(db *gorm.DB, users repository.UserRepository, tournaments repository.TournamentRepository, participations repository.ParticipationRepository, rewards repository.RewardRepository, ledger repository.LedgerRepository, licenses repository.LicenseRepository, rating RatingService, rates ConversionRates, validate *validator.Validate, locks *observability.LockTracker, logger zerolog.Logger) RewardService {
	if rates.Default == 0 {
		rates = DefaultConversionRates()
	}
	return &rewardService{
		db:             db,
		users:          users,
		tournaments:    tournaments,
		participations: participations,
		rewards:        rewards,
		ledger:         ledger,
		licenses:       licenses,
		rating:         rating,
		rates:          rates,
		validator:      validate,
		locks:          locks,
		logger:         logger.With().Str("component", "reward_service").Logger(),
	}
}

func (s *rewardService) RecordTournamentParticipation(ctx context.Context, payload dto.RecordParticipationRequest) (dto.ParticipationResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/liga-go-api/internal/service/reward")
	ctx, span := tracer.Start(ctx, "reward.record_participation")
	span.SetAttributes(
		attribute.Int64("reward.user_id", int64(payload.UserID)),
		attribute.Int64("reward.tournament_id", int64(payload.TournamentID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ParticipationResponse{}, err
	}
	for skill := range payload.SkillPoints {
		if !models.IsRecognizedSkill(skill) {
			return dto.ParticipationResponse{}, fmt.Errorf("%w: %s", ErrUnknownSkill, skill)
		}
	}

	var (
		participation models.TournamentParticipation
		xpBalance     int64
		creditBalance int64
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The user row is the shared aggregate both reward calls contend
		// on; locking it first serializes concurrent distributions.
		lock := s.locks.Start("reward", "user", payload.UserID, "record_tournament_participation")
		user, err := s.users.WithTx(tx).GetForUpdate(ctx, payload.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		lock.Acquired()
		defer lock.Release()

		tournament, err := s.tournaments.WithTx(tx).GetByID(ctx, payload.TournamentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		bonusXP := s.convertSkillPoints(payload.SkillPoints)
		totalXP := payload.BaseXP + bonusXP

		// Phase 1: upsert the participation so the replay in phase 2 sees it.
		participation, err = s.upsertParticipation(ctx, tx, user.ID, tournament, payload, totalXP)
		if err != nil {
			return err
		}

		// Phase 2: write-once rating delta.
		if !participation.HasRatingDeltas() {
			if err := s.storeRatingDeltas(ctx, tx, user.ID, tournament, &participation); err != nil {
				return err
			}
		}

		ledger := s.ledger.WithTx(tx)

		// Phase 3: XP balance + ledger entry as one rollback unit.
		xpBalance = user.XPBalance
		if totalXP > 0 {
			entry := models.XPTransaction{
				UserID:      user.ID,
				SourceType:  models.RewardSourceTournament,
				SourceID:    tournament.ID,
				Type:        models.XPTransactionTypeTournamentBonus,
				Amount:      totalXP,
				Description: fmt.Sprintf("XP for %s", tournament.Name),
			}
			if _, err := ledger.AddXP(ctx, &entry); err != nil {
				return err
			}
			xpBalance = entry.BalanceAfter
		}

		// Phase 4: credits, same pattern with the opaque key.
		creditBalance = user.CreditBalance
		if payload.Credits > 0 {
			entry := models.CreditTransaction{
				UserID:         user.ID,
				Type:           models.CreditTransactionTypeTournament,
				Amount:         payload.Credits,
				Description:    fmt.Sprintf("credits for %s", tournament.Name),
				IdempotencyKey: models.LedgerKey(models.RewardSourceTournament, tournament.ID, user.ID, "credits"),
				SourceType:     models.RewardSourceTournament,
				SourceID:       tournament.ID,
			}
			if _, err := ledger.AddCredits(ctx, &entry); err != nil {
				return err
			}
			creditBalance = entry.BalanceAfter
		}

		// Skill reward ledger rows, one per skill, idempotent on the
		// composite source key.
		for skill, points := range payload.SkillPoints {
			if points == 0 {
				continue
			}
			if _, _, err := s.awardLocked(ctx, tx, user.ID, models.RewardSourceTournament, tournament.ID, skill, points); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "participation_failed")
		return dto.ParticipationResponse{}, err
	}

	span.SetAttributes(attribute.Int64("reward.xp_awarded", participation.XPAwarded))
	return dto.NewParticipationResponse(participation, xpBalance, creditBalance), nil
}

func (s *rewardService) upsertParticipation(ctx context.Context, tx *gorm.DB, userID uint, tournament models.Tournament, payload dto.RecordParticipationRequest, totalXP int64) (models.TournamentParticipation, error) {
	repo := s.participations.WithTx(tx)

	participation, err := repo.GetByUserAndTournamentForUpdate(ctx, userID, tournament.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TournamentParticipation{}, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		participation = models.TournamentParticipation{
			UserID:             userID,
			TournamentID:       tournament.ID,
			Placement:          payload.Placement,
			SkillPointsAwarded: models.SkillPoints(payload.SkillPoints),
			XPAwarded:          totalXP,
			CreditsAwarded:     payload.Credits,
			AchievedAt:         tournament.HeldAt,
		}
		if createErr := repo.Create(ctx, &participation); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				// Concurrent creator won; take their row.
				participation, err = repo.GetByUserAndTournamentForUpdate(ctx, userID, tournament.ID)
				if err != nil {
					return models.TournamentParticipation{}, err
				}
			} else {
				return models.TournamentParticipation{}, createErr
			}
		} else {
			return participation, nil
		}
	}

	// Retry path: awarded fields may be refreshed while the delta is unset.
	participation.Placement = payload.Placement
	participation.SkillPointsAwarded = models.SkillPoints(payload.SkillPoints)
	participation.XPAwarded = totalXP
	participation.CreditsAwarded = payload.Credits
	if err := repo.Update(ctx, &participation); err != nil {
		return models.TournamentParticipation{}, err
	}
	return participation, nil
}

func (s *rewardService) storeRatingDeltas(ctx context.Context, tx *gorm.DB, userID uint, tournament models.Tournament, participation *models.TournamentParticipation) error {
	repo := s.participations.WithTx(tx)

	history, err := repo.ListByUserOrdered(ctx, userID)
	if err != nil {
		return err
	}

	licenses := s.licenses.WithTx(tx)
	baselines := map[string]float64{}
	userLicenses, err := licenses.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, license := range userLicenses {
		for skill, rating := range license.SkillAverages {
			if _, exists := baselines[skill]; !exists {
				baselines[skill] = rating.Normalized().Baseline
			}
		}
	}

	deltas := s.rating.ComputeFromHistory(history, baselines, participation.ID)

	stored, err := repo.SetRatingDeltas(ctx, participation.ID, deltas)
	if err != nil {
		return err
	}
	if !stored {
		// Another writer set the deltas between our read and this update;
		// theirs is the authoritative value.
		refreshed, err := repo.GetByID(ctx, participation.ID)
		if err != nil {
			return err
		}
		*participation = refreshed
		return nil
	}
	participation.SkillRatingDeltas = deltas

	return s.mergeDeltasIntoLicense(ctx, tx, userID, tournament.Specialization, deltas)
}

// mergeDeltasIntoLicense folds the tournament deltas into the license skill
// map. Every touched entry is normalized to the structured form first so
// scalar legacy entries are never skipped.
func (s *rewardService) mergeDeltasIntoLicense(ctx context.Context, tx *gorm.DB, userID uint, specialization string, deltas models.RatingDeltas) error {
	if len(deltas) == 0 || specialization == "" {
		return nil
	}

	repo := s.licenses.WithTx(tx)
	preview, err := repo.GetByUserAndSpecialization(ctx, userID, specialization)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No license yet; the sync service will backfill one later.
			return nil
		}
		return err
	}

	// Re-read under our own lock; the preview may already be stale.
	lock := s.locks.Start("reward", "license", preview.ID, "record_tournament_participation")
	license, err := repo.GetForUpdate(ctx, preview.ID)
	if err != nil {
		return err
	}
	lock.Acquired()
	defer lock.Release()

	averages := license.SkillAverages
	if averages == nil {
		averages = models.SkillMap{}
	}

	for skill, delta := range deltas {
		entry := averages[skill].Normalized()
		entry.CurrentLevel = round2(entry.CurrentLevel + delta)
		entry.TournamentDelta = delta
		entry.TotalDelta = round2(entry.TotalDelta + delta)
		entry.TournamentCount++
		averages[skill] = entry
	}

	return repo.UpdateSkillAverages(ctx, license.ID, averages)
}

// AwardSkillPoints applies the idempotency guard against the skill reward
// uniqueness constraint for non-tournament callers.
func (s *rewardService) AwardSkillPoints(ctx context.Context, payload dto.AwardSkillPointsRequest) (dto.SkillRewardResponse, bool, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SkillRewardResponse{}, false, err
	}
	if !models.IsRecognizedSkill(payload.Skill) {
		return dto.SkillRewardResponse{}, false, ErrUnknownSkill
	}
	if payload.Points == 0 {
		return dto.SkillRewardResponse{}, false, ErrZeroPoints
	}

	if _, err := s.users.GetByID(ctx, payload.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SkillRewardResponse{}, false, ErrUserNotFound
		}
		return dto.SkillRewardResponse{}, false, err
	}

	var (
		reward  models.SkillReward
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reward, created, err = s.awardLocked(ctx, tx, payload.UserID, payload.SourceType, payload.SourceID, payload.Skill, payload.Points)
		return err
	})
	if err != nil {
		return dto.SkillRewardResponse{}, false, err
	}

	return dto.NewSkillRewardResponse(reward, created), created, nil
}

// awardLocked is the idempotency guard shared by both reward entry points:
// query first, insert, and absorb a losing race by returning the winner's row.
func (s *rewardService) awardLocked(ctx context.Context, tx *gorm.DB, userID uint, sourceType string, sourceID uint, skill string, points int) (models.SkillReward, bool, error) {
	repo := s.rewards.WithTx(tx)

	existing, err := repo.FindBySource(ctx, userID, sourceType, sourceID, skill)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SkillReward{}, false, err
	}

	reward := models.SkillReward{
		UserID:     userID,
		SourceType: sourceType,
		SourceID:   sourceID,
		Skill:      skill,
		Points:     points,
	}

	// Savepoint so a duplicate-key failure rolls back only this insert.
	insertErr := tx.Transaction(func(inner *gorm.DB) error {
		return repo.WithTx(inner).Create(ctx, &reward)
	})
	if insertErr == nil {
		return reward, true, nil
	}
	if !errors.Is(insertErr, gorm.ErrDuplicatedKey) {
		return models.SkillReward{}, false, insertErr
	}

	winner, err := repo.FindBySource(ctx, userID, sourceType, sourceID, skill)
	if err != nil {
		return models.SkillReward{}, false, err
	}
	return winner, false, nil
}

func (s *rewardService) convertSkillPoints(skillPoints map[string]int) int64 {
	var bonus float64
	for skill, points := range skillPoints {
		category, _ := models.SkillCategory(skill)
		bonus += float64(points) * s.rates.Rate(category)
	}
	return int64(math.Round(bonus))
}
