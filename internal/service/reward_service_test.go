package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/observability"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

func newRewardService(t *testing.T, db *gorm.DB) RewardService {
	t.Helper()
	participations := repository.NewParticipationRepository(db)
	licenses := repository.NewLicenseRepository(db)
	return NewRewardService(
		db,
		repository.NewUserRepository(db),
		repository.NewTournamentRepository(db),
		participations,
		repository.NewRewardRepository(db),
		repository.NewLedgerRepository(db),
		licenses,
		NewRatingService(participations, licenses, 0.2, zerolog.Nop()),
		DefaultConversionRates(),
		validator.New(validator.WithRequiredStructEnabled()),
		observability.NewLockTracker(zerolog.Nop()),
		zerolog.Nop(),
	)
}

func seedRewardFixtures(t *testing.T, db *gorm.DB) (models.User, models.Tournament, models.License) {
	t.Helper()
	user := models.User{Name: "Bima", Email: "bima@example.com"}
	require.NoError(t, db.Create(&user).Error)

	tournament := models.Tournament{
		Name:           "Spring Cup",
		Season:         "2026",
		Specialization: "midfield",
		HeldAt:         time.Date(2026, 4, 18, 14, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&tournament).Error)

	license := models.License{
		UserID:         user.ID,
		Specialization: "midfield",
		CurrentLevel:   2,
		Active:         true,
		SkillAverages:  models.SkillMap{"passing": models.ScalarRating(60)},
	}
	require.NoError(t, db.Create(&license).Error)

	return user, tournament, license
}

func TestRecordParticipationDistributesRewards(t *testing.T) {
	db := setupServiceDB(t)
	svc := newRewardService(t, db)
	user, tournament, license := seedRewardFixtures(t, db)

	resp, err := svc.RecordTournamentParticipation(context.Background(), dto.RecordParticipationRequest{
		UserID:       user.ID,
		TournamentID: tournament.ID,
		Placement:    intPtr(1),
		SkillPoints:  map[string]int{"passing": 10},
		BaseXP:       100,
		Credits:      20,
	})
	require.NoError(t, err)

	// passing is technical: 10 points * 2.0 = 20 bonus XP on top of the base.
	require.Equal(t, int64(120), resp.XPAwarded)
	require.Equal(t, int64(120), resp.XPBalance)
	require.Equal(t, int64(20), resp.CreditsAwarded)
	require.Equal(t, int64(20), resp.CreditBalance)
	require.True(t, resp.AchievedAt.Equal(tournament.HeldAt), "achieved_at mirrors the tournament date")

	// First tournament against a baseline of 60: performance 85, delta 0.2*25 = 5.
	require.Equal(t, 5.0, resp.SkillRatingDeltas["passing"])

	var refreshed models.License
	require.NoError(t, db.First(&refreshed, license.ID).Error)
	rating := refreshed.SkillAverages["passing"]
	require.True(t, rating.Structured, "merge promotes the scalar entry")
	require.Equal(t, 60.0, rating.Baseline)
	require.Equal(t, 65.0, rating.CurrentLevel)
	require.Equal(t, 5.0, rating.TournamentDelta)
	require.Equal(t, 5.0, rating.TotalDelta)
	require.Equal(t, 1, rating.TournamentCount)

	var reward models.SkillReward
	require.NoError(t, db.Where("user_id = ? AND source_type = ? AND source_id = ? AND skill = ?",
		user.ID, models.RewardSourceTournament, tournament.ID, "passing").First(&reward).Error)
	require.Equal(t, 10, reward.Points)
}

func TestRecordParticipationRetryIsIdempotent(t *testing.T) {
	db := setupServiceDB(t)
	svc := newRewardService(t, db)
	user, tournament, license := seedRewardFixtures(t, db)

	payload := dto.RecordParticipationRequest{
		UserID:       user.ID,
		TournamentID: tournament.ID,
		Placement:    intPtr(2),
		SkillPoints:  map[string]int{"passing": 8},
		BaseXP:       50,
		Credits:      10,
	}

	first, err := svc.RecordTournamentParticipation(context.Background(), payload)
	require.NoError(t, err)

	retry, err := svc.RecordTournamentParticipation(context.Background(), payload)
	require.NoError(t, err)

	require.Equal(t, first.ID, retry.ID)
	require.Equal(t, first.XPBalance, retry.XPBalance, "retry must not move the XP balance")
	require.Equal(t, first.CreditBalance, retry.CreditBalance)
	require.Equal(t, first.SkillRatingDeltas, retry.SkillRatingDeltas, "write-once delta survives the retry")

	var user2 models.User
	require.NoError(t, db.First(&user2, user.ID).Error)
	require.Equal(t, first.XPBalance, user2.XPBalance)

	var xpEntries, creditEntries, rewards int64
	require.NoError(t, db.Model(&models.XPTransaction{}).Where("user_id = ?", user.ID).Count(&xpEntries).Error)
	require.NoError(t, db.Model(&models.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&creditEntries).Error)
	require.NoError(t, db.Model(&models.SkillReward{}).Where("user_id = ?", user.ID).Count(&rewards).Error)
	require.Equal(t, int64(1), xpEntries)
	require.Equal(t, int64(1), creditEntries)
	require.Equal(t, int64(1), rewards)

	var refreshed models.License
	require.NoError(t, db.First(&refreshed, license.ID).Error)
	require.Equal(t, 1, refreshed.SkillAverages["passing"].TournamentCount,
		"retry must not merge the delta into the license twice")
}

func TestRecordParticipationUnknownReferences(t *testing.T) {
	db := setupServiceDB(t)
	svc := newRewardService(t, db)
	user, tournament, _ := seedRewardFixtures(t, db)

	_, err := svc.RecordTournamentParticipation(context.Background(), dto.RecordParticipationRequest{
		UserID: 404, TournamentID: tournament.ID,
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.RecordTournamentParticipation(context.Background(), dto.RecordParticipationRequest{
		UserID: user.ID, TournamentID: 404,
	})
	require.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = svc.RecordTournamentParticipation(context.Background(), dto.RecordParticipationRequest{
		UserID: user.ID, TournamentID: tournament.ID, SkillPoints: map[string]int{"juggling": 3},
	})
	require.ErrorIs(t, err, ErrUnknownSkill)
}

func TestAwardSkillPointsIdempotency(t *testing.T) {
	db := setupServiceDB(t)
	svc := newRewardService(t, db)

	user := models.User{Name: "Sari", Email: "sari@example.com"}
	require.NoError(t, db.Create(&user).Error)

	payload := dto.AwardSkillPointsRequest{
		UserID:     user.ID,
		SourceType: models.RewardSourceTraining,
		SourceID:   11,
		Skill:      "stamina",
		Points:     4,
	}

	first, created, err := svc.AwardSkillPoints(context.Background(), payload)
	require.NoError(t, err)
	require.True(t, created)

	repeat, created, err := svc.AwardSkillPoints(context.Background(), payload)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, repeat.ID)
	require.Equal(t, 4, repeat.Points)
}

func TestAwardSkillPointsPenaltyAndZero(t *testing.T) {
	db := setupServiceDB(t)
	svc := newRewardService(t, db)

	user := models.User{Name: "Rafi", Email: "rafi@example.com"}
	require.NoError(t, db.Create(&user).Error)

	penalty, created, err := svc.AwardSkillPoints(context.Background(), dto.AwardSkillPointsRequest{
		UserID:     user.ID,
		SourceType: models.RewardSourceManual,
		SourceID:   1,
		Skill:      "defending",
		Points:     -3,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, -3, penalty.Points, "penalties are stored as negative rows")

	_, _, err = svc.AwardSkillPoints(context.Background(), dto.AwardSkillPointsRequest{
		UserID:     user.ID,
		SourceType: models.RewardSourceManual,
		SourceID:   2,
		Skill:      "defending",
		Points:     0,
	})
	require.ErrorIs(t, err, ErrZeroPoints)
}
