package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/observability"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.License{},
		&models.SkillAssessment{},
		&models.SkillReward{},
		&models.XPTransaction{},
		&models.CreditTransaction{},
		&models.Tournament{},
		&models.TournamentParticipation{},
		&models.SpecializationProgress{},
		&models.ProgressionHistory{},
		&models.AuditRecord{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	return db
}

func newAssessmentService(t *testing.T, db *gorm.DB, cache *redis.Client) AssessmentService {
	t.Helper()
	return NewAssessmentService(
		db,
		repository.NewLicenseRepository(db),
		repository.NewAssessmentRepository(db),
		repository.NewUserRepository(db),
		NewAuditService(repository.NewAuditRepository(db), zerolog.Nop()),
		validator.New(validator.WithRequiredStructEnabled()),
		observability.NewLockTracker(zerolog.Nop()),
		cache,
		time.Minute,
		zerolog.Nop(),
	)
}

func seedAssessmentFixtures(t *testing.T, db *gorm.DB, licenseLevel int) (models.License, models.User) {
	t.Helper()
	player := models.User{Name: "Ayu", Email: "ayu@example.com"}
	require.NoError(t, db.Create(&player).Error)

	// A long-tenured assessor so the validation rule stays out of the way.
	assessor := models.User{Name: "Coach Dew", Email: "dew@example.com", CreatedAt: time.Now().Add(-365 * 24 * time.Hour)}
	require.NoError(t, db.Create(&assessor).Error)

	license := models.License{UserID: player.ID, Specialization: "midfield", CurrentLevel: licenseLevel, Active: true}
	require.NoError(t, db.Create(&license).Error)

	return license, assessor
}

func TestCreateAssessmentArchivesPriorActive(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	first, created, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "passing", PointsEarned: 7, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.AssessmentStatusAssessed, first.Status)
	require.Equal(t, 70.0, first.Percentage)

	second, created, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "passing", PointsEarned: 9, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, second.ID)

	var prior models.SkillAssessment
	require.NoError(t, db.First(&prior, first.ID).Error)
	require.Equal(t, models.AssessmentStatusArchived, prior.Status)
	require.Equal(t, models.AssessmentStatusAssessed, prior.PreviousStatus)
	require.Equal(t, "superseded by newer assessment", prior.ArchiveReason)
	require.NotNil(t, prior.ArchivedAt)

	var active int64
	require.NoError(t, db.Model(&models.SkillAssessment{}).
		Where("license_id = ? AND skill = ? AND status <> ?", license.ID, "passing", models.AssessmentStatusArchived).
		Count(&active).Error)
	require.Equal(t, int64(1), active, "at most one active assessment per license and skill")
}

func TestCreateAssessmentIdenticalScoreIsIdempotent(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	payload := dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "dribbling", PointsEarned: 8, PointsTotal: 10, AssessorID: assessor.ID,
	}

	first, created, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	require.True(t, created)

	repeat, created, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	require.False(t, created, "identical resubmission must not create a new row")
	require.Equal(t, first.ID, repeat.ID)

	var total int64
	require.NoError(t, db.Model(&models.SkillAssessment{}).
		Where("license_id = ? AND skill = ?", license.ID, "dribbling").
		Count(&total).Error)
	require.Equal(t, int64(1), total)
}

func TestCreateAssessmentRejectsBadInput(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	_, _, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "juggling", PointsEarned: 5, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.ErrorIs(t, err, ErrUnknownSkill)

	_, _, err = svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "passing", PointsEarned: 11, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.ErrorIs(t, err, ErrInvalidScore)

	_, _, err = svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: 99999, Skill: "passing", PointsEarned: 5, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestAssessmentLifecycleTransitions(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	created, _, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "shooting", PointsEarned: 6, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)

	validated, err := svc.Validate(context.Background(), created.ID, assessor.ID)
	require.NoError(t, err)
	require.Equal(t, models.AssessmentStatusValidated, validated.Status)
	require.Equal(t, models.AssessmentStatusAssessed, validated.PreviousStatus)
	require.NotNil(t, validated.ValidatedAt)

	// Repeated validation is a no-op.
	again, err := svc.Validate(context.Background(), created.ID, assessor.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ValidatedAt)
	require.True(t, validated.ValidatedAt.Equal(*again.ValidatedAt))

	archived, err := svc.Archive(context.Background(), created.ID, assessor.ID, "season rollover")
	require.NoError(t, err)
	require.Equal(t, models.AssessmentStatusArchived, archived.Status)
	require.Equal(t, "season rollover", archived.ArchiveReason)

	// Archived is terminal: validation must be rejected with the transition error.
	_, err = svc.Validate(context.Background(), created.ID, assessor.ID)
	var transition *InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, models.AssessmentStatusArchived, transition.From)

	// Archiving an archived assessment stays a no-op.
	repeat, err := svc.Archive(context.Background(), created.ID, assessor.ID, "different reason")
	require.NoError(t, err)
	require.Equal(t, "season rollover", repeat.ArchiveReason)
}

func TestValidationRequirementRules(t *testing.T) {
	require.True(t, determineValidationRequirement(0, 30, models.SkillCategoryTechnical), "junior assessor")
	require.True(t, determineValidationRequirement(4, 365, models.SkillCategoryTechnical), "high license level")
	require.True(t, determineValidationRequirement(2, 365, models.SkillCategoryGoalkeeping), "goalkeeping at level 2")
	require.False(t, determineValidationRequirement(1, 365, models.SkillCategoryGoalkeeping))
	require.False(t, determineValidationRequirement(3, 365, models.SkillCategoryPhysical))
}

func TestCreateAssessmentWritesSkillAverage(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	_, _, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "stamina", PointsEarned: 8, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)

	var refreshed models.License
	require.NoError(t, db.First(&refreshed, license.ID).Error)
	rating := refreshed.SkillAverages["stamina"]
	require.False(t, rating.Structured, "assessment pipeline writes the scalar form")
	require.Equal(t, 80.0, rating.Baseline)
}

func TestCreateAssessmentPreservesStructuredEntry(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	license.SkillAverages = models.SkillMap{
		"pace": {
			Structured:      true,
			Baseline:        55,
			CurrentLevel:    61.5,
			TournamentDelta: 1.1,
			TotalDelta:      6.5,
			TournamentCount: 3,
		},
	}
	require.NoError(t, db.Save(&license).Error)

	_, _, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "pace", PointsEarned: 9, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)

	var refreshed models.License
	require.NoError(t, db.First(&refreshed, license.ID).Error)
	rating := refreshed.SkillAverages["pace"]
	require.True(t, rating.Structured, "structured entries must never degrade to scalar")
	require.Equal(t, 90.0, rating.Baseline, "only the baseline may change")
	require.Equal(t, 61.5, rating.CurrentLevel)
	require.Equal(t, 6.5, rating.TotalDelta)
	require.Equal(t, 3, rating.TournamentCount)
}

func TestCurrentAveragesCaching(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer cache.Close()

	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, cache)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	_, _, err = svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "vision", PointsEarned: 6, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)

	first, err := svc.CurrentAverages(context.Background(), license.ID)
	require.NoError(t, err)
	require.Equal(t, 60.0, first.Averages["vision"].Baseline)

	// Mutate the row behind the cache; a repeated read must serve the cached copy.
	require.NoError(t, db.Model(&models.License{}).Where("id = ?", license.ID).
		Update("skill_averages", models.SkillMap{"vision": models.ScalarRating(10)}).Error)

	cached, err := svc.CurrentAverages(context.Background(), license.ID)
	require.NoError(t, err)
	require.Equal(t, 60.0, cached.Averages["vision"].Baseline)

	// A new assessment invalidates the cache.
	_, _, err = svc.Create(context.Background(), dto.AssessmentCreateRequest{
		LicenseID: license.ID, Skill: "vision", PointsEarned: 10, PointsTotal: 10, AssessorID: assessor.ID,
	})
	require.NoError(t, err)

	refreshed, err := svc.CurrentAverages(context.Background(), license.ID)
	require.NoError(t, err)
	require.Equal(t, 80.0, refreshed.Averages["vision"].Baseline, "mean of 60 and 100 after invalidation")
}

func TestAssessmentHistoryOrderingAndFilter(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAssessmentService(t, db, nil)
	license, assessor := seedAssessmentFixtures(t, db, 1)

	for _, earned := range []int{5, 6, 7} {
		_, _, err := svc.Create(context.Background(), dto.AssessmentCreateRequest{
			LicenseID: license.ID, Skill: "defending", PointsEarned: earned, PointsTotal: 10, AssessorID: assessor.ID,
		})
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background(), dto.AssessmentHistoryRequest{LicenseID: license.ID, Skill: "defending"})
	require.NoError(t, err)
	require.Len(t, history, 3, "history includes archived assessments")
	require.Equal(t, 70.0, history[0].Percentage, "newest first")

	archivedOnly, err := svc.History(context.Background(), dto.AssessmentHistoryRequest{
		LicenseID: license.ID, Skill: "defending", Status: models.AssessmentStatusArchived,
	})
	require.NoError(t, err)
	require.Len(t, archivedOnly, 2)

	_, err = svc.History(context.Background(), dto.AssessmentHistoryRequest{LicenseID: 424242})
	require.ErrorIs(t, err, ErrLicenseNotFound)
}
