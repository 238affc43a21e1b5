package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func TestAddXPAppliesIncrementAndSnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)

	user := models.User{Name: "Lina", Email: "lina@example.com", XPBalance: 100}
	require.NoError(t, db.Create(&user).Error)

	entry := models.XPTransaction{
		UserID:     user.ID,
		SourceType: models.RewardSourceTournament,
		SourceID:   7,
		Type:       models.XPTransactionTypeTournamentBonus,
		Amount:     50,
	}
	created, err := repo.AddXP(context.Background(), &entry)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(150), entry.BalanceAfter, "snapshot must come from the mutating statement")

	var refreshed models.User
	require.NoError(t, db.First(&refreshed, user.ID).Error)
	require.Equal(t, int64(150), refreshed.XPBalance)
}

func TestAddXPDuplicateDoesNotDoubleApply(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)

	user := models.User{Name: "Milo", Email: "milo@example.com"}
	require.NoError(t, db.Create(&user).Error)

	first := models.XPTransaction{
		UserID:     user.ID,
		SourceType: models.RewardSourceTournament,
		SourceID:   3,
		Type:       models.XPTransactionTypeTournamentBonus,
		Amount:     80,
	}
	created, err := repo.AddXP(context.Background(), &first)
	require.NoError(t, err)
	require.True(t, created)

	retry := models.XPTransaction{
		UserID:     user.ID,
		SourceType: models.RewardSourceTournament,
		SourceID:   3,
		Type:       models.XPTransactionTypeTournamentBonus,
		Amount:     80,
	}
	created, err = repo.AddXP(context.Background(), &retry)
	require.NoError(t, err)
	require.False(t, created, "second identical entry must be absorbed")
	require.Equal(t, first.ID, retry.ID, "retry must surface the original ledger row")
	require.Equal(t, int64(80), retry.BalanceAfter)

	var refreshed models.User
	require.NoError(t, db.First(&refreshed, user.ID).Error)
	require.Equal(t, int64(80), refreshed.XPBalance, "duplicate must roll back its increment")

	var count int64
	require.NoError(t, db.Model(&models.XPTransaction{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAddCreditsIdempotencyKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)

	user := models.User{Name: "Nora", Email: "nora@example.com"}
	require.NoError(t, db.Create(&user).Error)

	key := models.LedgerKey(models.RewardSourceTournament, 9, user.ID, "credits")
	first := models.CreditTransaction{
		UserID:         user.ID,
		Type:           models.CreditTransactionTypeTournament,
		Amount:         25,
		IdempotencyKey: key,
		SourceType:     models.RewardSourceTournament,
		SourceID:       9,
	}
	created, err := repo.AddCredits(context.Background(), &first)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(25), first.BalanceAfter)

	retry := models.CreditTransaction{
		UserID:         user.ID,
		Type:           models.CreditTransactionTypeTournament,
		Amount:         25,
		IdempotencyKey: key,
		SourceType:     models.RewardSourceTournament,
		SourceID:       9,
	}
	created, err = repo.AddCredits(context.Background(), &retry)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, retry.ID)

	var refreshed models.User
	require.NoError(t, db.First(&refreshed, user.ID).Error)
	require.Equal(t, int64(25), refreshed.CreditBalance)
}

func TestLatestBalancesEmptyLedger(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)

	xp, err := repo.LatestXPBalance(context.Background(), 42)
	require.NoError(t, err)
	require.Zero(t, xp)

	credits, err := repo.LatestCreditBalance(context.Background(), 42)
	require.NoError(t, err)
	require.Zero(t, credits)
}
