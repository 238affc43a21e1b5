package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liga-go-api/internal/models"
)

func TestListByUserOrderedBreaksTiesById(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipationRepository(db)

	user := models.User{Name: "Tariq", Email: "tariq@example.com"}
	require.NoError(t, db.Create(&user).Error)

	sameInstant := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	later := sameInstant.Add(time.Hour)

	// Inserted newest-first on purpose; replay order must not follow insert order.
	third := models.TournamentParticipation{UserID: user.ID, TournamentID: 30, AchievedAt: later}
	require.NoError(t, db.Create(&third).Error)
	first := models.TournamentParticipation{UserID: user.ID, TournamentID: 10, AchievedAt: sameInstant}
	require.NoError(t, db.Create(&first).Error)
	second := models.TournamentParticipation{UserID: user.ID, TournamentID: 20, AchievedAt: sameInstant}
	require.NoError(t, db.Create(&second).Error)

	history, err := repo.ListByUserOrdered(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, first.ID, history[0].ID)
	require.Equal(t, second.ID, history[1].ID, "equal timestamps must order by id")
	require.Equal(t, third.ID, history[2].ID)

	// Replay order is stable across repeated reads.
	again, err := repo.ListByUserOrdered(context.Background(), user.ID)
	require.NoError(t, err)
	for i := range history {
		require.Equal(t, history[i].ID, again[i].ID)
	}
}

func TestSetRatingDeltasIsWriteOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipationRepository(db)

	participation := models.TournamentParticipation{
		UserID:       1,
		TournamentID: 5,
		AchievedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&participation).Error)

	stored, err := repo.SetRatingDeltas(context.Background(), participation.ID, models.RatingDeltas{"passing": 1.4})
	require.NoError(t, err)
	require.True(t, stored)

	stored, err = repo.SetRatingDeltas(context.Background(), participation.ID, models.RatingDeltas{"passing": 99})
	require.NoError(t, err)
	require.False(t, stored, "a set delta must never be overwritten")

	refreshed, err := repo.GetByID(context.Background(), participation.ID)
	require.NoError(t, err)
	require.Equal(t, 1.4, refreshed.SkillRatingDeltas["passing"])
}

func TestSetRatingDeltasStoresEmptyMapAsComputed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipationRepository(db)

	participation := models.TournamentParticipation{
		UserID:       2,
		TournamentID: 6,
		AchievedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&participation).Error)
	require.False(t, participation.HasRatingDeltas())

	stored, err := repo.SetRatingDeltas(context.Background(), participation.ID, nil)
	require.NoError(t, err)
	require.True(t, stored)

	refreshed, err := repo.GetByID(context.Background(), participation.ID)
	require.NoError(t, err)
	require.True(t, refreshed.HasRatingDeltas(), "an empty computed delta still marks the row as computed")
	require.Empty(t, refreshed.SkillRatingDeltas)
}
