package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// ParticipationRepository persists tournament participation records.
type ParticipationRepository interface {
	WithTx(tx *gorm.DB) ParticipationRepository
	GetByID(ctx context.Context, id uint) (models.TournamentParticipation, error)
	GetByUserAndTournament(ctx context.Context, userID, tournamentID uint) (models.TournamentParticipation, error)
	GetByUserAndTournamentForUpdate(ctx context.Context, userID, tournamentID uint) (models.TournamentParticipation, error)
	Create(ctx context.Context, participation *models.TournamentParticipation) error
	Update(ctx context.Context, participation *models.TournamentParticipation) error
	ListByUserOrdered(ctx context.Context, userID uint) ([]models.TournamentParticipation, error)
	SetRatingDeltas(ctx context.Context, id uint, deltas models.RatingDeltas) (bool, error)
}

type participationRepository struct {
	db *gorm.DB
}

// NewParticipationRepository instantiates the repository.
func NewParticipationRepository(db *gorm.DB) ParticipationRepository {
	return &participationRepository{db: db}
}

func (r *participationRepository) WithTx(tx *gorm.DB) ParticipationRepository {
	return &participationRepository{db: tx}
}

func (r *participationRepository) GetByID(ctx context.Context, id uint) (models.TournamentParticipation, error) {
	var participation models.TournamentParticipation
	if err := r.db.WithContext(ctx).First(&participation, id).Error; err != nil {
		return models.TournamentParticipation{}, err
	}
	return participation, nil
}

func (r *participationRepository) GetByUserAndTournament(ctx context.Context, userID, tournamentID uint) (models.TournamentParticipation, error) {
	var participation models.TournamentParticipation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("tournament_id = ?", tournamentID).
		First(&participation).Error; err != nil {
		return models.TournamentParticipation{}, err
	}
	return participation, nil
}

func (r *participationRepository) GetByUserAndTournamentForUpdate(ctx context.Context, userID, tournamentID uint) (models.TournamentParticipation, error) {
	var participation models.TournamentParticipation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Where("tournament_id = ?", tournamentID).
		First(&participation).Error; err != nil {
		return models.TournamentParticipation{}, err
	}
	return participation, nil
}

func (r *participationRepository) Create(ctx context.Context, participation *models.TournamentParticipation) error {
	return r.db.WithContext(ctx).Create(participation).Error
}

func (r *participationRepository) Update(ctx context.Context, participation *models.TournamentParticipation) error {
	return r.db.WithContext(ctx).Save(participation).Error
}

// ListByUserOrdered returns the user's full participation history in replay
// order. The id tiebreaker is mandatory: rows inserted within the same clock
// tick must replay identically across runs and processes.
func (r *participationRepository) ListByUserOrdered(ctx context.Context, userID uint) ([]models.TournamentParticipation, error) {
	var participations []models.TournamentParticipation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("achieved_at ASC, id ASC").
		Find(&participations).Error; err != nil {
		return nil, err
	}
	return participations, nil
}

// SetRatingDeltas stores the write-once delta. The guard lives in the WHERE
// clause: a row whose deltas are already set is left untouched and false is
// returned, regardless of what the caller computed.
func (r *participationRepository) SetRatingDeltas(ctx context.Context, id uint, deltas models.RatingDeltas) (bool, error) {
	if deltas == nil {
		deltas = models.RatingDeltas{}
	}

	result := r.db.WithContext(ctx).Model(&models.TournamentParticipation{}).
		Where("id = ?", id).
		Where("skill_rating_deltas IS NULL").
		Update("skill_rating_deltas", deltas)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
