package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// TournamentRepository exposes lookups for tournaments.
type TournamentRepository interface {
	WithTx(tx *gorm.DB) TournamentRepository
	GetByID(ctx context.Context, id uint) (models.Tournament, error)
	Create(ctx context.Context, tournament *models.Tournament) error
}

type tournamentRepository struct {
	db *gorm.DB
}

// NewTournamentRepository instantiates the repository.
func NewTournamentRepository(db *gorm.DB) TournamentRepository {
	return &tournamentRepository{db: db}
}

func (r *tournamentRepository) WithTx(tx *gorm.DB) TournamentRepository {
	return &tournamentRepository{db: tx}
}

func (r *tournamentRepository) GetByID(ctx context.Context, id uint) (models.Tournament, error) {
	var tournament models.Tournament
	if err := r.db.WithContext(ctx).First(&tournament, id).Error; err != nil {
		return models.Tournament{}, err
	}
	return tournament, nil
}

func (r *tournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	return r.db.WithContext(ctx).Create(tournament).Error
}
