package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// ProgressRepository persists gameplay progression records and their history.
type ProgressRepository interface {
	WithTx(tx *gorm.DB) ProgressRepository
	GetByUserAndSpecialization(ctx context.Context, userID uint, specialization string) (models.SpecializationProgress, error)
	GetByUserAndSpecializationForUpdate(ctx context.Context, userID uint, specialization string) (models.SpecializationProgress, error)
	Create(ctx context.Context, progress *models.SpecializationProgress) error
	Update(ctx context.Context, progress *models.SpecializationProgress) error
	List(ctx context.Context, specialization string) ([]models.SpecializationProgress, error)
	CreateHistory(ctx context.Context, history *models.ProgressionHistory) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) WithTx(tx *gorm.DB) ProgressRepository {
	return &progressRepository{db: tx}
}

func (r *progressRepository) GetByUserAndSpecialization(ctx context.Context, userID uint, specialization string) (models.SpecializationProgress, error) {
	var progress models.SpecializationProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("specialization = ?", specialization).
		First(&progress).Error; err != nil {
		return models.SpecializationProgress{}, err
	}
	return progress, nil
}

func (r *progressRepository) GetByUserAndSpecializationForUpdate(ctx context.Context, userID uint, specialization string) (models.SpecializationProgress, error) {
	var progress models.SpecializationProgress
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Where("specialization = ?", specialization).
		First(&progress).Error; err != nil {
		return models.SpecializationProgress{}, err
	}
	return progress, nil
}

func (r *progressRepository) Create(ctx context.Context, progress *models.SpecializationProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *progressRepository) Update(ctx context.Context, progress *models.SpecializationProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *progressRepository) List(ctx context.Context, specialization string) ([]models.SpecializationProgress, error) {
	query := r.db.WithContext(ctx).Model(&models.SpecializationProgress{})
	if specialization != "" {
		query = query.Where("specialization = ?", specialization)
	}

	var records []models.SpecializationProgress
	if err := query.Order("user_id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *progressRepository) CreateHistory(ctx context.Context, history *models.ProgressionHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}
