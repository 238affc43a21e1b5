package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// RewardRepository persists the skill reward ledger.
type RewardRepository interface {
	WithTx(tx *gorm.DB) RewardRepository
	FindBySource(ctx context.Context, userID uint, sourceType string, sourceID uint, skill string) (models.SkillReward, error)
	Create(ctx context.Context, reward *models.SkillReward) error
	ListByUser(ctx context.Context, userID uint) ([]models.SkillReward, error)
}

type rewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository instantiates the repository.
func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) WithTx(tx *gorm.DB) RewardRepository {
	return &rewardRepository{db: tx}
}

func (r *rewardRepository) FindBySource(ctx context.Context, userID uint, sourceType string, sourceID uint, skill string) (models.SkillReward, error) {
	var reward models.SkillReward
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("source_type = ?", sourceType).
		Where("source_id = ?", sourceID).
		Where("skill = ?", skill).
		First(&reward).Error; err != nil {
		return models.SkillReward{}, err
	}
	return reward, nil
}

func (r *rewardRepository) Create(ctx context.Context, reward *models.SkillReward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *rewardRepository) ListByUser(ctx context.Context, userID uint) ([]models.SkillReward, error) {
	var rewards []models.SkillReward
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}
