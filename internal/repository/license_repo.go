package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// LicenseRepository exposes persistence for the license aggregate. GetForUpdate
// variants take an exclusive row lock and must only be called inside a
// transaction obtained via WithTx.
type LicenseRepository interface {
	WithTx(tx *gorm.DB) LicenseRepository
	GetByID(ctx context.Context, id uint) (models.License, error)
	GetByUserAndSpecialization(ctx context.Context, userID uint, specialization string) (models.License, error)
	GetForUpdate(ctx context.Context, id uint) (models.License, error)
	GetByUserAndSpecializationForUpdate(ctx context.Context, userID uint, specialization string) (models.License, error)
	Create(ctx context.Context, license *models.License) error
	Update(ctx context.Context, license *models.License) error
	UpdateSkillAverages(ctx context.Context, id uint, averages models.SkillMap) error
	UpdateLevel(ctx context.Context, id uint, level, maxAchieved int) error
	List(ctx context.Context, specialization string) ([]models.License, error)
	ListByUser(ctx context.Context, userID uint) ([]models.License, error)
}

type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository instantiates the repository.
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

func (r *licenseRepository) WithTx(tx *gorm.DB) LicenseRepository {
	return &licenseRepository{db: tx}
}

func (r *licenseRepository) GetByID(ctx context.Context, id uint) (models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).First(&license, id).Error; err != nil {
		return models.License{}, err
	}
	return license, nil
}

func (r *licenseRepository) GetByUserAndSpecialization(ctx context.Context, userID uint, specialization string) (models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("specialization = ?", specialization).
		First(&license).Error; err != nil {
		return models.License{}, err
	}
	return license, nil
}

func (r *licenseRepository) GetForUpdate(ctx context.Context, id uint) (models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&license, id).Error; err != nil {
		return models.License{}, err
	}
	return license, nil
}

func (r *licenseRepository) GetByUserAndSpecializationForUpdate(ctx context.Context, userID uint, specialization string) (models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Where("specialization = ?", specialization).
		First(&license).Error; err != nil {
		return models.License{}, err
	}
	return license, nil
}

func (r *licenseRepository) Create(ctx context.Context, license *models.License) error {
	return r.db.WithContext(ctx).Create(license).Error
}

func (r *licenseRepository) Update(ctx context.Context, license *models.License) error {
	return r.db.WithContext(ctx).Save(license).Error
}

func (r *licenseRepository) UpdateSkillAverages(ctx context.Context, id uint, averages models.SkillMap) error {
	return r.db.WithContext(ctx).Model(&models.License{}).
		Where("id = ?", id).
		Update("skill_averages", averages).Error
}

func (r *licenseRepository) UpdateLevel(ctx context.Context, id uint, level, maxAchieved int) error {
	return r.db.WithContext(ctx).Model(&models.License{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_level":      level,
			"max_achieved_level": maxAchieved,
		}).Error
}

func (r *licenseRepository) List(ctx context.Context, specialization string) ([]models.License, error) {
	query := r.db.WithContext(ctx).Model(&models.License{})
	if specialization != "" {
		query = query.Where("specialization = ?", specialization)
	}

	var licenses []models.License
	if err := query.Order("user_id ASC").Find(&licenses).Error; err != nil {
		return nil, err
	}
	return licenses, nil
}

func (r *licenseRepository) ListByUser(ctx context.Context, userID uint) ([]models.License, error) {
	var licenses []models.License
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("specialization ASC").
		Find(&licenses).Error; err != nil {
		return nil, err
	}
	return licenses, nil
}
