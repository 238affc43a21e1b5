package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// AssessmentHistoryFilter narrows assessment history queries.
type AssessmentHistoryFilter struct {
	LicenseID uint
	Skill     string
	Status    string
}

// AssessmentRepository defines data operations for skill assessments.
type AssessmentRepository interface {
	WithTx(tx *gorm.DB) AssessmentRepository
	GetByID(ctx context.Context, id uint) (models.SkillAssessment, error)
	GetForUpdate(ctx context.Context, id uint) (models.SkillAssessment, error)
	Create(ctx context.Context, assessment *models.SkillAssessment) error
	Update(ctx context.Context, assessment *models.SkillAssessment) error
	ListActive(ctx context.Context, licenseID uint, skill string) ([]models.SkillAssessment, error)
	ListBySkill(ctx context.Context, licenseID uint, skill string) ([]models.SkillAssessment, error)
	ListHistory(ctx context.Context, filter AssessmentHistoryFilter) ([]models.SkillAssessment, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) WithTx(tx *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: tx}
}

func (r *assessmentRepository) GetByID(ctx context.Context, id uint) (models.SkillAssessment, error) {
	var assessment models.SkillAssessment
	if err := r.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		return models.SkillAssessment{}, err
	}
	return assessment, nil
}

func (r *assessmentRepository) GetForUpdate(ctx context.Context, id uint) (models.SkillAssessment, error) {
	var assessment models.SkillAssessment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assessment, id).Error; err != nil {
		return models.SkillAssessment{}, err
	}
	return assessment, nil
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *models.SkillAssessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *assessmentRepository) Update(ctx context.Context, assessment *models.SkillAssessment) error {
	return r.db.WithContext(ctx).Save(assessment).Error
}

// ListActive returns the non-archived assessments for a license and skill.
func (r *assessmentRepository) ListActive(ctx context.Context, licenseID uint, skill string) ([]models.SkillAssessment, error) {
	var assessments []models.SkillAssessment
	if err := r.db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Where("skill = ?", skill).
		Where("status <> ?", models.AssessmentStatusArchived).
		Order("created_at ASC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}

// ListBySkill returns every assessment for a license and skill regardless of
// state, used for the running-average recalculation.
func (r *assessmentRepository) ListBySkill(ctx context.Context, licenseID uint, skill string) ([]models.SkillAssessment, error) {
	var assessments []models.SkillAssessment
	if err := r.db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Where("skill = ?", skill).
		Order("assessed_at ASC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepository) ListHistory(ctx context.Context, filter AssessmentHistoryFilter) ([]models.SkillAssessment, error) {
	query := r.db.WithContext(ctx).Model(&models.SkillAssessment{}).
		Where("license_id = ?", filter.LicenseID)

	if filter.Skill != "" {
		query = query.Where("skill = ?", filter.Skill)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assessments []models.SkillAssessment
	if err := query.Order("assessed_at DESC, id DESC").Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}
