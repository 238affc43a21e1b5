package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/observability"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

// ErrLicenseNotFound indicates the referenced license does not exist.
var ErrLicenseNotFound = errors.New("license not found")

// ErrAssessmentNotFound indicates the referenced assessment does not exist.
var ErrAssessmentNotFound = errors.New("assessment not found")

// ErrUnknownSkill indicates the skill identifier is not in the catalog.
var ErrUnknownSkill = errors.New("unrecognized skill")

// ErrInvalidScore indicates points earned is outside [0, points total].
var ErrInvalidScore = errors.New("points earned must be between zero and points total")

// InvalidTransitionError reports a rejected lifecycle move.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not permitted", e.From, e.To)
}

// AssessmentService drives the skill assessment lifecycle.
type AssessmentService interface {
	Create(ctx context.Context, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, bool, error)
	Validate(ctx context.Context, assessmentID, validatedBy uint) (dto.AssessmentResponse, error)
	Archive(ctx context.Context, assessmentID, archivedBy uint, reason string) (dto.AssessmentResponse, error)
	RecalculateSkillAverage(ctx context.Context, licenseID uint, skill string) (float64, error)
	History(ctx context.Context, req dto.AssessmentHistoryRequest) ([]dto.AssessmentResponse, error)
	CurrentAverages(ctx context.Context, licenseID uint) (dto.CurrentAveragesResponse, error)
}

type assessmentService struct {
	db          *gorm.DB
	licenses    repository.LicenseRepository
	assessments repository.AssessmentRepository
	users       repository.UserRepository
	audit       AuditRecorder
	validator   *validator.Validate
	locks       *observability.LockTracker
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssessmentService constructs the assessment lifecycle service.
func NewAssessmentService(db *gorm.DB, licenses repository.LicenseRepository, assessments repository.AssessmentRepository, users repository.UserRepository, audit AuditRecorder, validate *validator.Validate, locks *observability.LockTracker, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) AssessmentService {
	return &assessmentService{
		db:          db,
		licenses:    licenses,
		assessments: assessments,
		users:       users,
		audit:       audit,
		validator:   validate,
		locks:       locks,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "assessment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assessmentService) Create(ctx context.Context, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, bool, error) {
	tracer := otel.Tracer("github.com/noah-isme/liga-go-api/internal/service/assessment")
	ctx, span := tracer.Start(ctx, "assessment.create")
	span.SetAttributes(
		attribute.Int64("assessment.license_id", int64(payload.LicenseID)),
		attribute.String("assessment.skill", payload.Skill),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AssessmentResponse{}, false, err
	}
	if !models.IsRecognizedSkill(payload.Skill) {
		return dto.AssessmentResponse{}, false, ErrUnknownSkill
	}
	if payload.PointsEarned < 0 || payload.PointsEarned > payload.PointsTotal || payload.PointsTotal <= 0 {
		return dto.AssessmentResponse{}, false, ErrInvalidScore
	}

	result, created, err := s.createLocked(ctx, payload)
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent creator slipped past the lock; the transaction was
		// rolled back, so the winner's row is what the caller gets.
		if existing, findErr := s.findActiveDuplicate(ctx, payload); findErr == nil {
			return dto.NewAssessmentResponse(existing), false, nil
		}
		span.RecordError(err)
		return dto.AssessmentResponse{}, false, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment_create_failed")
		return dto.AssessmentResponse{}, false, err
	}

	if created {
		s.invalidateAverages(ctx, payload.LicenseID)
		s.recordAudit(ctx, payload.AssessorID, "assessment.created", result.ID, map[string]interface{}{
			"license_id": payload.LicenseID,
			"skill":      payload.Skill,
			"percentage": result.Percentage,
		})
	}

	span.SetAttributes(attribute.Bool("assessment.created", created))
	return dto.NewAssessmentResponse(result), created, nil
}

func (s *assessmentService) createLocked(ctx context.Context, payload dto.AssessmentCreateRequest) (models.SkillAssessment, bool, error) {
	var result models.SkillAssessment
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := s.locks.Start("assessment", "license", payload.LicenseID, "create_assessment")
		license, err := s.licenses.WithTx(tx).GetForUpdate(ctx, payload.LicenseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return err
		}
		lock.Acquired()
		defer lock.Release()

		assessments := s.assessments.WithTx(tx)
		active, err := assessments.ListActive(ctx, payload.LicenseID, payload.Skill)
		if err != nil {
			return err
		}

		// Duplicate instructor submission: same score, still active.
		for _, existing := range active {
			if existing.MatchesScore(payload.Skill, payload.PointsEarned, payload.PointsTotal) {
				result = existing
				return nil
			}
		}

		now := s.now()
		for i := range active {
			prior := active[i]
			prior.PreviousStatus = prior.Status
			prior.Status = models.AssessmentStatusArchived
			prior.StatusChangedAt = &now
			prior.StatusChangedBy = &payload.AssessorID
			prior.ArchivedAt = &now
			prior.ArchivedBy = &payload.AssessorID
			prior.ArchiveReason = "superseded by newer assessment"
			if err := assessments.Update(ctx, &prior); err != nil {
				return err
			}
		}

		category, _ := models.SkillCategory(payload.Skill)
		tenure, err := s.assessorTenureDays(ctx, tx, payload.AssessorID)
		if err != nil {
			return err
		}

		assessment := models.SkillAssessment{
			LicenseID:          payload.LicenseID,
			Skill:              payload.Skill,
			PointsEarned:       payload.PointsEarned,
			PointsTotal:        payload.PointsTotal,
			Percentage:         percentage(payload.PointsEarned, payload.PointsTotal),
			AssessorID:         payload.AssessorID,
			AssessedAt:         now,
			Notes:              payload.Notes,
			Status:             models.AssessmentStatusAssessed,
			PreviousStatus:     models.AssessmentStatusNotAssessed,
			RequiresValidation: determineValidationRequirement(license.CurrentLevel, tenure, category),
		}
		if err := assessments.Create(ctx, &assessment); err != nil {
			return err
		}

		if err := s.writeSkillAverage(ctx, tx, license, payload.Skill); err != nil {
			return err
		}

		result = assessment
		created = true
		return nil
	})

	return result, created, err
}

func (s *assessmentService) Validate(ctx context.Context, assessmentID, validatedBy uint) (dto.AssessmentResponse, error) {
	var result models.SkillAssessment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := s.locks.Start("assessment", "skill_assessment", assessmentID, "validate_assessment")
		assessment, err := s.assessments.WithTx(tx).GetForUpdate(ctx, assessmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssessmentNotFound
			}
			return err
		}
		lock.Acquired()
		defer lock.Release()

		// Repeated validation is a no-op, not an error.
		if assessment.Status == models.AssessmentStatusValidated {
			result = assessment
			return nil
		}

		if !models.CanTransitionAssessment(assessment.Status, models.AssessmentStatusValidated) {
			return &InvalidTransitionError{From: assessment.Status, To: models.AssessmentStatusValidated}
		}

		now := s.now()
		assessment.PreviousStatus = assessment.Status
		assessment.Status = models.AssessmentStatusValidated
		assessment.StatusChangedAt = &now
		assessment.StatusChangedBy = &validatedBy
		assessment.ValidatedBy = &validatedBy
		assessment.ValidatedAt = &now
		if err := s.assessments.WithTx(tx).Update(ctx, &assessment); err != nil {
			return err
		}

		result = assessment
		return nil
	})
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	s.recordAudit(ctx, validatedBy, "assessment.validated", result.ID, map[string]interface{}{
		"license_id": result.LicenseID,
		"skill":      result.Skill,
	})

	return dto.NewAssessmentResponse(result), nil
}

func (s *assessmentService) Archive(ctx context.Context, assessmentID, archivedBy uint, reason string) (dto.AssessmentResponse, error) {
	var result models.SkillAssessment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := s.locks.Start("assessment", "skill_assessment", assessmentID, "archive_assessment")
		assessment, err := s.assessments.WithTx(tx).GetForUpdate(ctx, assessmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssessmentNotFound
			}
			return err
		}
		lock.Acquired()
		defer lock.Release()

		if assessment.IsArchived() {
			result = assessment
			return nil
		}

		if !models.CanTransitionAssessment(assessment.Status, models.AssessmentStatusArchived) {
			return &InvalidTransitionError{From: assessment.Status, To: models.AssessmentStatusArchived}
		}

		now := s.now()
		assessment.PreviousStatus = assessment.Status
		assessment.Status = models.AssessmentStatusArchived
		assessment.StatusChangedAt = &now
		assessment.StatusChangedBy = &archivedBy
		assessment.ArchivedBy = &archivedBy
		assessment.ArchivedAt = &now
		assessment.ArchiveReason = reason
		if err := s.assessments.WithTx(tx).Update(ctx, &assessment); err != nil {
			return err
		}

		result = assessment
		return nil
	})
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	s.recordAudit(ctx, archivedBy, "assessment.archived", result.ID, map[string]interface{}{
		"license_id": result.LicenseID,
		"skill":      result.Skill,
		"reason":     reason,
	})

	return dto.NewAssessmentResponse(result), nil
}

// RecalculateSkillAverage recomputes the simple mean over every assessment of
// the (license, skill) pair and writes it back under an exclusive license lock.
func (s *assessmentService) RecalculateSkillAverage(ctx context.Context, licenseID uint, skill string) (float64, error) {
	if !models.IsRecognizedSkill(skill) {
		return 0, ErrUnknownSkill
	}

	var average float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := s.locks.Start("assessment", "license", licenseID, "recalculate_skill_average")
		license, err := s.licenses.WithTx(tx).GetForUpdate(ctx, licenseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return err
		}
		lock.Acquired()
		defer lock.Release()

		value, err := s.applySkillAverage(ctx, tx, license, skill)
		if err != nil {
			return err
		}
		average = value
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidateAverages(ctx, licenseID)
	return average, nil
}

func (s *assessmentService) History(ctx context.Context, req dto.AssessmentHistoryRequest) ([]dto.AssessmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.licenses.GetByID(ctx, req.LicenseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}

	assessments, err := s.assessments.ListHistory(ctx, repository.AssessmentHistoryFilter{
		LicenseID: req.LicenseID,
		Skill:     req.Skill,
		Status:    req.Status,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, dto.NewAssessmentResponse(assessment))
	}
	return responses, nil
}

func (s *assessmentService) CurrentAverages(ctx context.Context, licenseID uint) (dto.CurrentAveragesResponse, error) {
	cacheKey := averagesCacheKey(licenseID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.CurrentAveragesResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("license_id", licenseID).Msg("averages cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read averages cache")
		}
	}

	license, err := s.licenses.GetByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CurrentAveragesResponse{}, ErrLicenseNotFound
		}
		return dto.CurrentAveragesResponse{}, err
	}

	response := dto.NewCurrentAveragesResponse(license)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store averages cache")
			}
		}
	}

	return response, nil
}

// writeSkillAverage recomputes the mean and merges it into the license skill
// map without clobbering tournament-derived fields.
func (s *assessmentService) writeSkillAverage(ctx context.Context, tx *gorm.DB, license models.License, skill string) error {
	_, err := s.applySkillAverage(ctx, tx, license, skill)
	return err
}

func (s *assessmentService) applySkillAverage(ctx context.Context, tx *gorm.DB, license models.License, skill string) (float64, error) {
	assessments, err := s.assessments.WithTx(tx).ListBySkill(ctx, license.ID, skill)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, assessment := range assessments {
		total += assessment.Percentage
	}
	average := 0.0
	if len(assessments) > 0 {
		average = total / float64(len(assessments))
	}

	averages := license.SkillAverages
	if averages == nil {
		averages = models.SkillMap{}
	}

	existing, ok := averages[skill]
	if ok && existing.Structured {
		// The reward pipeline owns the other sub-fields; only the
		// assessment baseline may change here.
		existing.Baseline = average
		averages[skill] = existing
	} else {
		averages[skill] = models.ScalarRating(average)
	}

	if err := s.licenses.WithTx(tx).UpdateSkillAverages(ctx, license.ID, averages); err != nil {
		return 0, err
	}
	return average, nil
}

func (s *assessmentService) findActiveDuplicate(ctx context.Context, payload dto.AssessmentCreateRequest) (models.SkillAssessment, error) {
	active, err := s.assessments.ListActive(ctx, payload.LicenseID, payload.Skill)
	if err != nil {
		return models.SkillAssessment{}, err
	}
	for _, existing := range active {
		if existing.MatchesScore(payload.Skill, payload.PointsEarned, payload.PointsTotal) {
			return existing, nil
		}
	}
	return models.SkillAssessment{}, gorm.ErrRecordNotFound
}

func (s *assessmentService) assessorTenureDays(ctx context.Context, tx *gorm.DB, assessorID uint) (int, error) {
	assessor, err := s.users.WithTx(tx).GetByID(ctx, assessorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return int(s.now().Sub(assessor.CreatedAt).Hours() / 24), nil
}

func (s *assessmentService) recordAudit(ctx context.Context, actorID uint, action string, entityID uint, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	id := entityID
	_, _ = s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		ActorRole:  "instructor",
		Action:     action,
		EntityType: "skill_assessment",
		EntityID:   &id,
		Metadata:   metadata,
	})
}

func (s *assessmentService) invalidateAverages(ctx context.Context, licenseID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, averagesCacheKey(licenseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("license_id", licenseID).Msg("failed to invalidate averages cache")
	}
}

func averagesCacheKey(licenseID uint) string {
	return fmt.Sprintf("averages:license:%d", licenseID)
}

func percentage(earned, total int) float64 {
	return float64(earned) / float64(total) * 100
}

// determineValidationRequirement decides whether a new assessment needs a
// secondary validation pass. Pure function; it never gates a transition.
func determineValidationRequirement(licenseLevel, assessorTenureDays int, skillCategory string) bool {
	if assessorTenureDays < 90 {
		return true
	}
	if licenseLevel >= 4 {
		return true
	}
	if skillCategory == models.SkillCategoryGoalkeeping && licenseLevel >= 2 {
		return true
	}
	return false
}
