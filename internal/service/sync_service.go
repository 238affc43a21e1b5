package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/observability"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

// ErrProgressNotFound indicates the gameplay progress record does not exist.
var ErrProgressNotFound = errors.New("specialization progress not found")

// ErrUnsupportedSyncDirection indicates an unknown reconciliation direction.
var ErrUnsupportedSyncDirection = errors.New("unsupported sync direction")

// SyncService reconciles the two independently written progression records.
// Each invocation syncs in exactly one declared direction; the scan never
// mutates anything.
type SyncService interface {
	SyncProgressToLicense(ctx context.Context, userID uint, specialization string, syncedBy *uint) (dto.SyncResult, error)
	SyncLicenseToProgress(ctx context.Context, userID uint, specialization string) (dto.SyncResult, error)
	FindDesyncIssues(ctx context.Context, specialization string) ([]dto.DesyncIssue, error)
	AutoSyncAll(ctx context.Context, req dto.AutoSyncRequest) (dto.AutoSyncReport, error)
}

type syncService struct {
	db       *gorm.DB
	progress repository.ProgressRepository
	licenses repository.LicenseRepository
	locks    *observability.LockTracker
	logger   zerolog.Logger
}

// NewSyncService constructs the reconciliation service.
func NewSyncService(db *gorm.DB, progress repository.ProgressRepository, licenses repository.LicenseRepository, locks *observability.LockTracker, logger zerolog.Logger) SyncService {
	return &syncService{
		db:       db,
		progress: progress,
		licenses: licenses,
		locks:    locks,
		logger:   logger.With().Str("component", "sync_service").Logger(),
	}
}

// SyncProgressToLicense treats the gameplay progress as authoritative.
func (s *syncService) SyncProgressToLicense(ctx context.Context, userID uint, specialization string, syncedBy *uint) (dto.SyncResult, error) {
	tracer := otel.Tracer("github.com/noah-isme/liga-go-api/internal/service/sync")
	ctx, span := tracer.Start(ctx, "sync.progress_to_license")
	span.SetAttributes(
		attribute.Int64("sync.user_id", int64(userID)),
		attribute.String("sync.specialization", specialization),
	)
	defer span.End()

	var result dto.SyncResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress, err := s.progress.WithTx(tx).GetByUserAndSpecialization(ctx, userID, specialization)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProgressNotFound
			}
			return err
		}

		licenses := s.licenses.WithTx(tx)
		license, err := licenses.GetByUserAndSpecialization(ctx, userID, specialization)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := models.License{
				UserID:           userID,
				Specialization:   specialization,
				CurrentLevel:     progress.Level,
				MaxAchievedLevel: progress.Level,
				Active:           true,
			}
			if err := licenses.Create(ctx, &created); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, tx, userID, specialization, 0, progress.Level, models.ProgressionSourceSyncToLicense, syncedBy); err != nil {
				return err
			}
			result = dto.SyncResult{
				Action:         dto.SyncActionCreated,
				UserID:         userID,
				Specialization: specialization,
				PreviousLevel:  0,
				NewLevel:       progress.Level,
			}
			return nil
		}
		if err != nil {
			return err
		}

		// Re-read under our own lock before deciding anything.
		lock := s.locks.Start("sync", "license", license.ID, "sync_progress_to_license")
		license, err = licenses.GetForUpdate(ctx, license.ID)
		if err != nil {
			return err
		}
		lock.Acquired()
		defer lock.Release()

		if license.CurrentLevel == progress.Level {
			result = dto.SyncResult{
				Action:         dto.SyncActionInSync,
				UserID:         userID,
				Specialization: specialization,
				PreviousLevel:  license.CurrentLevel,
				NewLevel:       license.CurrentLevel,
			}
			return nil
		}

		from := license.CurrentLevel
		maxAchieved := license.MaxAchievedLevel
		if progress.Level > maxAchieved {
			maxAchieved = progress.Level
		}
		if err := licenses.UpdateLevel(ctx, license.ID, progress.Level, maxAchieved); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, userID, specialization, from, progress.Level, models.ProgressionSourceSyncToLicense, syncedBy); err != nil {
			return err
		}

		result = dto.SyncResult{
			Action:         dto.SyncActionUpdated,
			UserID:         userID,
			Specialization: specialization,
			PreviousLevel:  from,
			NewLevel:       progress.Level,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return dto.SyncResult{}, err
	}

	span.SetAttributes(attribute.String("sync.action", result.Action))
	return result, nil
}

// SyncLicenseToProgress treats the license as authoritative. Only the level
// field of the progress record is touched.
func (s *syncService) SyncLicenseToProgress(ctx context.Context, userID uint, specialization string) (dto.SyncResult, error) {
	var result dto.SyncResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		license, err := s.licenses.WithTx(tx).GetByUserAndSpecialization(ctx, userID, specialization)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return err
		}

		progressRepo := s.progress.WithTx(tx)
		progress, err := progressRepo.GetByUserAndSpecialization(ctx, userID, specialization)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := models.SpecializationProgress{
				UserID:         userID,
				Specialization: specialization,
				Level:          license.CurrentLevel,
			}
			if err := progressRepo.Create(ctx, &created); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, tx, userID, specialization, 0, license.CurrentLevel, models.ProgressionSourceSyncToProgress, nil); err != nil {
				return err
			}
			result = dto.SyncResult{
				Action:         dto.SyncActionCreated,
				UserID:         userID,
				Specialization: specialization,
				PreviousLevel:  0,
				NewLevel:       license.CurrentLevel,
			}
			return nil
		}
		if err != nil {
			return err
		}

		lock := s.locks.Start("sync", "specialization_progress", progress.ID, "sync_license_to_progress")
		progress, err = progressRepo.GetByUserAndSpecializationForUpdate(ctx, userID, specialization)
		if err != nil {
			return err
		}
		lock.Acquired()
		defer lock.Release()

		if progress.Level == license.CurrentLevel {
			result = dto.SyncResult{
				Action:         dto.SyncActionInSync,
				UserID:         userID,
				Specialization: specialization,
				PreviousLevel:  progress.Level,
				NewLevel:       progress.Level,
			}
			return nil
		}

		from := progress.Level
		progress.Level = license.CurrentLevel
		if err := progressRepo.Update(ctx, &progress); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, userID, specialization, from, license.CurrentLevel, models.ProgressionSourceSyncToProgress, nil); err != nil {
			return err
		}

		result = dto.SyncResult{
			Action:         dto.SyncActionUpdated,
			UserID:         userID,
			Specialization: specialization,
			PreviousLevel:  from,
			NewLevel:       license.CurrentLevel,
		}
		return nil
	})
	if err != nil {
		return dto.SyncResult{}, err
	}
	return result, nil
}

// FindDesyncIssues scans progress and license records per (user,
// specialization) and reports every divergence. Read-only.
func (s *syncService) FindDesyncIssues(ctx context.Context, specialization string) ([]dto.DesyncIssue, error) {
	progressRecords, err := s.progress.List(ctx, specialization)
	if err != nil {
		return nil, err
	}
	licenses, err := s.licenses.List(ctx, specialization)
	if err != nil {
		return nil, err
	}

	type key struct {
		userID         uint
		specialization string
	}

	licenseByKey := make(map[key]models.License, len(licenses))
	for _, license := range licenses {
		licenseByKey[key{license.UserID, license.Specialization}] = license
	}

	issues := []dto.DesyncIssue{}
	seen := map[key]bool{}

	for _, progress := range progressRecords {
		k := key{progress.UserID, progress.Specialization}
		seen[k] = true

		license, ok := licenseByKey[k]
		if !ok {
			level := progress.Level
			issues = append(issues, dto.DesyncIssue{
				UserID:               progress.UserID,
				Specialization:       progress.Specialization,
				Type:                 dto.DesyncMissingLicense,
				ProgressLevel:        &level,
				RecommendedDirection: dto.SyncDirectionProgressToLicense,
			})
			continue
		}

		if license.CurrentLevel != progress.Level {
			progressLevel := progress.Level
			licenseLevel := license.CurrentLevel
			issues = append(issues, dto.DesyncIssue{
				UserID:               progress.UserID,
				Specialization:       progress.Specialization,
				Type:                 dto.DesyncLevelMismatch,
				ProgressLevel:        &progressLevel,
				LicenseLevel:         &licenseLevel,
				RecommendedDirection: dto.SyncDirectionProgressToLicense,
			})
		}
	}

	for _, license := range licenses {
		k := key{license.UserID, license.Specialization}
		if seen[k] {
			continue
		}
		level := license.CurrentLevel
		issues = append(issues, dto.DesyncIssue{
			UserID:               license.UserID,
			Specialization:       license.Specialization,
			Type:                 dto.DesyncMissingProgress,
			LicenseLevel:         &level,
			RecommendedDirection: dto.SyncDirectionLicenseToProgress,
		})
	}

	return issues, nil
}

// AutoSyncAll batch-applies one sync direction to every detected issue. A
// single user's failure is recorded and never aborts the rest of the batch.
func (s *syncService) AutoSyncAll(ctx context.Context, req dto.AutoSyncRequest) (dto.AutoSyncReport, error) {
	if req.Direction != dto.SyncDirectionProgressToLicense && req.Direction != dto.SyncDirectionLicenseToProgress {
		return dto.AutoSyncReport{}, ErrUnsupportedSyncDirection
	}

	issues, err := s.FindDesyncIssues(ctx, req.Specialization)
	if err != nil {
		return dto.AutoSyncReport{}, err
	}

	report := dto.AutoSyncReport{
		Direction: req.Direction,
		DryRun:    req.DryRun,
		Issues:    issues,
		Synced:    []dto.SyncResult{},
		Failures:  []dto.SyncFailure{},
	}

	if req.DryRun {
		return report, nil
	}

	for _, issue := range issues {
		var (
			result  dto.SyncResult
			syncErr error
		)
		switch req.Direction {
		case dto.SyncDirectionProgressToLicense:
			result, syncErr = s.SyncProgressToLicense(ctx, issue.UserID, issue.Specialization, req.SyncedBy)
		case dto.SyncDirectionLicenseToProgress:
			result, syncErr = s.SyncLicenseToProgress(ctx, issue.UserID, issue.Specialization)
		}

		if syncErr != nil {
			s.logger.Warn().Err(syncErr).
				Uint("user_id", issue.UserID).
				Str("specialization", issue.Specialization).
				Msg("auto sync failed for user")
			report.Failures = append(report.Failures, dto.SyncFailure{
				UserID:         issue.UserID,
				Specialization: issue.Specialization,
				Error:          syncErr.Error(),
			})
			continue
		}
		report.Synced = append(report.Synced, result)
	}

	return report, nil
}

func (s *syncService) appendHistory(ctx context.Context, tx *gorm.DB, userID uint, specialization string, from, to int, source string, syncedBy *uint) error {
	history := models.ProgressionHistory{
		UserID:         userID,
		Specialization: specialization,
		FromLevel:      from,
		ToLevel:        to,
		Source:         source,
		SyncedBy:       syncedBy,
		Metadata: datatypes.JSONMap{
			"reason": "level reconciliation",
		},
	}
	return s.progress.WithTx(tx).CreateHistory(ctx, &history)
}
