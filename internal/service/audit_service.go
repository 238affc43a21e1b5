package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/repository"
)

// AuditActor represents the actor performing a tracked operation.
type AuditActor struct {
	ID   uint
	Role string
}

// AuditEntry captures the details required to persist one trail entry.
type AuditEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// AuditRecorder defines behaviour for appending to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) (dto.AuditResponse, error)
}

// AuditService exposes methods to query and persist audit trail entries.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, filter repository.AuditFilter) (dto.AuditListResponse, error)
}

type auditService struct {
	repo   repository.AuditRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.AuditRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) (dto.AuditResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.AuditResponse{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.AuditResponse{}, fmt.Errorf("entity type is required")
	}

	model := models.AuditRecord{
		ActorID:    entry.ActorID,
		ActorRole:  normalizeRole(entry.ActorRole),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist audit entry")
		return dto.AuditResponse{}, err
	}

	return dto.NewAuditResponse(model), nil
}

func (s *auditService) List(ctx context.Context, filter repository.AuditFilter) (dto.AuditListResponse, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	responses := make([]dto.AuditResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(filter.Page, 1),
		PageSize:   filter.PageSize,
		TotalItems: total,
	}
	if filter.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(filter.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AuditListResponse{Items: responses, Pagination: pagination}, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
