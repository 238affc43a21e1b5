package dto

import (
	"time"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// AuditResponse is the API projection of an audit trail entry.
type AuditResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewAuditResponse converts the model into its API projection.
func NewAuditResponse(entry models.AuditRecord) AuditResponse {
	return AuditResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
}

// PaginationMeta describes paging information for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AuditListResponse carries a page of audit entries.
type AuditListResponse struct {
	Items      []AuditResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}
