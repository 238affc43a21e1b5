package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/liga-go-api/internal/repository"
	"github.com/noah-isme/liga-go-api/internal/service"
	"github.com/noah-isme/liga-go-api/internal/utils"
)

// AuditHandler exposes the audit trail listing endpoint.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register wires audit routes.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	filter := repository.AuditFilter{
		Page:       page,
		PageSize:   pageSize,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}
	if actorID, err := parseQueryInt(c, "actor_id"); err == nil && actorID > 0 {
		id := uint(actorID)
		filter.ActorID = &id
	}
	if entityID, err := parseQueryInt(c, "entity_id"); err == nil && entityID > 0 {
		id := uint(entityID)
		filter.EntityID = &id
	}

	result, err := h.service.List(c.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list audit entries")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch audit trail")
	}

	return utils.SendSuccess(c, "audit entries retrieved", result)
}
