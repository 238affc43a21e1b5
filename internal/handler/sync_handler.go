package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/service"
	"github.com/noah-isme/liga-go-api/internal/utils"
)

// SyncHandler exposes progression reconciliation endpoints.
type SyncHandler struct {
	service service.SyncService
	logger  zerolog.Logger
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(service service.SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Register wires sync routes.
func (h *SyncHandler) Register(router fiber.Router) {
	router.Post("/progress-to-license", h.progressToLicense)
	router.Post("/license-to-progress", h.licenseToProgress)
	router.Get("/issues", h.listIssues)
	router.Post("/auto", h.autoSync)
}

type directionalSyncRequest struct {
	UserID         uint   `json:"user_id"`
	Specialization string `json:"specialization"`
}

func (h *SyncHandler) progressToLicense(c *fiber.Ctx) error {
	var payload directionalSyncRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.UserID == 0 || payload.Specialization == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user_id and specialization are required")
	}

	var syncedBy *uint
	if actor := userIDFromContext(c); actor > 0 {
		syncedBy = &actor
	}

	result, err := h.service.SyncProgressToLicense(c.Context(), payload.UserID, payload.Specialization, syncedBy)
	if err != nil {
		if errors.Is(err, service.ErrProgressNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "specialization progress not found")
		}
		h.logger.Error().Err(err).
			Uint("user_id", payload.UserID).
			Str("specialization", payload.Specialization).
			Msg("failed to sync progress to license")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to sync progress to license")
	}

	return utils.SendSuccess(c, "sync completed", result)
}

func (h *SyncHandler) licenseToProgress(c *fiber.Ctx) error {
	var payload directionalSyncRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.UserID == 0 || payload.Specialization == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user_id and specialization are required")
	}

	result, err := h.service.SyncLicenseToProgress(c.Context(), payload.UserID, payload.Specialization)
	if err != nil {
		if errors.Is(err, service.ErrLicenseNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "license not found")
		}
		h.logger.Error().Err(err).
			Uint("user_id", payload.UserID).
			Str("specialization", payload.Specialization).
			Msg("failed to sync license to progress")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to sync license to progress")
	}

	return utils.SendSuccess(c, "sync completed", result)
}

func (h *SyncHandler) listIssues(c *fiber.Ctx) error {
	issues, err := h.service.FindDesyncIssues(c.Context(), c.Query("specialization"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to scan for desync issues")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to scan for desync issues")
	}

	return utils.SendSuccess(c, "desync issues retrieved", fiber.Map{
		"issues": issues,
		"count":  len(issues),
	})
}

func (h *SyncHandler) autoSync(c *fiber.Ctx) error {
	var payload dto.AutoSyncRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if payload.SyncedBy == nil {
		if actor := userIDFromContext(c); actor > 0 {
			payload.SyncedBy = &actor
		}
	}

	report, err := h.service.AutoSyncAll(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedSyncDirection) {
			return utils.SendError(c, fiber.StatusBadRequest, "unsupported sync direction")
		}
		h.logger.Error().Err(err).Str("direction", payload.Direction).Msg("auto sync failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "auto sync failed")
	}

	return utils.SendSuccess(c, "auto sync completed", report)
}
