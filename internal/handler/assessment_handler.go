package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/service"
	"github.com/noah-isme/liga-go-api/internal/utils"
)

// AssessmentHandler exposes the skill assessment lifecycle endpoints.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler constructs an assessment handler.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register wires assessment routes.
func (h *AssessmentHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Post("/:id/validate", h.validate)
	router.Post("/:id/archive", h.archive)
	router.Get("/history", h.history)
	router.Get("/licenses/:licenseId/averages", h.currentAverages)
	router.Post("/licenses/:licenseId/averages/:skill/recalculate", h.recalculate)
}

func (h *AssessmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssessmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, created, err := h.service.Create(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		case errors.Is(err, service.ErrUnknownSkill):
			return utils.SendError(c, fiber.StatusBadRequest, "unrecognized skill")
		case errors.Is(err, service.ErrInvalidScore):
			return utils.SendError(c, fiber.StatusBadRequest, "points earned must be between zero and points total")
		case errors.Is(err, service.ErrLicenseNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "license not found")
		default:
			h.logger.Error().Err(err).Msg("failed to create assessment")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create assessment")
		}
	}

	if !created {
		return utils.SendSuccess(c, "assessment already recorded", response)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment recorded", response)
}

func (h *AssessmentHandler) validate(c *fiber.Ctx) error {
	assessmentID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assessment id")
	}

	validatedBy := userIDFromContext(c)
	if validatedBy == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	response, err := h.service.Validate(c.Context(), assessmentID, validatedBy)
	if err != nil {
		var transition *service.InvalidTransitionError
		switch {
		case errors.Is(err, service.ErrAssessmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assessment not found")
		case errors.As(err, &transition):
			return utils.SendError(c, fiber.StatusConflict, transition.Error())
		default:
			h.logger.Error().Err(err).Uint("assessment_id", assessmentID).Msg("failed to validate assessment")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to validate assessment")
		}
	}

	return utils.SendSuccess(c, "assessment validated", response)
}

func (h *AssessmentHandler) archive(c *fiber.Ctx) error {
	assessmentID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assessment id")
	}

	archivedBy := userIDFromContext(c)
	if archivedBy == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	response, err := h.service.Archive(c.Context(), assessmentID, archivedBy, payload.Reason)
	if err != nil {
		var transition *service.InvalidTransitionError
		switch {
		case errors.Is(err, service.ErrAssessmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assessment not found")
		case errors.As(err, &transition):
			return utils.SendError(c, fiber.StatusConflict, transition.Error())
		default:
			h.logger.Error().Err(err).Uint("assessment_id", assessmentID).Msg("failed to archive assessment")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to archive assessment")
		}
	}

	return utils.SendSuccess(c, "assessment archived", response)
}

func (h *AssessmentHandler) history(c *fiber.Ctx) error {
	licenseID, err := parseQueryInt(c, "license_id")
	if err != nil || licenseID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid license id")
	}

	req := dto.AssessmentHistoryRequest{
		LicenseID: uint(licenseID),
		Skill:     c.Query("skill"),
		Status:    c.Query("status"),
	}

	responses, err := h.service.History(c.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrLicenseNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "license not found")
		}
		h.logger.Error().Err(err).Msg("failed to list assessment history")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch assessment history")
	}

	return utils.SendSuccess(c, "assessment history retrieved", responses)
}

func (h *AssessmentHandler) currentAverages(c *fiber.Ctx) error {
	licenseID, err := parseParamUint(c, "licenseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid license id")
	}

	response, err := h.service.CurrentAverages(c.Context(), licenseID)
	if err != nil {
		if errors.Is(err, service.ErrLicenseNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "license not found")
		}
		h.logger.Error().Err(err).Uint("license_id", licenseID).Msg("failed to fetch skill averages")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch skill averages")
	}

	return utils.SendSuccess(c, "skill averages retrieved", response)
}

func (h *AssessmentHandler) recalculate(c *fiber.Ctx) error {
	licenseID, err := parseParamUint(c, "licenseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid license id")
	}
	skill := c.Params("skill")

	average, err := h.service.RecalculateSkillAverage(c.Context(), licenseID, skill)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownSkill):
			return utils.SendError(c, fiber.StatusBadRequest, "unrecognized skill")
		case errors.Is(err, service.ErrLicenseNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "license not found")
		default:
			h.logger.Error().Err(err).Uint("license_id", licenseID).Str("skill", skill).Msg("failed to recalculate skill average")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to recalculate skill average")
		}
	}

	return utils.SendSuccess(c, "skill average recalculated", fiber.Map{
		"license_id": licenseID,
		"skill":      skill,
		"average":    average,
	})
}
