package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/liga-go-api/internal/dto"
	"github.com/noah-isme/liga-go-api/internal/service"
	"github.com/noah-isme/liga-go-api/internal/utils"
)

// RewardHandler exposes tournament participation and skill reward endpoints.
type RewardHandler struct {
	service service.RewardService
	logger  zerolog.Logger
}

// NewRewardHandler constructs a reward handler.
func NewRewardHandler(service service.RewardService, logger zerolog.Logger) *RewardHandler {
	return &RewardHandler{
		service: service,
		logger:  logger.With().Str("component", "reward_handler").Logger(),
	}
}

// Register wires reward routes.
func (h *RewardHandler) Register(router fiber.Router) {
	router.Post("/participations", h.recordParticipation)
	router.Post("/skill-points", h.awardSkillPoints)
}

func (h *RewardHandler) recordParticipation(c *fiber.Ctx) error {
	var payload dto.RecordParticipationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.RecordTournamentParticipation(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		case errors.Is(err, service.ErrUnknownSkill):
			return utils.SendError(c, fiber.StatusBadRequest, "unrecognized skill")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrTournamentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "tournament not found")
		default:
			h.logger.Error().Err(err).
				Uint("user_id", payload.UserID).
				Uint("tournament_id", payload.TournamentID).
				Msg("failed to record tournament participation")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to record participation")
		}
	}

	return utils.SendSuccess(c, "tournament participation recorded", response)
}

func (h *RewardHandler) awardSkillPoints(c *fiber.Ctx) error {
	var payload dto.AwardSkillPointsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, created, err := h.service.AwardSkillPoints(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		case errors.Is(err, service.ErrUnknownSkill):
			return utils.SendError(c, fiber.StatusBadRequest, "unrecognized skill")
		case errors.Is(err, service.ErrZeroPoints):
			return utils.SendError(c, fiber.StatusBadRequest, "points must be non-zero")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			h.logger.Error().Err(err).
				Uint("user_id", payload.UserID).
				Str("skill", payload.Skill).
				Msg("failed to award skill points")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to award skill points")
		}
	}

	if !created {
		return utils.SendSuccess(c, "skill points already awarded", response)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "skill points awarded", response)
}
