package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/service"
	"github.com/classloop/classloop-api/internal/utils"
)

// StandingsHandler serves the per-course standings board.
type StandingsHandler struct {
	service service.StandingsService
	logger  zerolog.Logger
}

// NewStandingsHandler constructs the handler.
func NewStandingsHandler(service service.StandingsService, logger zerolog.Logger) *StandingsHandler {
	return &StandingsHandler{
		service: service,
		logger:  logger.With().Str("component", "standings_handler").Logger(),
	}
}

// Register attaches the standings endpoint under /courses/:courseID.
func (h *StandingsHandler) Register(router fiber.Router) {
	router.Get("/standings", h.get)
}

func (h *StandingsHandler) get(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	standings, err := h.service.Get(c.Context(), courseID, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCourseNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "course not found")
		case errors.Is(err, service.ErrForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "forbidden")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return utils.SendSuccess(c, "standings retrieved", standings)
}
