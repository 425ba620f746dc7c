package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/service"
	"github.com/classloop/classloop-api/internal/utils"
)

// PointsHandler exposes the caller's point ledger.
type PointsHandler struct {
	service service.PointsService
	logger  zerolog.Logger
}

// NewPointsHandler constructs the handler.
func NewPointsHandler(service service.PointsService, logger zerolog.Logger) *PointsHandler {
	return &PointsHandler{
		service: service,
		logger:  logger.With().Str("component", "points_handler").Logger(),
	}
}

// Register attaches ledger endpoints under /points.
func (h *PointsHandler) Register(router fiber.Router) {
	router.Get("/history", h.history)
	router.Get("/balance", h.balance)
}

func (h *PointsHandler) history(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.History(c.Context(), userIDFromContext(c), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "point history retrieved", entries)
}

func (h *PointsHandler) balance(c *fiber.Ctx) error {
	stored, ledger, err := h.service.AuditBalance(c.Context(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "balance retrieved", fiber.Map{
		"balance":    stored,
		"ledger_sum": ledger,
	})
}
