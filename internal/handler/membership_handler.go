package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/repository"
	"github.com/classloop/classloop-api/internal/service"
	"github.com/classloop/classloop-api/internal/utils"
)

// MembershipHandler wires course enrollment HTTP routes.
type MembershipHandler struct {
	service service.MembershipService
	logger  zerolog.Logger
}

// NewMembershipHandler constructs the handler.
func NewMembershipHandler(service service.MembershipService, logger zerolog.Logger) *MembershipHandler {
	return &MembershipHandler{
		service: service,
		logger:  logger.With().Str("component", "membership_handler").Logger(),
	}
}

// Register attaches membership endpoints under /courses/:courseID.
func (h *MembershipHandler) Register(router fiber.Router) {
	router.Post("/members", h.enroll)
	router.Get("/members", h.list)
	router.Delete("/members/:memberID", h.remove)
	router.Post("/members/:memberID/recompute", h.recompute)
}

func (h *MembershipHandler) enroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.EnrollRequest{UserID: userIDFromContext(c)}
	member, err := h.service.Enroll(c.Context(), courseID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrolled", member)
}

func (h *MembershipHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	filter := repository.CourseMemberFilter{
		Role:     c.Query("role"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	}

	members, total, err := h.service.List(c.Context(), courseID, filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "members retrieved", fiber.Map{
		"members": members,
		"total":   total,
	})
}

func (h *MembershipHandler) remove(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	memberID, err := parseUintParam(c, "memberID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Remove(c.Context(), courseID, memberID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "member removed", fiber.Map{"id": memberID})
}

func (h *MembershipHandler) recompute(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	memberID, err := parseUintParam(c, "memberID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	member, err := h.service.Recompute(c.Context(), courseID, memberID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score recomputed", member)
}

func (h *MembershipHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrMemberNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "member not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
