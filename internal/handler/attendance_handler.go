package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/service"
	"github.com/classloop/classloop-api/internal/utils"
)

// AttendanceHandler wires attendance session HTTP routes.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches session management under /courses/:courseID.
func (h *AttendanceHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Post("/attendances", h.createSession)
	router.Get("/attendances", h.listSessions)
}

// RegisterSessionRoutes attaches per-session routes under /attendances.
func (h *AttendanceHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Post("/:attendanceID/checkin", h.checkIn)
	router.Post("/:attendanceID/members/:memberID/status", h.setStatus)
	router.Get("/:attendanceID/roster", h.roster)
}

func (h *AttendanceHandler) createSession(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.CreateSession(c.Context(), courseID, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance session created", session)
}

func (h *AttendanceHandler) listSessions(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sessions, err := h.service.ListSessions(c.Context(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance sessions retrieved", sessions)
}

func (h *AttendanceHandler) checkIn(c *fiber.Ctx) error {
	attendanceID, err := parseUintParam(c, "attendanceID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.CheckIn(c.Context(), attendanceID, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckInNotStarted):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":     false,
				"message":     "check-in has not started",
				"not_started": true,
			})
		case errors.Is(err, service.ErrCheckInEnded):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "check-in has ended",
				"ended":   true,
			})
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			// The original record rides along so clients can show the
			// recorded time.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":            false,
				"message":            "already checked in",
				"already_checked_in": true,
				"data":               result,
			})
		default:
			return h.handleError(c, err)
		}
	}

	return utils.SendSuccess(c, "checked in", result)
}

func (h *AttendanceHandler) setStatus(c *fiber.Ctx) error {
	attendanceID, err := parseUintParam(c, "attendanceID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	memberID, err := parseUintParam(c, "memberID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SetStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.Status == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "status is required")
	}

	detail, err := h.service.SetStatus(c.Context(), attendanceID, memberID, *payload.Status, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance status updated", detail)
}

func (h *AttendanceHandler) roster(c *fiber.Ctx) error {
	attendanceID, err := parseUintParam(c, "attendanceID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.Roster(c.Context(), attendanceID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roster retrieved", roster)
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrAttendanceNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "attendance session not found")
	case errors.Is(err, service.ErrMemberNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "member not found")
	case errors.Is(err, service.ErrInvalidStatus):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "invalid attendance status")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
