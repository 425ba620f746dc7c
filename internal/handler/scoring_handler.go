package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/repository"
	"github.com/classloop/classloop-api/internal/service"
	"github.com/classloop/classloop-api/internal/utils"
)

// ScoringHandler wires assignment, answer and quiz HTTP routes.
type ScoringHandler struct {
	service service.ScoringService
	logger  zerolog.Logger
}

// NewScoringHandler constructs the handler.
func NewScoringHandler(service service.ScoringService, logger zerolog.Logger) *ScoringHandler {
	return &ScoringHandler{
		service: service,
		logger:  logger.With().Str("component", "scoring_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches assignment and question management under
// /courses/:courseID.
func (h *ScoringHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Post("/assignments", h.createAssignment)
	router.Get("/assignments", h.listAssignments)
	router.Post("/questions", h.createQuestion)
}

// RegisterAssignmentRoutes attaches per-assignment routes under /assignments.
func (h *ScoringHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Patch("/:assignmentID/points", h.setPoints)
	router.Delete("/:assignmentID", h.deleteAssignment)
	router.Post("/:assignmentID/answers", h.submitAnswer)
	router.Get("/:assignmentID/answers", h.listAnswers)
	router.Post("/:assignmentID/answers/:answerID/points", h.gradeAnswer)
}

// RegisterAnswerRoutes attaches answer routes under /answers.
func (h *ScoringHandler) RegisterAnswerRoutes(router fiber.Router) {
	router.Delete("/:answerID", h.deleteAnswer)
}

// RegisterQuizRoutes attaches quiz routes under /quizzes.
func (h *ScoringHandler) RegisterQuizRoutes(router fiber.Router) {
	router.Post("/:questionID/answer", h.answerQuestion)
}

func (h *ScoringHandler) createAssignment(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.AssignmentCreateRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		DueDate:     c.FormValue("due_date"),
	}
	if raw := c.FormValue("point_value"); raw != "" {
		points, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid point_value")
		}
		payload.PointValue = points
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	assignment, err := h.service.CreateAssignment(c.Context(), courseID, userIDFromContext(c), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *ScoringHandler) listAssignments(c *fiber.Ctx) error {
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

	filter := repository.AssignmentFilter{
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: pageSize,
	}

	assignments, total, err := h.service.ListAssignments(c.Context(), courseID, filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", fiber.Map{
		"assignments": assignments,
		"total":       total,
	})
}

func (h *ScoringHandler) setPoints(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentPointsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.PointValue == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "point_value is required")
	}

	assignment, err := h.service.SetAssignmentPoints(c.Context(), assignmentID, userIDFromContext(c), *payload.PointValue)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment points updated", assignment)
}

func (h *ScoringHandler) deleteAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteAssignment(c.Context(), assignmentID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": assignmentID})
}

func (h *ScoringHandler) submitAnswer(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	answer, err := h.service.SubmitAnswer(c.Context(), assignmentID, userIDFromContext(c), file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "answer submitted", answer)
}

func (h *ScoringHandler) listAnswers(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	answers, err := h.service.ListAnswers(c.Context(), assignmentID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *ScoringHandler) gradeAnswer(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.GradeAnswer(c.Context(), answerID, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer graded", answer)
}

func (h *ScoringHandler) deleteAnswer(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteAnswer(c.Context(), answerID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer deleted", fiber.Map{"id": answerID})
}

func (h *ScoringHandler) createQuestion(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.service.CreateQuestion(c.Context(), courseID, userIDFromContext(c), payload.Prompt, payload.Options, payload.CorrectOption, payload.PointValue)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *ScoringHandler) answerQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "questionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.AnswerQuestion(c.Context(), questionID, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question answered", result)
}

func (h *ScoringHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrMemberNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "member not found")
	case errors.Is(err, service.ErrAssignmentPastDue):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "assignment is past due")
	case errors.Is(err, service.ErrInvalidOption):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "selected option out of range")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
