package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/service"
	"github.com/classloop/classloop-api/internal/utils"
)

// PostHandler wires the course feed HTTP routes: posts, comments and
// reactions.
type PostHandler struct {
	posts  service.PostService
	points service.PointsService
	logger zerolog.Logger
}

// NewPostHandler constructs the handler.
func NewPostHandler(posts service.PostService, points service.PointsService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		points: points,
		logger: logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register attaches feed endpoints under /posts.
func (h *PostHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:postID", h.get)
	router.Delete("/:postID", h.delete)
	router.Post("/:postID/comments", h.createComment)
	router.Delete("/:postID/comments/:commentID", h.deleteComment)
	router.Post("/:postID/reactions", h.react)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	payload := dto.PostCreateRequest{
		Body: c.FormValue("body"),
	}
	if raw := c.FormValue("course_id"); raw != "" {
		courseID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid course_id")
		}
		payload.CourseID = uint(courseID)
	}

	image, err := c.FormFile("image")
	if err != nil {
		image = nil
	}

	post, err := h.posts.Create(c.Context(), userIDFromContext(c), payload, image)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) list(c *fiber.Ctx) error {
	courseID, err := parseQueryInt(c, "course_id")
	if err != nil || courseID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id is required")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	posts, total, err := h.posts.ListByCourse(c.Context(), uint(courseID), page, pageSize)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "posts retrieved", fiber.Map{
		"posts": posts,
		"total": total,
	})
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	postID, err := parseUintParam(c, "postID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	post, err := h.posts.Get(c.Context(), postID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "post retrieved", post)
}

func (h *PostHandler) delete(c *fiber.Ctx) error {
	postID, err := parseUintParam(c, "postID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.posts.Delete(c.Context(), postID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "post deleted", fiber.Map{"id": postID})
}

func (h *PostHandler) createComment(c *fiber.Ctx) error {
	postID, err := parseUintParam(c, "postID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	comment, err := h.posts.CreateComment(c.Context(), postID, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment created", comment)
}

func (h *PostHandler) deleteComment(c *fiber.Ctx) error {
	commentID, err := parseUintParam(c, "commentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.posts.DeleteComment(c.Context(), commentID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "comment deleted", fiber.Map{"id": commentID})
}

func (h *PostHandler) react(c *fiber.Ctx) error {
	postID, err := parseUintParam(c, "postID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReactionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.points.React(c.Context(), postID, userIDFromContext(c), payload)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientPoints) {
			return utils.SendError(c, fiber.StatusUnprocessableEntity, "insufficient points")
		}
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "reaction applied", result)
}

func (h *PostHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "post not found")
	case errors.Is(err, service.ErrCommentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "comment not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrEmptyBody):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "body is empty after sanitization")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
