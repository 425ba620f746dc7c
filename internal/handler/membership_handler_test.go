package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/handler"
	"github.com/classloop/classloop-api/internal/repository"
	"github.com/classloop/classloop-api/internal/service"
)

type mockMembershipService struct {
	lastCourseID uint
	lastPayload  dto.EnrollRequest
	member       dto.CourseMemberResponse
	err          error
}

func (m *mockMembershipService) Enroll(_ context.Context, courseID uint, payload dto.EnrollRequest) (dto.CourseMemberResponse, error) {
	m.lastCourseID = courseID
	m.lastPayload = payload
	if m.err != nil {
		return dto.CourseMemberResponse{}, m.err
	}
	return m.member, nil
}

func (m *mockMembershipService) ResolveRole(_ context.Context, courseID, userID uint) (service.Role, error) {
	return service.CourseRoleMember, nil
}

func (m *mockMembershipService) List(_ context.Context, courseID uint, filter repository.CourseMemberFilter) ([]dto.CourseMemberResponse, int64, error) {
	return []dto.CourseMemberResponse{m.member}, 1, m.err
}

func (m *mockMembershipService) Remove(_ context.Context, courseID, memberID, actorID uint) error {
	return m.err
}

func (m *mockMembershipService) Recompute(_ context.Context, courseID, memberID, actorID uint) (dto.CourseMemberResponse, error) {
	return m.member, m.err
}

func newMembershipApp(svc service.MembershipService) *fiber.App {
	logger := zerolog.New(io.Discard)
	app := fiber.New()
	group := app.Group("/api/v1/courses/:courseID", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(42))
		return c.Next()
	})
	handler.NewMembershipHandler(svc, logger).Register(group)
	return app
}

func TestMembershipHandlerEnroll(t *testing.T) {
	svc := &mockMembershipService{member: dto.CourseMemberResponse{ID: 1, CourseID: 5, UserID: 42}}
	app := newMembershipApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/5/members", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// The enrollee is always the authenticated caller.
	require.Equal(t, uint(5), svc.lastCourseID)
	require.Equal(t, uint(42), svc.lastPayload.UserID)
}

func TestMembershipHandlerEnrollUnknownCourse(t *testing.T) {
	app := newMembershipApp(&mockMembershipService{err: service.ErrCourseNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/5/members", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMembershipHandlerRemoveForbidden(t *testing.T) {
	app := newMembershipApp(&mockMembershipService{err: service.ErrForbidden})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/courses/5/members/3", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestMembershipHandlerValidationErrorIsUnprocessable(t *testing.T) {
	type payload struct {
		Title string `validate:"required"`
	}
	validationErr := validator.New().Struct(payload{})
	require.Error(t, validationErr)

	app := newMembershipApp(&mockMembershipService{err: validationErr})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/5/members", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestMembershipHandlerInvalidCourseID(t *testing.T) {
	app := newMembershipApp(&mockMembershipService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/abc/members", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
