package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

// Sentinel errors shared by the course-scoped services.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrMemberNotFound = errors.New("course member not found")
	ErrForbidden      = errors.New("insufficient course role")
)

// Role is the resolved capability of a user within a course.
type Role string

// Resolved course roles, strongest first.
const (
	CourseRoleOwner     Role = "owner"
	CourseRoleAdmin     Role = "admin"
	CourseRoleAssistant Role = "assistant"
	CourseRoleMember    Role = "member"
	CourseRoleNone      Role = "none"
)

// CanManage reports whether the role may administer the course (groups,
// attendance, grading, membership).
func (r Role) CanManage() bool {
	return r == CourseRoleOwner || r == CourseRoleAdmin || r == CourseRoleAssistant
}

// IsEnrolled reports whether the role represents any live relationship with
// the course.
func (r Role) IsEnrolled() bool {
	return r != CourseRoleNone
}

// MembershipService owns enrollments and is the single place course roles
// are resolved. Every other course-scoped service authorizes through it.
type MembershipService interface {
	Enroll(ctx context.Context, courseID uint, payload dto.EnrollRequest) (dto.CourseMemberResponse, error)
	ResolveRole(ctx context.Context, courseID, userID uint) (Role, error)
	List(ctx context.Context, courseID uint, filter repository.CourseMemberFilter) ([]dto.CourseMemberResponse, int64, error)
	Remove(ctx context.Context, courseID, memberID, actorID uint) error
	Recompute(ctx context.Context, courseID, memberID, actorID uint) (dto.CourseMemberResponse, error)
}

type membershipService struct {
	members   repository.CourseMemberRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(members repository.CourseMemberRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) MembershipService {
	return &membershipService{
		members:   members,
		courses:   courses,
		validator: validate,
		logger:    logger.With().Str("component", "membership_service").Logger(),
	}
}

func (s *membershipService) Enroll(ctx context.Context, courseID uint, payload dto.EnrollRequest) (dto.CourseMemberResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseMemberResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseMemberResponse{}, ErrCourseNotFound
		}
		return dto.CourseMemberResponse{}, err
	}

	member := models.CourseMember{CourseID: courseID, UserID: payload.UserID}
	if err := s.members.Enroll(ctx, &member); err != nil {
		return dto.CourseMemberResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("user_id", payload.UserID).Msg("member enrolled")

	return dto.NewCourseMemberResponse(member, course.TotalScore), nil
}

// ResolveRole maps (course, user) onto a single role. The course owner wins
// regardless of any enrollment row; a removed enrollment resolves to none.
func (s *membershipService) ResolveRole(ctx context.Context, courseID, userID uint) (Role, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseRoleNone, ErrCourseNotFound
		}
		return CourseRoleNone, err
	}

	if course.UserID == userID {
		return CourseRoleOwner, nil
	}

	member, err := s.members.GetByCourseAndUser(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseRoleNone, nil
		}
		return CourseRoleNone, err
	}

	if !member.IsActive() {
		return CourseRoleNone, nil
	}

	switch member.Role {
	case models.MemberRoleAdmin:
		return CourseRoleAdmin, nil
	case models.MemberRoleAssistant:
		return CourseRoleAssistant, nil
	default:
		return CourseRoleMember, nil
	}
}

func (s *membershipService) List(ctx context.Context, courseID uint, filter repository.CourseMemberFilter) ([]dto.CourseMemberResponse, int64, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrCourseNotFound
		}
		return nil, 0, err
	}

	members, total, err := s.members.List(ctx, courseID, filter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewCourseMemberResponseSlice(members, course.TotalScore), total, nil
}

func (s *membershipService) Remove(ctx context.Context, courseID, memberID, actorID uint) error {
	role, err := s.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return ErrForbidden
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if member.CourseID != courseID {
		return ErrMemberNotFound
	}

	if err := s.members.Remove(ctx, memberID); err != nil {
		return err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("member_id", memberID).Msg("member removed")

	return nil
}

func (s *membershipService) Recompute(ctx context.Context, courseID, memberID, actorID uint) (dto.CourseMemberResponse, error) {
	role, err := s.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return dto.CourseMemberResponse{}, err
	}
	if !role.CanManage() {
		return dto.CourseMemberResponse{}, ErrForbidden
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseMemberResponse{}, ErrMemberNotFound
		}
		return dto.CourseMemberResponse{}, err
	}
	if member.CourseID != courseID {
		return dto.CourseMemberResponse{}, ErrMemberNotFound
	}

	recomputed, err := s.members.RecomputeAchievedScore(ctx, memberID)
	if err != nil {
		return dto.CourseMemberResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return dto.CourseMemberResponse{}, err
	}

	s.logger.Info().Uint("member_id", memberID).Int("achieved_score", recomputed.AchievedScore).Msg("achieved score recomputed")

	return dto.NewCourseMemberResponse(recomputed, course.TotalScore), nil
}
