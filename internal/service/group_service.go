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

// Group workflow errors.
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrGroupMemberNotFound = errors.New("group member not found")
	ErrAlreadyPending      = errors.New("join request already pending")
)

// GroupService orchestrates the group join workflow. The state machine is
// NoMembership -> Pending (private) | Approved (public); Pending -> Approved
// or deleted on rejection. Join is idempotent: repeating it converges on the
// same row and re-runs the mirror sync instead of erroring.
type GroupService interface {
	Create(ctx context.Context, courseID, actorID uint, payload dto.GroupCreateRequest) (dto.GroupResponse, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.GroupResponse, error)
	Join(ctx context.Context, courseID, groupID, userID uint) (dto.JoinResponse, error)
	Approve(ctx context.Context, courseID, groupMemberID, actorID uint) (dto.GroupMemberResponse, error)
	Reject(ctx context.Context, courseID, groupMemberID, actorID uint) error
	Leave(ctx context.Context, courseID, groupID, userID uint) error
	ListMembers(ctx context.Context, courseID, groupID uint, requestStatus string) ([]dto.GroupMemberResponse, error)
}

type groupService struct {
	groups     repository.GroupRepository
	members    repository.CourseMemberRepository
	courses    repository.CourseRepository
	membership MembershipService
	events     EventPublisher
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewGroupService constructs a GroupService instance.
func NewGroupService(groups repository.GroupRepository, members repository.CourseMemberRepository, courses repository.CourseRepository, membership MembershipService, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) GroupService {
	return &groupService{
		groups:     groups,
		members:    members,
		courses:    courses,
		membership: membership,
		events:     events,
		validator:  validate,
		logger:     logger.With().Str("component", "group_service").Logger(),
	}
}

func (s *groupService) Create(ctx context.Context, courseID, actorID uint, payload dto.GroupCreateRequest) (dto.GroupResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GroupResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	if !role.CanManage() {
		return dto.GroupResponse{}, ErrForbidden
	}

	privacy := payload.Privacy
	if privacy == "" {
		privacy = models.GroupPrivacyPublic
	}

	group := models.CourseGroup{
		CourseID:    courseID,
		Name:        payload.Name,
		Description: payload.Description,
		Privacy:     privacy,
	}
	if err := s.groups.Create(ctx, &group); err != nil {
		return dto.GroupResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("group_id", group.ID).Msg("group created")

	return dto.NewGroupResponse(group), nil
}

func (s *groupService) ListByCourse(ctx context.Context, courseID uint) ([]dto.GroupResponse, error) {
	groups, err := s.groups.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GroupResponse, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, dto.NewGroupResponse(group))
	}

	return responses, nil
}

// Join files or refreshes a join request. Private groups queue the request;
// public groups approve immediately. Re-joining an approved membership
// re-runs the approval side effects so a drifted group_id mirror heals
// instead of erroring.
func (s *groupService) Join(ctx context.Context, courseID, groupID, userID uint) (dto.JoinResponse, error) {
	group, err := s.loadGroup(ctx, courseID, groupID)
	if err != nil {
		return dto.JoinResponse{}, err
	}

	existing, err := s.groups.GetMember(ctx, groupID, userID)
	switch {
	case err == nil:
		if existing.IsPending() {
			return dto.JoinResponse{}, ErrAlreadyPending
		}
		// Already approved: converge the side effects.
		return s.finishApprovedJoin(ctx, group, existing.ID, userID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to the fresh request
	default:
		return dto.JoinResponse{}, err
	}

	if group.IsPrivate() {
		member, err := s.groups.Upsert(ctx, groupID, userID, models.GroupRequestPending)
		if err != nil {
			return dto.JoinResponse{}, err
		}

		enrollment, err := s.callerEnrollment(ctx, group, userID)
		if err != nil {
			return dto.JoinResponse{}, err
		}

		s.logger.Info().Uint("group_id", groupID).Uint("user_id", userID).Msg("join request queued")

		return dto.JoinResponse{
			Status:       member.RequestStatus,
			Group:        dto.NewGroupResponse(group),
			CourseMember: enrollment,
		}, nil
	}

	member, err := s.groups.Upsert(ctx, groupID, userID, models.GroupRequestPending)
	if err != nil {
		return dto.JoinResponse{}, err
	}

	return s.finishApprovedJoin(ctx, group, member.ID, userID)
}

func (s *groupService) finishApprovedJoin(ctx context.Context, group models.CourseGroup, memberID, userID uint) (dto.JoinResponse, error) {
	if _, err := s.groups.Approve(ctx, memberID); err != nil {
		return dto.JoinResponse{}, err
	}

	enrollment, err := s.callerEnrollment(ctx, group, userID)
	if err != nil {
		return dto.JoinResponse{}, err
	}

	s.logger.Info().Uint("group_id", group.ID).Uint("user_id", userID).Msg("group join approved")

	return dto.JoinResponse{
		Status:       models.GroupRequestApproved,
		Group:        dto.NewGroupResponse(group),
		CourseMember: enrollment,
	}, nil
}

func (s *groupService) callerEnrollment(ctx context.Context, group models.CourseGroup, userID uint) (dto.CourseMemberResponse, error) {
	course, err := s.courses.GetByID(ctx, group.CourseID)
	if err != nil {
		return dto.CourseMemberResponse{}, err
	}

	member, err := s.members.GetByCourseAndUser(ctx, group.CourseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Joining a group enrolls on demand.
			member = models.CourseMember{CourseID: group.CourseID, UserID: userID}
			if err := s.members.Enroll(ctx, &member); err != nil {
				return dto.CourseMemberResponse{}, err
			}
		} else {
			return dto.CourseMemberResponse{}, err
		}
	}

	return dto.NewCourseMemberResponse(member, course.TotalScore), nil
}

// Approve confirms a pending request. Only a manager of the course may call
// it; the sibling eviction and mirror write happen in one transaction.
func (s *groupService) Approve(ctx context.Context, courseID, groupMemberID, actorID uint) (dto.GroupMemberResponse, error) {
	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return dto.GroupMemberResponse{}, err
	}
	if !role.CanManage() {
		return dto.GroupMemberResponse{}, ErrForbidden
	}

	member, err := s.loadGroupMember(ctx, courseID, groupMemberID)
	if err != nil {
		return dto.GroupMemberResponse{}, err
	}

	approved, err := s.groups.Approve(ctx, member.ID)
	if err != nil {
		return dto.GroupMemberResponse{}, err
	}

	s.events.Publish(ctx, SubjectGroupApproved, map[string]uint{
		"course_id": courseID,
		"group_id":  approved.GroupID,
		"user_id":   approved.UserID,
	})
	s.logger.Info().Uint("group_member_id", groupMemberID).Uint("actor_id", actorID).Msg("group member approved")

	return dto.NewGroupMemberResponse(approved), nil
}

// Reject deletes the request outright. A later re-request starts clean.
func (s *groupService) Reject(ctx context.Context, courseID, groupMemberID, actorID uint) error {
	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return ErrForbidden
	}

	member, err := s.loadGroupMember(ctx, courseID, groupMemberID)
	if err != nil {
		return err
	}

	if err := s.groups.DeleteMember(ctx, member.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupMemberNotFound
		}
		return err
	}

	s.events.Publish(ctx, SubjectGroupRejected, map[string]uint{
		"course_id": courseID,
		"group_id":  member.GroupID,
		"user_id":   member.UserID,
	})
	s.logger.Info().Uint("group_member_id", groupMemberID).Uint("actor_id", actorID).Msg("group member rejected")

	return nil
}

func (s *groupService) Leave(ctx context.Context, courseID, groupID, userID uint) error {
	if _, err := s.loadGroup(ctx, courseID, groupID); err != nil {
		return err
	}

	if err := s.groups.Leave(ctx, groupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupMemberNotFound
		}
		return err
	}

	s.logger.Info().Uint("group_id", groupID).Uint("user_id", userID).Msg("member left group")

	return nil
}

func (s *groupService) ListMembers(ctx context.Context, courseID, groupID uint, requestStatus string) ([]dto.GroupMemberResponse, error) {
	if _, err := s.loadGroup(ctx, courseID, groupID); err != nil {
		return nil, err
	}

	members, err := s.groups.ListMembers(ctx, groupID, requestStatus)
	if err != nil {
		return nil, err
	}

	return dto.NewGroupMemberResponseSlice(members), nil
}

func (s *groupService) loadGroup(ctx context.Context, courseID, groupID uint) (models.CourseGroup, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseGroup{}, ErrGroupNotFound
		}
		return models.CourseGroup{}, err
	}
	if group.CourseID != courseID {
		return models.CourseGroup{}, ErrGroupNotFound
	}

	return group, nil
}

func (s *groupService) loadGroupMember(ctx context.Context, courseID, groupMemberID uint) (models.CourseGroupMember, error) {
	member, err := s.groups.GetMemberByID(ctx, groupMemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseGroupMember{}, ErrGroupMemberNotFound
		}
		return models.CourseGroupMember{}, err
	}
	if member.Group.CourseID != courseID {
		return models.CourseGroupMember{}, ErrGroupMemberNotFound
	}

	return member, nil
}
