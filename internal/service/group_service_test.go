package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

func setupGroupService(t *testing.T) (*gorm.DB, GroupService, *stubPublisher) {
	t.Helper()

	db := setupServiceDB(t)
	validate := testValidator()
	members := repository.NewCourseMemberRepository(db)
	courses := repository.NewCourseRepository(db)
	membership := NewMembershipService(members, courses, validate, testLogger())
	events := &stubPublisher{}

	svc := NewGroupService(repository.NewGroupRepository(db), members, courses, membership, events, validate, testLogger())

	return db, svc, events
}

func TestGroupServiceCreateRequiresManager(t *testing.T) {
	db, svc, _ := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Geography")
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	_, err := svc.Create(ctx, course.ID, student.ID, dto.GroupCreateRequest{Name: "Rivers"})
	require.ErrorIs(t, err, ErrForbidden)

	group, err := svc.Create(ctx, course.ID, owner.ID, dto.GroupCreateRequest{Name: "Rivers"})
	require.NoError(t, err)
	// Privacy defaults to public.
	require.Equal(t, models.GroupPrivacyPublic, group.Privacy)
}

func TestGroupServiceJoinPublicApprovesImmediately(t *testing.T) {
	db, svc, _ := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Painting")

	group, err := svc.Create(ctx, course.ID, owner.ID, dto.GroupCreateRequest{Name: "Impressionists", Privacy: models.GroupPrivacyPublic})
	require.NoError(t, err)

	result, err := svc.Join(ctx, course.ID, group.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupRequestApproved, result.Status)

	// Joining a group enrolls on demand and mirrors the group.
	require.Equal(t, student.ID, result.CourseMember.UserID)
	require.NotNil(t, result.CourseMember.GroupID)
	require.Equal(t, group.ID, *result.CourseMember.GroupID)
}

func TestGroupServiceJoinPrivateQueuesRequest(t *testing.T) {
	db, svc, _ := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Sculpture")
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	group, err := svc.Create(ctx, course.ID, owner.ID, dto.GroupCreateRequest{Name: "Modernists", Privacy: models.GroupPrivacyPrivate})
	require.NoError(t, err)

	result, err := svc.Join(ctx, course.ID, group.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupRequestPending, result.Status)
	require.Nil(t, result.CourseMember.GroupID)

	// A second join while pending is rejected.
	_, err = svc.Join(ctx, course.ID, group.ID, student.ID)
	require.ErrorIs(t, err, ErrAlreadyPending)
}

func TestGroupServiceApproveAndReject(t *testing.T) {
	db, svc, events := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Theater")
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	group, err := svc.Create(ctx, course.ID, owner.ID, dto.GroupCreateRequest{Name: "Stagehands", Privacy: models.GroupPrivacyPrivate})
	require.NoError(t, err)

	_, err = svc.Join(ctx, course.ID, group.ID, student.ID)
	require.NoError(t, err)

	pending, err := svc.ListMembers(ctx, course.ID, group.ID, models.GroupRequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Approve(ctx, course.ID, pending[0].ID, student.ID)
	require.ErrorIs(t, err, ErrForbidden)

	approved, err := svc.Approve(ctx, course.ID, pending[0].ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupRequestApproved, approved.RequestStatus)
	require.True(t, events.published(SubjectGroupApproved))
}

func TestGroupServiceRejectAllowsRetry(t *testing.T) {
	db, svc, events := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Dance")
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	group, err := svc.Create(ctx, course.ID, owner.ID, dto.GroupCreateRequest{Name: "Ballet", Privacy: models.GroupPrivacyPrivate})
	require.NoError(t, err)

	_, err = svc.Join(ctx, course.ID, group.ID, student.ID)
	require.NoError(t, err)

	pending, err := svc.ListMembers(ctx, course.ID, group.ID, models.GroupRequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.Reject(ctx, course.ID, pending[0].ID, owner.ID))
	require.True(t, events.published(SubjectGroupRejected))

	// Rejection removes the row, so the student can ask again.
	result, err := svc.Join(ctx, course.ID, group.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupRequestPending, result.Status)
}

func TestGroupServiceLeaveClearsMirror(t *testing.T) {
	db, svc, _ := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Choir")

	group, err := svc.Create(ctx, course.ID, owner.ID, dto.GroupCreateRequest{Name: "Altos", Privacy: models.GroupPrivacyPublic})
	require.NoError(t, err)

	_, err = svc.Join(ctx, course.ID, group.ID, student.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, course.ID, group.ID, student.ID))

	var enrollment models.CourseMember
	require.NoError(t, db.Where("course_id = ? AND user_id = ?", course.ID, student.ID).First(&enrollment).Error)
	require.Nil(t, enrollment.GroupID)

	// Leaving twice reports the missing membership.
	err = svc.Leave(ctx, course.ID, group.ID, student.ID)
	require.ErrorIs(t, err, ErrGroupMemberNotFound)
}

func TestGroupServiceJoinUnknownGroup(t *testing.T) {
	db, svc, _ := setupGroupService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	course := createCourse(t, db, owner.ID, "Chess")

	_, err := svc.Join(ctx, course.ID, 9999, owner.ID)
	require.ErrorIs(t, err, ErrGroupNotFound)
}
