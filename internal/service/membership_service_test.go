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

func setupMembershipService(t *testing.T) (*gorm.DB, MembershipService) {
	t.Helper()

	db := setupServiceDB(t)
	svc := NewMembershipService(
		repository.NewCourseMemberRepository(db),
		repository.NewCourseRepository(db),
		testValidator(),
		testLogger(),
	)

	return db, svc
}

func TestMembershipServiceResolveRole(t *testing.T) {
	db, svc := setupMembershipService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	admin := createUser(t, db, "Admin", 0)
	student := createUser(t, db, "Student", 0)
	removed := createUser(t, db, "Removed", 0)
	outsider := createUser(t, db, "Outsider", 0)
	course := createCourse(t, db, owner.ID, "Sociology")

	createMember(t, db, course.ID, admin.ID, models.MemberRoleAdmin)
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)
	removedMember := createMember(t, db, course.ID, removed.ID, models.MemberRoleMember)
	require.NoError(t, db.Model(&removedMember).Update("status", models.MemberStatusRemoved).Error)

	cases := []struct {
		name   string
		userID uint
		want   Role
	}{
		{name: "owner", userID: owner.ID, want: CourseRoleOwner},
		{name: "admin", userID: admin.ID, want: CourseRoleAdmin},
		{name: "member", userID: student.ID, want: CourseRoleMember},
		{name: "removed", userID: removed.ID, want: CourseRoleNone},
		{name: "outsider", userID: outsider.ID, want: CourseRoleNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, err := svc.ResolveRole(ctx, course.ID, tc.userID)
			require.NoError(t, err)
			require.Equal(t, tc.want, role)
		})
	}

	_, err := svc.ResolveRole(ctx, 9999, owner.ID)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestMembershipServiceEnroll(t *testing.T) {
	db, svc := setupMembershipService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Anthropology")

	member, err := svc.Enroll(ctx, course.ID, dto.EnrollRequest{UserID: student.ID})
	require.NoError(t, err)
	require.Equal(t, models.MemberRoleMember, member.Role)
	require.Equal(t, models.MemberStatusActive, member.Status)

	again, err := svc.Enroll(ctx, course.ID, dto.EnrollRequest{UserID: student.ID})
	require.NoError(t, err)
	require.Equal(t, member.ID, again.ID)

	_, err = svc.Enroll(ctx, 9999, dto.EnrollRequest{UserID: student.ID})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestMembershipServiceRemoveRequiresManager(t *testing.T) {
	db, svc := setupMembershipService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	other := createUser(t, db, "Other", 0)
	course := createCourse(t, db, owner.ID, "Archaeology")
	member := createMember(t, db, course.ID, student.ID, models.MemberRoleMember)
	createMember(t, db, course.ID, other.ID, models.MemberRoleMember)

	err := svc.Remove(ctx, course.ID, member.ID, other.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Remove(ctx, course.ID, member.ID, owner.ID))

	role, err := svc.ResolveRole(ctx, course.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, CourseRoleNone, role)
}

func TestMembershipServiceRemoveRejectsCrossCourseMember(t *testing.T) {
	db, svc := setupMembershipService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	courseA := createCourse(t, db, owner.ID, "Course A")
	courseB := createCourse(t, db, owner.ID, "Course B")
	member := createMember(t, db, courseA.ID, student.ID, models.MemberRoleMember)

	err := svc.Remove(ctx, courseB.ID, member.ID, owner.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}
