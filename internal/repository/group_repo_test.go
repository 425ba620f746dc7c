package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

func TestGroupRepositoryUpsertConvergesOnSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "Owner", 0)
	student := seedUser(t, db, "Student", 0)
	course := seedCourse(t, db, owner.ID, "Algorithms")
	group := models.CourseGroup{CourseID: course.ID, Name: "Alpha", Privacy: models.GroupPrivacyPrivate}
	require.NoError(t, repo.Create(ctx, &group))

	first, err := repo.Upsert(ctx, group.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, group.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.CourseGroupMember{}).Where("group_id = ?", group.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestGroupRepositoryApproveEvictsSiblingMemberships(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "Owner", 0)
	student := seedUser(t, db, "Student", 0)
	course := seedCourse(t, db, owner.ID, "Databases")

	alpha := models.CourseGroup{CourseID: course.ID, Name: "Alpha", Privacy: models.GroupPrivacyPrivate}
	beta := models.CourseGroup{CourseID: course.ID, Name: "Beta", Privacy: models.GroupPrivacyPrivate}
	require.NoError(t, repo.Create(ctx, &alpha))
	require.NoError(t, repo.Create(ctx, &beta))

	alphaReq, err := repo.Upsert(ctx, alpha.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, beta.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)

	approved, err := repo.Approve(ctx, alphaReq.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupRequestApproved, approved.RequestStatus)

	// The pending request in the sibling group is gone.
	_, err = repo.GetMember(ctx, beta.ID, student.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The enrollment exists and mirrors the approved group.
	var enrollment models.CourseMember
	require.NoError(t, db.Where("course_id = ? AND user_id = ?", course.ID, student.ID).First(&enrollment).Error)
	require.NotNil(t, enrollment.GroupID)
	require.Equal(t, alpha.ID, *enrollment.GroupID)
	require.Equal(t, models.MemberStatusActive, enrollment.Status)
}

func TestGroupRepositoryLeaveClearsEnrollmentMirror(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "Owner", 0)
	student := seedUser(t, db, "Student", 0)
	course := seedCourse(t, db, owner.ID, "Networks")

	group := models.CourseGroup{CourseID: course.ID, Name: "Gamma", Privacy: models.GroupPrivacyPublic}
	require.NoError(t, repo.Create(ctx, &group))

	request, err := repo.Upsert(ctx, group.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)
	_, err = repo.Approve(ctx, request.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Leave(ctx, group.ID, student.ID))

	_, err = repo.GetMember(ctx, group.ID, student.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var enrollment models.CourseMember
	require.NoError(t, db.Where("course_id = ? AND user_id = ?", course.ID, student.ID).First(&enrollment).Error)
	require.Nil(t, enrollment.GroupID)
}

func TestGroupRepositoryDeleteMemberAllowsRejoin(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "Owner", 0)
	student := seedUser(t, db, "Student", 0)
	course := seedCourse(t, db, owner.ID, "Compilers")

	group := models.CourseGroup{CourseID: course.ID, Name: "Delta", Privacy: models.GroupPrivacyPrivate}
	require.NoError(t, repo.Create(ctx, &group))

	request, err := repo.Upsert(ctx, group.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteMember(ctx, request.ID))

	// Rejection leaves no trace, so a new request succeeds.
	again, err := repo.Upsert(ctx, group.ID, student.ID, models.GroupRequestPending)
	require.NoError(t, err)
	require.Equal(t, models.GroupRequestPending, again.RequestStatus)
}
