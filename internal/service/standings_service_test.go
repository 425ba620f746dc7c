package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

func setupStandingsService(t *testing.T, cache *redis.Client) (*gorm.DB, StandingsService) {
	t.Helper()

	db := setupServiceDB(t)
	validate := testValidator()
	members := repository.NewCourseMemberRepository(db)
	courses := repository.NewCourseRepository(db)
	membership := NewMembershipService(members, courses, validate, testLogger())

	svc := NewStandingsService(members, repository.NewAttendanceRepository(db), courses, membership, cache, time.Minute, testLogger())

	return db, svc
}

func TestStandingsServiceRanksByCombinedScore(t *testing.T) {
	db, svc := setupStandingsService(t, nil)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	alice := createUser(t, db, "Alice", 0)
	bob := createUser(t, db, "Bob", 0)
	course := createCourse(t, db, owner.ID, "Astrophysics")
	require.NoError(t, db.Model(&models.Course{}).Where("id = ?", course.ID).Update("total_score", 100).Error)

	aliceMember := createMember(t, db, course.ID, alice.ID, models.MemberRoleMember)
	bobMember := createMember(t, db, course.ID, bob.ID, models.MemberRoleMember)
	require.NoError(t, db.Model(&aliceMember).Updates(map[string]interface{}{"achieved_score": 40, "bonus_points": 0}).Error)
	require.NoError(t, db.Model(&bobMember).Updates(map[string]interface{}{"achieved_score": 30, "bonus_points": 20}).Error)

	session := models.CourseAttendance{CourseID: course.ID, Title: "Week 1", StartAt: time.Now().Add(-2 * time.Hour), FinishAt: time.Now().Add(-time.Hour)}
	require.NoError(t, db.Create(&session).Error)
	attendances := repository.NewAttendanceRepository(db)
	_, err := attendances.SetStatus(ctx, session.ID, aliceMember.ID, models.AttendancePresent)
	require.NoError(t, err)
	_, err = attendances.SetStatus(ctx, session.ID, bobMember.ID, models.AttendanceAbsent)
	require.NoError(t, err)

	board, err := svc.Get(ctx, course.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 100, board.TotalScore)
	require.Len(t, board.Members, 2)

	require.Equal(t, bobMember.ID, board.Members[0].CourseMemberID)
	require.Equal(t, 1, board.Members[0].Rank)
	require.Equal(t, int64(1), board.Members[0].Absent)
	require.Equal(t, aliceMember.ID, board.Members[1].CourseMemberID)
	require.Equal(t, int64(1), board.Members[1].Present)
	require.InDelta(t, 40.0, board.Members[1].Grade, 0.01)
}

func TestStandingsServiceRequiresEnrollment(t *testing.T) {
	db, svc := setupStandingsService(t, nil)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	outsider := createUser(t, db, "Outsider", 0)
	course := createCourse(t, db, owner.ID, "Volcanology")

	_, err := svc.Get(ctx, course.ID, outsider.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStandingsServiceCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	db, svc := setupStandingsService(t, redisClient)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Meteorology")
	member := createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	first, err := svc.Get(ctx, course.ID, student.ID)
	require.NoError(t, err)
	require.Len(t, first.Members, 1)
	require.Equal(t, 0, first.Members[0].AchievedScore)

	// A score change is invisible until the cache is invalidated.
	require.NoError(t, db.Model(&member).Update("achieved_score", 50).Error)

	cached, err := svc.Get(ctx, course.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, 0, cached.Members[0].AchievedScore)

	svc.Invalidate(ctx, course.ID)

	fresh, err := svc.Get(ctx, course.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, 50, fresh.Members[0].AchievedScore)
}
