package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseMember{},
		&models.CourseGroup{},
		&models.CourseGroupMember{},
		&models.CourseAttendance{},
		&models.AttendanceDetail{},
		&models.Assignment{},
		&models.AssignmentAnswer{},
		&models.Question{},
		&models.CourseQuizResult{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
		&models.PointTransaction{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, points int) models.User {
	t.Helper()

	user := models.User{Name: name, Email: fmt.Sprintf("%s@example.com", strings.ToLower(name)), Points: points}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, ownerID uint, title string) models.Course {
	t.Helper()

	course := models.Course{UserID: ownerID, Title: title, Code: strings.ToUpper(strings.ReplaceAll(title, " ", "-"))}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func seedMember(t *testing.T, db *gorm.DB, courseID, userID uint) models.CourseMember {
	t.Helper()

	member := models.CourseMember{CourseID: courseID, UserID: userID, Role: models.MemberRoleMember, Status: models.MemberStatusActive}
	require.NoError(t, db.Create(&member).Error)
	return member
}
