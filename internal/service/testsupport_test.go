package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
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

func createUser(t *testing.T, db *gorm.DB, name string, points int) models.User {
	t.Helper()

	user := models.User{Name: name, Email: fmt.Sprintf("%s@example.com", strings.ToLower(name)), Points: points}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCourse(t *testing.T, db *gorm.DB, ownerID uint, title string) models.Course {
	t.Helper()

	course := models.Course{UserID: ownerID, Title: title, Code: strings.ToUpper(strings.ReplaceAll(title, " ", "-"))}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func createMember(t *testing.T, db *gorm.DB, courseID, userID uint, role string) models.CourseMember {
	t.Helper()

	member := models.CourseMember{CourseID: courseID, UserID: userID, Role: role, Status: models.MemberStatusActive}
	require.NoError(t, db.Create(&member).Error)
	return member
}

// stubPublisher captures published subjects so tests can assert on the
// events a service emits.
type stubPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *stubPublisher) Publish(ctx context.Context, subject string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
}

func (p *stubPublisher) published(subject string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// recordingCache captures invalidation calls.
type recordingCache struct {
	mu        sync.Mutex
	courseIDs []uint
}

func (c *recordingCache) Invalidate(ctx context.Context, courseID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courseIDs = append(c.courseIDs, courseID)
}

func (c *recordingCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.courseIDs)
}
