package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

type stubUploader struct {
	destroyed []string
}

func (u *stubUploader) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	return "https://cdn.example.com/" + name, nil
}

func (u *stubUploader) Destroy(ctx context.Context, url string) error {
	u.destroyed = append(u.destroyed, url)
	return nil
}

func setupScoringService(t *testing.T) (*gorm.DB, *scoringService, *stubPublisher, *recordingCache) {
	t.Helper()

	db := setupServiceDB(t)
	validate := testValidator()
	members := repository.NewCourseMemberRepository(db)
	courses := repository.NewCourseRepository(db)
	membership := NewMembershipService(members, courses, validate, testLogger())
	events := &stubPublisher{}
	cache := &recordingCache{}

	svc := NewScoringService(
		repository.NewAssignmentRepository(db),
		repository.NewQuizRepository(db),
		members,
		membership,
		events,
		cache,
		&stubUploader{},
		validate,
		testLogger(),
	).(*scoringService)

	return db, svc, events, cache
}

func TestScoringServiceCreateAssignmentRejectsPastDue(t *testing.T) {
	db, svc, _, _ := setupScoringService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	course := createCourse(t, db, owner.ID, "Algebra")

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	payload := dto.AssignmentCreateRequest{
		Title:       "Problem set",
		Description: "Chapters one and two",
		DueDate:     "2026-03-01T12:00:00Z",
		PointValue:  20,
	}
	_, err := svc.CreateAssignment(ctx, course.ID, owner.ID, payload, nil)
	require.ErrorIs(t, err, ErrAssignmentPastDue)

	payload.DueDate = "2026-03-09T12:00:00Z"
	assignment, err := svc.CreateAssignment(ctx, course.ID, owner.ID, payload, nil)
	require.NoError(t, err)
	require.Equal(t, 20, assignment.PointValue)

	var reloaded models.Course
	require.NoError(t, db.First(&reloaded, course.ID).Error)
	require.Equal(t, 20, reloaded.TotalScore)
}

func TestScoringServiceGradeRequiresManager(t *testing.T) {
	db, svc, events, cache := setupScoringService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Trigonometry")
	member := createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	assignment := models.Assignment{CourseID: course.ID, Title: "Worksheet", DueDate: time.Now().Add(24 * time.Hour), PointValue: 10}
	assignments := repository.NewAssignmentRepository(db)
	require.NoError(t, assignments.Create(ctx, &assignment))
	answer := models.AssignmentAnswer{AssignmentID: assignment.ID, UserID: student.ID, FileURL: "sheet.pdf"}
	require.NoError(t, assignments.CreateAnswer(ctx, &answer))

	points := 8
	_, err := svc.GradeAnswer(ctx, answer.ID, student.ID, dto.GradeRequest{Points: &points})
	require.ErrorIs(t, err, ErrForbidden)

	graded, err := svc.GradeAnswer(ctx, answer.ID, owner.ID, dto.GradeRequest{Points: &points, Feedback: "solid"})
	require.NoError(t, err)
	require.Equal(t, 8, graded.Points)
	require.True(t, events.published(SubjectAnswerGraded))
	require.Equal(t, 1, cache.invalidations())

	var reloaded models.CourseMember
	require.NoError(t, db.First(&reloaded, member.ID).Error)
	require.Equal(t, 8, reloaded.AchievedScore)
}

func TestScoringServiceAnswerQuestion(t *testing.T) {
	db, svc, events, _ := setupScoringService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Latin")
	member := createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	question, err := svc.CreateQuestion(ctx, course.ID, owner.ID, "Plural of virus?", []string{"viri", "viruses", "virii"}, 1, 5)
	require.NoError(t, err)

	// Selecting outside the option range is rejected.
	bad := 7
	_, err = svc.AnswerQuestion(ctx, question.ID, student.ID, dto.QuizAnswerRequest{SelectedOption: &bad})
	require.ErrorIs(t, err, ErrInvalidOption)

	wrong := 0
	result, err := svc.AnswerQuestion(ctx, question.ID, student.ID, dto.QuizAnswerRequest{SelectedOption: &wrong})
	require.NoError(t, err)
	require.False(t, result.Correct)
	require.Equal(t, 0, result.Points)

	right := 1
	result, err = svc.AnswerQuestion(ctx, question.ID, student.ID, dto.QuizAnswerRequest{SelectedOption: &right})
	require.NoError(t, err)
	require.True(t, result.Correct)
	require.Equal(t, 5, result.Points)
	require.True(t, events.published(SubjectQuizAnswered))

	// The re-answer adjusted the score instead of stacking results.
	var reloaded models.CourseMember
	require.NoError(t, db.First(&reloaded, member.ID).Error)
	require.Equal(t, 5, reloaded.AchievedScore)
}

func TestScoringServiceAnswerQuestionRequiresEnrollment(t *testing.T) {
	db, svc, _, _ := setupScoringService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	outsider := createUser(t, db, "Outsider", 0)
	course := createCourse(t, db, owner.ID, "Greek")

	question, err := svc.CreateQuestion(ctx, course.ID, owner.ID, "Alpha?", []string{"a", "b"}, 0, 2)
	require.NoError(t, err)

	selected := 0
	_, err = svc.AnswerQuestion(ctx, question.ID, outsider.ID, dto.QuizAnswerRequest{SelectedOption: &selected})
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestScoringServiceCreateQuestionValidatesCorrectOption(t *testing.T) {
	db, svc, _, _ := setupScoringService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	course := createCourse(t, db, owner.ID, "Logic")

	_, err := svc.CreateQuestion(ctx, course.ID, owner.ID, "P or not P?", []string{"true", "false"}, 5, 1)
	require.ErrorIs(t, err, ErrInvalidOption)
}
