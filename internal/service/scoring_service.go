package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

// Scoring errors.
var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAnswerNotFound     = errors.New("answer not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAssignmentPastDue  = errors.New("assignment is past due")
	ErrInvalidOption      = errors.New("selected option out of range")
)

// ScoringService owns assignments, answers, quiz results, and every score
// rollup they cause. Points only move through the repository's transactional
// operations, so achieved_score and total_score always shift by exact deltas.
type ScoringService interface {
	CreateAssignment(ctx context.Context, courseID, actorID uint, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error)
	ListAssignments(ctx context.Context, courseID uint, filter repository.AssignmentFilter) ([]dto.AssignmentResponse, int64, error)
	SetAssignmentPoints(ctx context.Context, assignmentID, actorID uint, points int) (dto.AssignmentResponse, error)
	DeleteAssignment(ctx context.Context, assignmentID, actorID uint) error
	SubmitAnswer(ctx context.Context, assignmentID, userID uint, file *multipart.FileHeader) (dto.AnswerResponse, error)
	ListAnswers(ctx context.Context, assignmentID, actorID uint) ([]dto.AnswerResponse, error)
	GradeAnswer(ctx context.Context, answerID, actorID uint, payload dto.GradeRequest) (dto.AnswerResponse, error)
	DeleteAnswer(ctx context.Context, answerID, actorID uint) error
	AnswerQuestion(ctx context.Context, questionID, userID uint, payload dto.QuizAnswerRequest) (dto.QuizResultResponse, error)
	CreateQuestion(ctx context.Context, courseID, actorID uint, prompt string, options []string, correctOption, pointValue int) (models.Question, error)
}

type scoringService struct {
	assignments repository.AssignmentRepository
	quizzes     repository.QuizRepository
	members     repository.CourseMemberRepository
	membership  MembershipService
	events      EventPublisher
	standings   StandingsCache
	uploader    FileUploader
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewScoringService constructs a ScoringService instance.
func NewScoringService(assignments repository.AssignmentRepository, quizzes repository.QuizRepository, members repository.CourseMemberRepository, membership MembershipService, events EventPublisher, standings StandingsCache, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) ScoringService {
	return &scoringService{
		assignments: assignments,
		quizzes:     quizzes,
		members:     members,
		membership:  membership,
		events:      events,
		standings:   standings,
		uploader:    uploader,
		validator:   validate,
		logger:      logger.With().Str("component", "scoring_service").Logger(),
		now:         time.Now,
	}
}

func (s *scoringService) CreateAssignment(ctx context.Context, courseID, actorID uint, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if !role.CanManage() {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
	}
	if dueDate.Before(s.now()) {
		return dto.AssignmentResponse{}, ErrAssignmentPastDue
	}

	fileURL := ""
	if file != nil {
		if err := validateFileType(file, allowedUploadTypes); err != nil {
			return dto.AssignmentResponse{}, err
		}
		fileURL, err = uploadFile(ctx, s.uploader, file)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	assignment := models.Assignment{
		CourseID:    courseID,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     dueDate,
		PointValue:  payload.PointValue,
		FileURL:     fileURL,
	}
	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", courseID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *scoringService) ListAssignments(ctx context.Context, courseID uint, filter repository.AssignmentFilter) ([]dto.AssignmentResponse, int64, error) {
	assignments, total, err := s.assignments.ListByCourse(ctx, courseID, filter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewAssignmentResponseSlice(assignments), total, nil
}

// SetAssignmentPoints changes the assignment's maximum score; the course
// total shifts by the difference inside the repository transaction.
func (s *scoringService) SetAssignmentPoints(ctx context.Context, assignmentID, actorID uint, points int) (dto.AssignmentResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, assignment.CourseID, actorID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if !role.CanManage() {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	updated, err := s.assignments.SetPointValue(ctx, assignmentID, points)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.standings.Invalidate(ctx, assignment.CourseID)
	s.logger.Info().Uint("assignment_id", assignmentID).Int("point_value", points).Msg("assignment point value changed")

	return dto.NewAssignmentResponse(updated), nil
}

func (s *scoringService) DeleteAssignment(ctx context.Context, assignmentID, actorID uint) error {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}

	role, err := s.membership.ResolveRole(ctx, assignment.CourseID, actorID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return ErrForbidden
	}

	deleted, err := s.assignments.Delete(ctx, assignmentID)
	if err != nil {
		return err
	}

	if deleted.FileURL != "" {
		if err := s.uploader.Destroy(ctx, deleted.FileURL); err != nil {
			s.logger.Warn().Err(err).Str("file_url", deleted.FileURL).Msg("failed to remove assignment file")
		}
	}

	s.standings.Invalidate(ctx, assignment.CourseID)
	s.logger.Info().Uint("assignment_id", assignmentID).Msg("assignment deleted")

	return nil
}

func (s *scoringService) SubmitAnswer(ctx context.Context, assignmentID, userID uint, file *multipart.FileHeader) (dto.AnswerResponse, error) {
	if file == nil {
		return dto.AnswerResponse{}, fmt.Errorf("answer file is required")
	}

	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if _, err := s.members.GetByCourseAndUser(ctx, assignment.CourseID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrMemberNotFound
		}
		return dto.AnswerResponse{}, err
	}

	if assignment.IsPastDue(s.now()) {
		return dto.AnswerResponse{}, ErrAssignmentPastDue
	}

	if err := validateFileType(file, allowedUploadTypes); err != nil {
		return dto.AnswerResponse{}, err
	}
	fileURL, err := uploadFile(ctx, s.uploader, file)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	answer := models.AssignmentAnswer{
		AssignmentID: assignmentID,
		UserID:       userID,
		FileURL:      fileURL,
	}
	if err := s.assignments.CreateAnswer(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, err
	}

	s.logger.Info().Uint("answer_id", answer.ID).Uint("assignment_id", assignmentID).Msg("answer submitted")

	return dto.NewAnswerResponse(answer), nil
}

func (s *scoringService) ListAnswers(ctx context.Context, assignmentID, actorID uint) ([]dto.AnswerResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	role, err := s.membership.ResolveRole(ctx, assignment.CourseID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.CanManage() {
		return nil, ErrForbidden
	}

	answers, err := s.assignments.ListAnswers(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewAnswerResponseSlice(answers), nil
}

// GradeAnswer sets the answer's points. The member's achieved score moves by
// (new - old) inside the repository transaction, never recomputed.
func (s *scoringService) GradeAnswer(ctx context.Context, answerID, actorID uint, payload dto.GradeRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	answer, err := s.assignments.GetAnswerByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrAnswerNotFound
		}
		return dto.AnswerResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, answer.Assignment.CourseID, actorID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if !role.CanManage() {
		return dto.AnswerResponse{}, ErrForbidden
	}

	graded, err := s.assignments.GradeAnswer(ctx, answerID, *payload.Points, payload.Feedback)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	s.events.Publish(ctx, SubjectAnswerGraded, map[string]interface{}{
		"answer_id": graded.ID,
		"user_id":   graded.UserID,
		"points":    graded.Points,
	})
	s.standings.Invalidate(ctx, answer.Assignment.CourseID)
	s.logger.Info().Uint("answer_id", answerID).Int("points", graded.Points).Msg("answer graded")

	return dto.NewAnswerResponse(graded), nil
}

// DeleteAnswer removes the answer and reverses its score contribution and
// uploaded file. The answer's owner or a course manager may delete it.
func (s *scoringService) DeleteAnswer(ctx context.Context, answerID, actorID uint) error {
	answer, err := s.assignments.GetAnswerByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnswerNotFound
		}
		return err
	}

	if answer.UserID != actorID {
		role, err := s.membership.ResolveRole(ctx, answer.Assignment.CourseID, actorID)
		if err != nil {
			return err
		}
		if !role.CanManage() {
			return ErrForbidden
		}
	}

	deleted, err := s.assignments.DeleteAnswer(ctx, answerID)
	if err != nil {
		return err
	}

	if deleted.FileURL != "" {
		if err := s.uploader.Destroy(ctx, deleted.FileURL); err != nil {
			s.logger.Warn().Err(err).Str("file_url", deleted.FileURL).Msg("failed to remove answer file")
		}
	}

	s.standings.Invalidate(ctx, answer.Assignment.CourseID)
	s.logger.Info().Uint("answer_id", answerID).Msg("answer deleted")

	return nil
}

// AnswerQuestion records a quiz attempt. A correct answer earns the question
// points; a re-answer adjusts the earlier result by the difference.
func (s *scoringService) AnswerQuestion(ctx context.Context, questionID, userID uint, payload dto.QuizAnswerRequest) (dto.QuizResultResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResultResponse{}, err
	}

	question, err := s.quizzes.GetQuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResultResponse{}, ErrQuestionNotFound
		}
		return dto.QuizResultResponse{}, err
	}

	selected := *payload.SelectedOption
	if selected < 0 || selected >= len(question.Options) {
		return dto.QuizResultResponse{}, ErrInvalidOption
	}

	member, err := s.members.GetByCourseAndUser(ctx, question.CourseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResultResponse{}, ErrMemberNotFound
		}
		return dto.QuizResultResponse{}, err
	}

	points := 0
	if question.IsCorrect(selected) {
		points = question.PointValue
	}

	result, err := s.quizzes.RecordResult(ctx, questionID, member.ID, selected, points)
	if err != nil {
		return dto.QuizResultResponse{}, err
	}

	s.events.Publish(ctx, SubjectQuizAnswered, map[string]interface{}{
		"question_id":      questionID,
		"course_member_id": member.ID,
		"points":           result.Points,
	})
	s.standings.Invalidate(ctx, question.CourseID)
	s.logger.Info().Uint("question_id", questionID).Uint("member_id", member.ID).Int("points", result.Points).Msg("quiz answer recorded")

	return dto.QuizResultResponse{
		ID:             result.ID,
		QuestionID:     result.QuestionID,
		CourseMemberID: result.CourseMemberID,
		Points:         result.Points,
		Correct:        question.IsCorrect(selected),
	}, nil
}

func (s *scoringService) CreateQuestion(ctx context.Context, courseID, actorID uint, prompt string, options []string, correctOption, pointValue int) (models.Question, error) {
	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return models.Question{}, err
	}
	if !role.CanManage() {
		return models.Question{}, ErrForbidden
	}

	if correctOption < 0 || correctOption >= len(options) {
		return models.Question{}, ErrInvalidOption
	}

	question := models.Question{
		CourseID:      courseID,
		Prompt:        prompt,
		Options:       datatypes.NewJSONSlice(options),
		CorrectOption: correctOption,
		PointValue:    pointValue,
	}
	if err := s.quizzes.CreateQuestion(ctx, &question); err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (s *scoringService) loadAssignment(ctx context.Context, assignmentID uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	return assignment, nil
}
