package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

// QuizRepository defines persistence operations for quiz questions and
// results.
type QuizRepository interface {
	CreateQuestion(ctx context.Context, question *models.Question) error
	GetQuestionByID(ctx context.Context, id uint) (models.Question, error)
	ListQuestionsByCourse(ctx context.Context, courseID uint) ([]models.Question, error)
	RecordResult(ctx context.Context, questionID, memberID uint, selectedOption, points int) (models.CourseQuizResult, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates a GORM-backed repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) CreateQuestion(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *quizRepository) GetQuestionByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *quizRepository) ListQuestionsByCourse(ctx context.Context, courseID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

// RecordResult upserts the member's result for a question and shifts the
// member's achieved score by the difference to the previous attempt.
func (r *quizRepository) RecordResult(ctx context.Context, questionID, memberID uint, selectedOption, points int) (models.CourseQuizResult, error) {
	var result models.CourseQuizResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous := 0

		var existing models.CourseQuizResult
		err := lockForUpdate(tx).
			Where("question_id = ? AND course_member_id = ?", questionID, memberID).
			First(&existing).Error
		switch {
		case err == nil:
			previous = existing.Points
			existing.Points = points
			existing.SelectedOption = selectedOption
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			result = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = models.CourseQuizResult{
				QuestionID:     questionID,
				CourseMemberID: memberID,
				Points:         points,
				SelectedOption: selectedOption,
			}
			if err := tx.Create(&result).Error; err != nil {
				return err
			}
		default:
			return err
		}

		delta := points - previous
		if delta == 0 {
			return nil
		}

		return tx.Model(&models.CourseMember{}).
			Where("id = ?", memberID).
			Update("achieved_score", gorm.Expr("achieved_score + ?", delta)).Error
	})
	if err != nil {
		return models.CourseQuizResult{}, err
	}

	return result, nil
}
