package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

// AssignmentFilter describes pagination & search options.
type AssignmentFilter struct {
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// AssignmentRepository defines persistence operations for assignments and
// answers. Every mutation that moves points runs inside one transaction with
// the affected counter rows locked, so achieved_score and total_score are
// adjusted by exact deltas and can never observe a half-applied change.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListByCourse(ctx context.Context, courseID uint, filter AssignmentFilter) ([]models.Assignment, int64, error)
	SetPointValue(ctx context.Context, id uint, points int) (models.Assignment, error)
	Delete(ctx context.Context, id uint) (models.Assignment, error)
	CreateAnswer(ctx context.Context, answer *models.AssignmentAnswer) error
	GetAnswerByID(ctx context.Context, id uint) (models.AssignmentAnswer, error)
	ListAnswers(ctx context.Context, assignmentID uint) ([]models.AssignmentAnswer, error)
	GradeAnswer(ctx context.Context, answerID uint, points int, feedback string) (models.AssignmentAnswer, error)
	DeleteAnswer(ctx context.Context, answerID uint) (models.AssignmentAnswer, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Create stores the assignment and credits its point value into the course
// total in the same transaction.
func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Course{}).
			Where("id = ?", assignment.CourseID).
			Update("total_score", gorm.Expr("total_score + ?", assignment.PointValue)).Error
	})
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, courseID uint, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("course_id = ?", courseID)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := normalizeAssignmentSort(filter.Sort)
	if order != "" {
		query = query.Order(order)
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

// SetPointValue changes the assignment's maximum score and shifts the course
// total by the difference, never recomputing it from scratch.
func (r *assignmentRepository) SetPointValue(ctx context.Context, id uint, points int) (models.Assignment, error) {
	var assignment models.Assignment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&assignment, id).Error; err != nil {
			return err
		}

		delta := points - assignment.PointValue
		assignment.PointValue = points
		if err := tx.Model(&models.Assignment{}).
			Where("id = ?", assignment.ID).
			Update("point_value", points).Error; err != nil {
			return err
		}

		return tx.Model(&models.Course{}).
			Where("id = ?", assignment.CourseID).
			Update("total_score", gorm.Expr("total_score + ?", delta)).Error
	})
	if err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

// Delete removes the assignment, its answers, and every point contribution
// they made, all in one transaction.
func (r *assignmentRepository) Delete(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&assignment, id).Error; err != nil {
			return err
		}

		var answers []models.AssignmentAnswer
		if err := tx.Where("assignment_id = ?", id).Find(&answers).Error; err != nil {
			return err
		}

		for _, answer := range answers {
			if answer.Points == 0 {
				continue
			}
			if err := tx.Model(&models.CourseMember{}).
				Where("course_id = ? AND user_id = ?", assignment.CourseID, answer.UserID).
				Update("achieved_score", gorm.Expr("achieved_score - ?", answer.Points)).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("assignment_id = ?", id).Delete(&models.AssignmentAnswer{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Course{}).
			Where("id = ?", assignment.CourseID).
			Update("total_score", gorm.Expr("total_score - ?", assignment.PointValue)).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Assignment{}, id).Error
	})
	if err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

// CreateAnswer stores the answer unless one already exists for the
// (assignment, user) pair.
func (r *assignmentRepository) CreateAnswer(ctx context.Context, answer *models.AssignmentAnswer) error {
	return r.db.WithContext(ctx).
		Where("assignment_id = ? AND user_id = ?", answer.AssignmentID, answer.UserID).
		Attrs(models.AssignmentAnswer{
			FileURL: answer.FileURL,
			Status:  models.AnswerStatusSubmitted,
		}).
		FirstOrCreate(answer).Error
}

func (r *assignmentRepository) GetAnswerByID(ctx context.Context, id uint) (models.AssignmentAnswer, error) {
	var answer models.AssignmentAnswer
	if err := r.db.WithContext(ctx).
		Preload("Assignment").
		Preload("User").
		First(&answer, id).Error; err != nil {
		return models.AssignmentAnswer{}, err
	}

	return answer, nil
}

func (r *assignmentRepository) ListAnswers(ctx context.Context, assignmentID uint) ([]models.AssignmentAnswer, error) {
	var answers []models.AssignmentAnswer
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

// GradeAnswer sets the answer's points and feedback and moves the member's
// achieved score by (new - old) in the same transaction.
func (r *assignmentRepository) GradeAnswer(ctx context.Context, answerID uint, points int, feedback string) (models.AssignmentAnswer, error) {
	var answer models.AssignmentAnswer

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Preload("Assignment").First(&answer, answerID).Error; err != nil {
			return err
		}

		delta := points - answer.Points
		answer.Points = points
		answer.Feedback = feedback
		answer.Status = models.AnswerStatusGraded
		if err := tx.Model(&models.AssignmentAnswer{}).
			Where("id = ?", answer.ID).
			Updates(map[string]interface{}{
				"points":   points,
				"feedback": feedback,
				"status":   models.AnswerStatusGraded,
			}).Error; err != nil {
			return err
		}

		if delta == 0 {
			return nil
		}

		return tx.Model(&models.CourseMember{}).
			Where("course_id = ? AND user_id = ?", answer.Assignment.CourseID, answer.UserID).
			Update("achieved_score", gorm.Expr("achieved_score + ?", delta)).Error
	})
	if err != nil {
		return models.AssignmentAnswer{}, err
	}

	return answer, nil
}

// DeleteAnswer removes the answer and subtracts its current point
// contribution from the member's achieved score.
func (r *assignmentRepository) DeleteAnswer(ctx context.Context, answerID uint) (models.AssignmentAnswer, error) {
	var answer models.AssignmentAnswer

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Preload("Assignment").First(&answer, answerID).Error; err != nil {
			return err
		}

		if answer.Points != 0 {
			if err := tx.Model(&models.CourseMember{}).
				Where("course_id = ? AND user_id = ?", answer.Assignment.CourseID, answer.UserID).
				Update("achieved_score", gorm.Expr("achieved_score - ?", answer.Points)).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.AssignmentAnswer{}, answerID).Error
	})
	if err != nil {
		return models.AssignmentAnswer{}, err
	}

	return answer, nil
}

func normalizeAssignmentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "due_date", "due_date:asc":
		return "due_date ASC"
	case "-due_date", "due_date:desc":
		return "due_date DESC"
	case "title", "title:asc":
		return "title ASC"
	case "-title", "title:desc":
		return "title DESC"
	case "updated_at", "updated_at:asc":
		return "updated_at ASC"
	case "-updated_at", "updated_at:desc":
		return "updated_at DESC"
	default:
		return "due_date ASC"
	}
}
