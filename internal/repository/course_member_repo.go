package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classloop/classloop-api/internal/models"
)

// CourseMemberFilter narrows membership listings.
type CourseMemberFilter struct {
	Role     string
	Status   string
	GroupID  *uint
	Page     int
	PageSize int
}

// CourseMemberRepository defines persistence operations for enrollments.
type CourseMemberRepository interface {
	Enroll(ctx context.Context, member *models.CourseMember) error
	GetByID(ctx context.Context, id uint) (models.CourseMember, error)
	GetByCourseAndUser(ctx context.Context, courseID, userID uint) (models.CourseMember, error)
	List(ctx context.Context, courseID uint, filter CourseMemberFilter) ([]models.CourseMember, int64, error)
	ListByScore(ctx context.Context, courseID uint) ([]models.CourseMember, error)
	Update(ctx context.Context, member *models.CourseMember) error
	Remove(ctx context.Context, id uint) error
	RecomputeAchievedScore(ctx context.Context, id uint) (models.CourseMember, error)
}

type courseMemberRepository struct {
	db *gorm.DB
}

// NewCourseMemberRepository instantiates a GORM-backed repository.
func NewCourseMemberRepository(db *gorm.DB) CourseMemberRepository {
	return &courseMemberRepository{db: db}
}

// Enroll creates the enrollment if it does not exist yet. The unique index on
// (course_id, user_id) backstops concurrent first-enrollment races.
func (r *courseMemberRepository) Enroll(ctx context.Context, member *models.CourseMember) error {
	return r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", member.CourseID, member.UserID).
		Attrs(models.CourseMember{Role: models.MemberRoleMember, Status: models.MemberStatusActive}).
		FirstOrCreate(member).Error
}

func (r *courseMemberRepository) GetByID(ctx context.Context, id uint) (models.CourseMember, error) {
	var member models.CourseMember
	if err := r.db.WithContext(ctx).Preload("User").First(&member, id).Error; err != nil {
		return models.CourseMember{}, err
	}

	return member, nil
}

func (r *courseMemberRepository) GetByCourseAndUser(ctx context.Context, courseID, userID uint) (models.CourseMember, error) {
	var member models.CourseMember
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&member).Error; err != nil {
		return models.CourseMember{}, err
	}

	return member, nil
}

func (r *courseMemberRepository) List(ctx context.Context, courseID uint, filter CourseMemberFilter) ([]models.CourseMember, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CourseMember{}).Where("course_id = ?", courseID)

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.GroupID != nil {
		query = query.Where("group_id = ?", *filter.GroupID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var members []models.CourseMember
	if err := query.Preload("User").Order("order_number ASC, id ASC").Find(&members).Error; err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

func (r *courseMemberRepository) ListByScore(ctx context.Context, courseID uint) ([]models.CourseMember, error) {
	var members []models.CourseMember
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND status = ?", courseID, models.MemberStatusActive).
		Preload("User").
		Order("achieved_score + bonus_points DESC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}

	return members, nil
}

func (r *courseMemberRepository) Update(ctx context.Context, member *models.CourseMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// Remove marks the enrollment removed and drops the member from their group
// in a single transaction.
func (r *courseMemberRepository) Remove(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.CourseMember
		if err := lockForUpdate(tx).First(&member, id).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND group_id IN (?)",
			member.UserID,
			tx.Model(&models.CourseGroup{}).Select("id").Where("course_id = ?", member.CourseID),
		).Delete(&models.CourseGroupMember{}).Error; err != nil {
			return err
		}

		member.Status = models.MemberStatusRemoved
		member.GroupID = nil
		return tx.Save(&member).Error
	})
}

// RecomputeAchievedScore rebuilds the member's achieved score as the sum of
// their graded answer points and quiz result points. This is the drift-repair
// path; the regular grading paths apply exact deltas instead.
func (r *courseMemberRepository) RecomputeAchievedScore(ctx context.Context, id uint) (models.CourseMember, error) {
	var member models.CourseMember

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&member, id).Error; err != nil {
			return err
		}

		var answerSum int64
		if err := tx.Model(&models.AssignmentAnswer{}).
			Joins("JOIN assignments ON assignments.id = assignment_answers.assignment_id").
			Where("assignments.course_id = ? AND assignment_answers.user_id = ?", member.CourseID, member.UserID).
			Select("COALESCE(SUM(assignment_answers.points), 0)").
			Scan(&answerSum).Error; err != nil {
			return err
		}

		var quizSum int64
		if err := tx.Model(&models.CourseQuizResult{}).
			Where("course_member_id = ?", member.ID).
			Select("COALESCE(SUM(points), 0)").
			Scan(&quizSum).Error; err != nil {
			return err
		}

		member.AchievedScore = int(answerSum + quizSum)
		return tx.Model(&models.CourseMember{}).
			Where("id = ?", member.ID).
			Update("achieved_score", member.AchievedScore).Error
	})
	if err != nil {
		return models.CourseMember{}, err
	}

	return member, nil
}

// lockForUpdate takes a row lock on the queried rows. SQLite (used in tests)
// has no row locks and serializes writers on the database lock instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
