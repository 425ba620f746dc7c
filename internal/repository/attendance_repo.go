package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classloop/classloop-api/internal/models"
)

// AttendanceStatusCount aggregates detail rows per member and status.
type AttendanceStatusCount struct {
	CourseMemberID uint
	Status         int
	Count          int64
}

// AttendanceRepository defines persistence operations for sessions and
// per-member detail rows.
type AttendanceRepository interface {
	CreateSession(ctx context.Context, attendance *models.CourseAttendance) error
	GetSessionByID(ctx context.Context, id uint) (models.CourseAttendance, error)
	UpdateSession(ctx context.Context, attendance *models.CourseAttendance) error
	ListSessionsByCourse(ctx context.Context, courseID uint) ([]models.CourseAttendance, error)
	GetDetail(ctx context.Context, attendanceID, memberID uint) (models.AttendanceDetail, error)
	ListDetails(ctx context.Context, attendanceID uint) ([]models.AttendanceDetail, error)
	RecordCheckIn(ctx context.Context, attendanceID, memberID uint, status int, timeIn time.Time) (models.AttendanceDetail, bool, error)
	SetStatus(ctx context.Context, attendanceID, memberID uint, status int) (models.AttendanceDetail, error)
	CountByStatus(ctx context.Context, courseID uint) ([]AttendanceStatusCount, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates a GORM-backed repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) CreateSession(ctx context.Context, attendance *models.CourseAttendance) error {
	return r.db.WithContext(ctx).Create(attendance).Error
}

func (r *attendanceRepository) GetSessionByID(ctx context.Context, id uint) (models.CourseAttendance, error) {
	var attendance models.CourseAttendance
	if err := r.db.WithContext(ctx).First(&attendance, id).Error; err != nil {
		return models.CourseAttendance{}, err
	}

	return attendance, nil
}

func (r *attendanceRepository) UpdateSession(ctx context.Context, attendance *models.CourseAttendance) error {
	return r.db.WithContext(ctx).Save(attendance).Error
}

func (r *attendanceRepository) ListSessionsByCourse(ctx context.Context, courseID uint) ([]models.CourseAttendance, error) {
	var sessions []models.CourseAttendance
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("start_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *attendanceRepository) GetDetail(ctx context.Context, attendanceID, memberID uint) (models.AttendanceDetail, error) {
	var detail models.AttendanceDetail
	if err := r.db.WithContext(ctx).
		Where("attendance_id = ? AND course_member_id = ?", attendanceID, memberID).
		First(&detail).Error; err != nil {
		return models.AttendanceDetail{}, err
	}

	return detail, nil
}

func (r *attendanceRepository) ListDetails(ctx context.Context, attendanceID uint) ([]models.AttendanceDetail, error) {
	var details []models.AttendanceDetail
	if err := r.db.WithContext(ctx).
		Where("attendance_id = ?", attendanceID).
		Find(&details).Error; err != nil {
		return nil, err
	}

	return details, nil
}

// RecordCheckIn writes the member's detail row unless a present or late row
// already exists, in which case it returns the existing row with created set
// to false. The unique index on (attendance_id, course_member_id) turns a
// concurrent duplicate check-in into a conflict that resolves to the first
// writer's row.
func (r *attendanceRepository) RecordCheckIn(ctx context.Context, attendanceID, memberID uint, status int, timeIn time.Time) (models.AttendanceDetail, bool, error) {
	var detail models.AttendanceDetail
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing := models.AttendanceDetail{}
		err := lockForUpdate(tx).
			Where("attendance_id = ? AND course_member_id = ?", attendanceID, memberID).
			First(&existing).Error

		switch {
		case err == nil:
			if existing.CheckedIn() {
				detail = existing
				return nil
			}
			existing.Status = status
			existing.TimeIn = &timeIn
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			detail = existing
			created = true
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			detail = models.AttendanceDetail{
				AttendanceID:   attendanceID,
				CourseMemberID: memberID,
				Status:         status,
				TimeIn:         &timeIn,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "attendance_id"}, {Name: "course_member_id"}},
				DoNothing: true,
			}).Create(&detail).Error; err != nil {
				return err
			}
			if detail.ID == 0 {
				// Lost the race; surface the winner's row.
				return tx.Where("attendance_id = ? AND course_member_id = ?", attendanceID, memberID).
					First(&detail).Error
			}
			created = true
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return models.AttendanceDetail{}, false, err
	}

	return detail, created, nil
}

// SetStatus is the admin override: it upserts the detail row unconditionally,
// including an explicit absent row for status 0.
func (r *attendanceRepository) SetStatus(ctx context.Context, attendanceID, memberID uint, status int) (models.AttendanceDetail, error) {
	detail := models.AttendanceDetail{
		AttendanceID:   attendanceID,
		CourseMemberID: memberID,
		Status:         status,
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attendance_id"}, {Name: "course_member_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"status": status}),
	}).Create(&detail).Error; err != nil {
		return models.AttendanceDetail{}, err
	}

	return r.GetDetail(ctx, attendanceID, memberID)
}

func (r *attendanceRepository) CountByStatus(ctx context.Context, courseID uint) ([]AttendanceStatusCount, error) {
	var counts []AttendanceStatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.AttendanceDetail{}).
		Select("attendance_details.course_member_id, attendance_details.status, COUNT(*) as count").
		Joins("JOIN course_attendances ON course_attendances.id = attendance_details.attendance_id").
		Where("course_attendances.course_id = ?", courseID).
		Group("attendance_details.course_member_id, attendance_details.status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	return counts, nil
}
