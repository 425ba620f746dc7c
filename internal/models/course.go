package models

import "time"

// Course is the top-level container for members, groups and scorable activities.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Code        string    `gorm:"size:32;uniqueIndex" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
	TotalScore  int       `gorm:"not null;default:0" json:"total_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Owner       User      `gorm:"foreignKey:UserID" json:"owner"`
}

const (
	// MemberRoleMember is a regular enrolled learner.
	MemberRoleMember = "member"
	// MemberRoleAssistant can manage attendance and grading.
	MemberRoleAssistant = "assistant"
	// MemberRoleAdmin can additionally manage membership and groups.
	MemberRoleAdmin = "admin"
)

const (
	// MemberStatusActive marks a live enrollment.
	MemberStatusActive = "active"
	// MemberStatusRemoved marks an enrollment revoked by an admin.
	MemberStatusRemoved = "removed"
)

// CourseMember links a user to a course. At most one row exists per
// (course, user); GroupID mirrors the member's approved group and is only
// written inside the group workflow transactions.
type CourseMember struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CourseID      uint      `gorm:"not null;uniqueIndex:idx_course_user" json:"course_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_course_user" json:"user_id"`
	Role          string    `gorm:"size:32;not null;default:member" json:"role"`
	Status        string    `gorm:"size:32;not null;default:active" json:"status"`
	GroupID       *uint     `gorm:"index" json:"group_id"`
	AchievedScore int       `gorm:"not null;default:0" json:"achieved_score"`
	BonusPoints   int       `gorm:"not null;default:0" json:"bonus_points"`
	EditedGrade   *float64  `json:"edited_grade"`
	GradeProgress *float64  `json:"grade_progress"`
	OrderNumber   int       `gorm:"not null;default:0" json:"order_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	User          User      `json:"user"`
}

// IsActive reports whether the enrollment is live.
func (m CourseMember) IsActive() bool {
	return m.Status == MemberStatusActive
}

// HasAdminTier reports whether the member may perform course administration.
func (m CourseMember) HasAdminTier() bool {
	return m.Role == MemberRoleAdmin || m.Role == MemberRoleAssistant
}

// Grade returns the effective grade percentage for the member. An explicit
// edited grade overrides the derived value.
func (m CourseMember) Grade(totalScore int) float64 {
	if m.EditedGrade != nil {
		return *m.EditedGrade
	}
	if totalScore <= 0 {
		return 0
	}
	return float64(m.AchievedScore+m.BonusPoints) / float64(totalScore) * 100
}
