package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question is a quiz question attached to a course. Options are stored as a
// JSON array; CorrectOption indexes into it.
type Question struct {
	ID            uint                           `gorm:"primaryKey" json:"id"`
	CourseID      uint                           `gorm:"not null;index" json:"course_id"`
	Prompt        string                         `gorm:"type:text;not null" json:"prompt"`
	Options       datatypes.JSONSlice[string]    `gorm:"type:json" json:"options"`
	CorrectOption int                            `gorm:"not null" json:"-"`
	PointValue    int                            `gorm:"not null;default:0" json:"point_value"`
	CreatedAt     time.Time                      `json:"created_at"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// IsCorrect reports whether the selected option index is the right answer.
func (q Question) IsCorrect(option int) bool {
	return option == q.CorrectOption
}

// CourseQuizResult records the points a member earned on a question, unique
// per (question, course member). Re-answers adjust the row in place.
type CourseQuizResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_question_member" json:"question_id"`
	CourseMemberID uint      `gorm:"not null;uniqueIndex:idx_question_member" json:"course_member_id"`
	Points         int       `gorm:"not null;default:0" json:"points"`
	SelectedOption int       `gorm:"not null" json:"selected_option"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
