package models

import "time"

// Assignment is a scorable activity within a course. PointValue is the
// maximum obtainable score and contributes to Course.TotalScore.
type Assignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`
	PointValue  int       `gorm:"not null;default:0" json:"point_value"`
	FileURL     string    `gorm:"size:512" json:"file_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

const (
	// AnswerStatusSubmitted indicates the answer has been uploaded but not graded.
	AnswerStatusSubmitted = "submitted"
	// AnswerStatusGraded indicates the answer has been evaluated.
	AnswerStatusGraded = "graded"
)

// AssignmentAnswer is a member's submission for an assignment, unique per
// (assignment, user). Points contribute to CourseMember.AchievedScore and
// are only mutated inside the grading transaction.
type AssignmentAnswer struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;uniqueIndex:idx_assignment_user" json:"assignment_id"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_assignment_user" json:"user_id"`
	Points       int        `gorm:"not null;default:0" json:"points"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	FileURL      string     `gorm:"size:512" json:"file_url"`
	Status       string     `gorm:"size:32;not null;default:submitted" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assignment   Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	User         User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// IsGraded reports whether the answer has been evaluated.
func (a AssignmentAnswer) IsGraded() bool {
	return a.Status == AnswerStatusGraded
}
