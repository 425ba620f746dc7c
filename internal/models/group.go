package models

import "time"

const (
	// GroupPrivacyPublic groups approve joins immediately.
	GroupPrivacyPublic = "public"
	// GroupPrivacyPrivate groups queue joins for admin approval.
	GroupPrivacyPrivate = "private"
)

const (
	// GroupRequestPending awaits an admin decision.
	GroupRequestPending = "pending"
	// GroupRequestApproved is a confirmed membership.
	GroupRequestApproved = "approved"
)

// CourseGroup is a sub-group within a course.
type CourseGroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;uniqueIndex:idx_course_group_name" json:"course_id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex:idx_course_group_name" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Privacy     string    `gorm:"size:16;not null;default:public" json:"privacy"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPrivate reports whether joins require approval.
func (g CourseGroup) IsPrivate() bool {
	return g.Privacy == GroupPrivacyPrivate
}

// CourseGroupMember records a user's membership (or pending request) in a
// group. Rejection deletes the row, so a later re-request starts clean.
type CourseGroupMember struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	GroupID       uint        `gorm:"not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID        uint        `gorm:"not null;uniqueIndex:idx_group_user" json:"user_id"`
	RequestStatus string      `gorm:"size:16;not null;default:pending" json:"request_status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Group         CourseGroup `json:"group"`
	User          User        `json:"user"`
}

// IsApproved reports whether the membership is confirmed.
func (m CourseGroupMember) IsApproved() bool {
	return m.RequestStatus == GroupRequestApproved
}

// IsPending reports whether the request awaits a decision.
func (m CourseGroupMember) IsPending() bool {
	return m.RequestStatus == GroupRequestPending
}
