package models

import "time"

// Attendance detail statuses. Absent is stored explicitly so that a missing
// row always means "not yet recorded".
const (
	AttendanceAbsent  = 0
	AttendancePresent = 1
	AttendanceLate    = 2
	AttendanceExcused = 3
)

// ValidAttendanceStatus reports whether the value is a known status.
func ValidAttendanceStatus(status int) bool {
	return status >= AttendanceAbsent && status <= AttendanceExcused
}

// CourseAttendance is a check-in window for a course session. GroupID narrows
// the session to a single group when set.
type CourseAttendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	StartAt   time.Time `gorm:"not null" json:"start_at"`
	FinishAt  time.Time `gorm:"not null" json:"finish_at"`
	LateAfter int       `gorm:"not null;default:0" json:"late_after"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WindowContains reports whether the instant falls inside the check-in window.
func (a CourseAttendance) WindowContains(t time.Time) bool {
	return !t.Before(a.StartAt) && !t.After(a.FinishAt)
}

// LateDeadline returns the instant after which a check-in counts as late.
func (a CourseAttendance) LateDeadline() time.Time {
	return a.StartAt.Add(time.Duration(a.LateAfter) * time.Minute)
}

// CheckInStatus classifies a check-in instant within the window.
func (a CourseAttendance) CheckInStatus(t time.Time) int {
	if t.After(a.LateDeadline()) {
		return AttendanceLate
	}
	return AttendancePresent
}

// AttendanceDetail is one member's record for one session. Unique per
// (attendance, course member); created by check-in or admin override.
type AttendanceDetail struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	AttendanceID   uint             `gorm:"not null;uniqueIndex:idx_attendance_member" json:"attendance_id"`
	CourseMemberID uint             `gorm:"not null;uniqueIndex:idx_attendance_member" json:"course_member_id"`
	Status         int              `gorm:"not null;default:0" json:"status"`
	TimeIn         *time.Time       `json:"time_in"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Attendance     CourseAttendance `json:"attendance"`
}

// CheckedIn reports whether the member already has a present or late record.
func (d AttendanceDetail) CheckedIn() bool {
	return d.Status == AttendancePresent || d.Status == AttendanceLate
}
