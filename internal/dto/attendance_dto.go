package dto

import (
	"time"

	"github.com/classloop/classloop-api/internal/models"
)

// SessionCreateRequest describes the payload for opening a check-in window.
type SessionCreateRequest struct {
	Title     string `json:"title" validate:"required,min=2,max=255"`
	GroupID   *uint  `json:"group_id" validate:"omitempty,min=1"`
	StartAt   string `json:"start_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	FinishAt  string `json:"finish_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	LateAfter int    `json:"late_after" validate:"min=0"`
}

// SessionResponse is the serialized attendance session.
type SessionResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	GroupID   *uint     `json:"group_id"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"start_at"`
	FinishAt  time.Time `json:"finish_at"`
	LateAfter int       `json:"late_after"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionResponse converts a model into a DTO.
func NewSessionResponse(attendance models.CourseAttendance) SessionResponse {
	return SessionResponse{
		ID:        attendance.ID,
		CourseID:  attendance.CourseID,
		GroupID:   attendance.GroupID,
		Title:     attendance.Title,
		StartAt:   attendance.StartAt,
		FinishAt:  attendance.FinishAt,
		LateAfter: attendance.LateAfter,
		CreatedAt: attendance.CreatedAt,
	}
}

// NewSessionResponseSlice converts a slice of models into DTOs.
func NewSessionResponseSlice(sessions []models.CourseAttendance) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, NewSessionResponse(session))
	}

	return responses
}

// CheckInResponse reports the recorded status and check-in time.
type CheckInResponse struct {
	Status int        `json:"status"`
	TimeIn *time.Time `json:"time_in"`
}

// SetStatusRequest is the admin override payload.
type SetStatusRequest struct {
	Status *int `json:"status" validate:"required,min=0,max=3"`
}

// DetailResponse is the serialized attendance detail row.
type DetailResponse struct {
	ID             uint       `json:"id"`
	AttendanceID   uint       `json:"attendance_id"`
	CourseMemberID uint       `json:"course_member_id"`
	Status         int        `json:"status"`
	TimeIn         *time.Time `json:"time_in"`
}

// NewDetailResponse converts a model into a DTO.
func NewDetailResponse(detail models.AttendanceDetail) DetailResponse {
	return DetailResponse{
		ID:             detail.ID,
		AttendanceID:   detail.AttendanceID,
		CourseMemberID: detail.CourseMemberID,
		Status:         detail.Status,
		TimeIn:         detail.TimeIn,
	}
}

// RosterEntry pairs a course member with their record for one session.
// Recorded is false when the member has no detail row yet.
type RosterEntry struct {
	CourseMemberID uint       `json:"course_member_id"`
	UserID         uint       `json:"user_id"`
	UserName       string     `json:"user_name"`
	Recorded       bool       `json:"recorded"`
	Status         *int       `json:"status"`
	TimeIn         *time.Time `json:"time_in"`
}
