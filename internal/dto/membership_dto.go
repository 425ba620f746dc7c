package dto

import (
	"time"

	"github.com/classloop/classloop-api/internal/models"
)

// EnrollRequest describes the payload for enrolling a user into a course.
type EnrollRequest struct {
	UserID uint `json:"user_id" validate:"required,min=1"`
}

// CourseMemberResponse is the serialized enrollment returned to API clients.
type CourseMemberResponse struct {
	ID            uint      `json:"id"`
	CourseID      uint      `json:"course_id"`
	UserID        uint      `json:"user_id"`
	UserName      string    `json:"user_name,omitempty"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	GroupID       *uint     `json:"group_id"`
	AchievedScore int       `json:"achieved_score"`
	BonusPoints   int       `json:"bonus_points"`
	Grade         float64   `json:"grade"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewCourseMemberResponse converts a model into a DTO. totalScore feeds the
// derived grade; pass zero when the course total is not loaded.
func NewCourseMemberResponse(member models.CourseMember, totalScore int) CourseMemberResponse {
	return CourseMemberResponse{
		ID:            member.ID,
		CourseID:      member.CourseID,
		UserID:        member.UserID,
		UserName:      member.User.Name,
		Role:          member.Role,
		Status:        member.Status,
		GroupID:       member.GroupID,
		AchievedScore: member.AchievedScore,
		BonusPoints:   member.BonusPoints,
		Grade:         member.Grade(totalScore),
		CreatedAt:     member.CreatedAt,
		UpdatedAt:     member.UpdatedAt,
	}
}

// NewCourseMemberResponseSlice converts a slice of models into DTOs.
func NewCourseMemberResponseSlice(members []models.CourseMember, totalScore int) []CourseMemberResponse {
	responses := make([]CourseMemberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, NewCourseMemberResponse(member, totalScore))
	}

	return responses
}
