package dto

import (
	"time"

	"github.com/classloop/classloop-api/internal/models"
)

// GroupCreateRequest describes the payload for creating a course group.
type GroupCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description"`
	Privacy     string `json:"privacy" validate:"omitempty,oneof=public private"`
}

// GroupResponse is the serialized group returned to API clients.
type GroupResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Privacy     string    `json:"privacy"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGroupResponse converts a model into a DTO.
func NewGroupResponse(group models.CourseGroup) GroupResponse {
	return GroupResponse{
		ID:          group.ID,
		CourseID:    group.CourseID,
		Name:        group.Name,
		Description: group.Description,
		Privacy:     group.Privacy,
		CreatedAt:   group.CreatedAt,
		UpdatedAt:   group.UpdatedAt,
	}
}

// GroupMemberResponse is the serialized group membership row.
type GroupMemberResponse struct {
	ID            uint      `json:"id"`
	GroupID       uint      `json:"group_id"`
	UserID        uint      `json:"user_id"`
	UserName      string    `json:"user_name,omitempty"`
	RequestStatus string    `json:"request_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewGroupMemberResponse converts a model into a DTO.
func NewGroupMemberResponse(member models.CourseGroupMember) GroupMemberResponse {
	return GroupMemberResponse{
		ID:            member.ID,
		GroupID:       member.GroupID,
		UserID:        member.UserID,
		UserName:      member.User.Name,
		RequestStatus: member.RequestStatus,
		CreatedAt:     member.CreatedAt,
	}
}

// NewGroupMemberResponseSlice converts a slice of models into DTOs.
func NewGroupMemberResponseSlice(members []models.CourseGroupMember) []GroupMemberResponse {
	responses := make([]GroupMemberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, NewGroupMemberResponse(member))
	}

	return responses
}

// JoinResponse reports the outcome of a join request: the resulting request
// status, the group, and the caller's enrollment after any mirror sync.
type JoinResponse struct {
	Status       string               `json:"status"`
	Group        GroupResponse        `json:"group"`
	CourseMember CourseMemberResponse `json:"course_member"`
}
