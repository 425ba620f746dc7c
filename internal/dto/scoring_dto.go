package dto

import (
	"time"

	"github.com/classloop/classloop-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3"`
	Description string `json:"description" validate:"required,min=10"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	PointValue  int    `json:"point_value" validate:"min=0"`
}

// AssignmentPointsRequest changes the assignment's maximum score.
type AssignmentPointsRequest struct {
	PointValue *int `json:"point_value" validate:"required,min=0"`
}

// AssignmentResponse is the serialized assignment.
type AssignmentResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	PointValue  int       `json:"point_value"`
	FileURL     string    `json:"file_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          assignment.ID,
		CourseID:    assignment.CourseID,
		Title:       assignment.Title,
		Description: assignment.Description,
		DueDate:     assignment.DueDate,
		PointValue:  assignment.PointValue,
		FileURL:     assignment.FileURL,
		CreatedAt:   assignment.CreatedAt,
		UpdatedAt:   assignment.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}

// GradeRequest carries the points and feedback for grading an answer.
type GradeRequest struct {
	Points   *int   `json:"points" validate:"required,min=0"`
	Feedback string `json:"feedback"`
}

// AnswerResponse is the serialized assignment answer.
type AnswerResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	UserID       uint      `json:"user_id"`
	Points       int       `json:"points"`
	Feedback     string    `json:"feedback"`
	FileURL      string    `json:"file_url"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAnswerResponse converts a model into a DTO.
func NewAnswerResponse(answer models.AssignmentAnswer) AnswerResponse {
	return AnswerResponse{
		ID:           answer.ID,
		AssignmentID: answer.AssignmentID,
		UserID:       answer.UserID,
		Points:       answer.Points,
		Feedback:     answer.Feedback,
		FileURL:      answer.FileURL,
		Status:       answer.Status,
		CreatedAt:    answer.CreatedAt,
		UpdatedAt:    answer.UpdatedAt,
	}
}

// NewAnswerResponseSlice converts a slice of models into DTOs.
func NewAnswerResponseSlice(answers []models.AssignmentAnswer) []AnswerResponse {
	responses := make([]AnswerResponse, 0, len(answers))
	for _, answer := range answers {
		responses = append(responses, NewAnswerResponse(answer))
	}

	return responses
}

// QuestionCreateRequest describes the payload for creating a quiz question.
type QuestionCreateRequest struct {
	Prompt        string   `json:"prompt" validate:"required,min=3"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOption int      `json:"correct_option" validate:"min=0"`
	PointValue    int      `json:"point_value" validate:"min=0"`
}

// QuizAnswerRequest carries a member's selected option for a question.
type QuizAnswerRequest struct {
	SelectedOption *int `json:"selected_option" validate:"required,min=0"`
}

// QuizResultResponse reports the points earned on a question.
type QuizResultResponse struct {
	ID             uint `json:"id"`
	QuestionID     uint `json:"question_id"`
	CourseMemberID uint `json:"course_member_id"`
	Points         int  `json:"points"`
	Correct        bool `json:"correct"`
}
