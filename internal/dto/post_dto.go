package dto

import (
	"time"

	"github.com/classloop/classloop-api/internal/models"
)

// PostCreateRequest describes the payload for creating a feed post. Body is
// sanitized before storage; an optional image is uploaded separately.
type PostCreateRequest struct {
	CourseID uint   `form:"course_id" json:"course_id" validate:"required,min=1"`
	Body     string `form:"body" json:"body" validate:"required,min=1"`
}

// PostResponse is the serialized post.
type PostResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Body      string    `json:"body"`
	ImageURL  string    `json:"image_url"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPostResponse converts a model into a DTO.
func NewPostResponse(post models.Post, likes, dislikes int64) PostResponse {
	return PostResponse{
		ID:        post.ID,
		CourseID:  post.CourseID,
		UserID:    post.UserID,
		UserName:  post.User.Name,
		Body:      post.Body,
		ImageURL:  post.ImageURL,
		Likes:     likes,
		Dislikes:  dislikes,
		CreatedAt: post.CreatedAt,
	}
}

// CommentCreateRequest describes the payload for commenting on a post.
type CommentCreateRequest struct {
	Body string `json:"body" validate:"required,min=1"`
}

// CommentResponse is the serialized comment.
type CommentResponse struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCommentResponse converts a model into a DTO.
func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		UserName:  comment.User.Name,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

// ReactionRequest toggles a like or dislike on a post.
type ReactionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=like dislike"`
}

// ReactionResponse reports the reaction state and the actor's balance after
// the transfer.
type ReactionResponse struct {
	PostID       uint   `json:"post_id"`
	Kind         string `json:"kind,omitempty"`
	Active       bool   `json:"active"`
	ActorBalance int    `json:"actor_balance"`
}
