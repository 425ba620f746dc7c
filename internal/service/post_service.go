package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

// Post errors.
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyBody       = errors.New("body empty after sanitization")
)

// PostService owns the course feed: posts, comments, and the image assets
// attached to them.
type PostService interface {
	Create(ctx context.Context, userID uint, payload dto.PostCreateRequest, image *multipart.FileHeader) (dto.PostResponse, error)
	Get(ctx context.Context, postID uint) (dto.PostResponse, error)
	ListByCourse(ctx context.Context, courseID uint, page, pageSize int) ([]dto.PostResponse, int64, error)
	Delete(ctx context.Context, postID, actorID uint) error
	CreateComment(ctx context.Context, postID, userID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	DeleteComment(ctx context.Context, commentID, actorID uint) error
}

type postService struct {
	posts      repository.PostRepository
	membership MembershipService
	uploader   FileUploader
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewPostService constructs a PostService instance.
func NewPostService(posts repository.PostRepository, membership MembershipService, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) PostService {
	return &postService{
		posts:      posts,
		membership: membership,
		uploader:   uploader,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "post_service").Logger(),
	}
}

func (s *postService) Create(ctx context.Context, userID uint, payload dto.PostCreateRequest, image *multipart.FileHeader) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, payload.CourseID, userID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	if !role.IsEnrolled() {
		return dto.PostResponse{}, ErrForbidden
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if body == "" {
		return dto.PostResponse{}, ErrEmptyBody
	}

	imageURL := ""
	if image != nil {
		if err := validateFileType(image, allowedImageTypes); err != nil {
			return dto.PostResponse{}, err
		}
		imageURL, err = uploadFile(ctx, s.uploader, image)
		if err != nil {
			return dto.PostResponse{}, err
		}
	}

	post := models.Post{
		CourseID: payload.CourseID,
		UserID:   userID,
		Body:     body,
		ImageURL: imageURL,
	}
	if err := s.posts.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	s.logger.Info().Uint("post_id", post.ID).Uint("course_id", payload.CourseID).Msg("post created")

	return dto.NewPostResponse(post, 0, 0), nil
}

func (s *postService) Get(ctx context.Context, postID uint) (dto.PostResponse, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, ErrPostNotFound
		}
		return dto.PostResponse{}, err
	}

	likes, err := s.posts.CountReactions(ctx, postID, models.ReactionLike)
	if err != nil {
		return dto.PostResponse{}, err
	}
	dislikes, err := s.posts.CountReactions(ctx, postID, models.ReactionDislike)
	if err != nil {
		return dto.PostResponse{}, err
	}

	return dto.NewPostResponse(post, likes, dislikes), nil
}

func (s *postService) ListByCourse(ctx context.Context, courseID uint, page, pageSize int) ([]dto.PostResponse, int64, error) {
	posts, total, err := s.posts.ListByCourse(ctx, courseID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]dto.PostResponse, 0, len(posts))
	for _, post := range posts {
		responses = append(responses, dto.NewPostResponse(post, 0, 0))
	}

	return responses, total, nil
}

// Delete removes the post, its comments and reactions, and the uploaded
// image. Allowed for the author or a course manager.
func (s *postService) Delete(ctx context.Context, postID, actorID uint) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	if post.UserID != actorID {
		role, err := s.membership.ResolveRole(ctx, post.CourseID, actorID)
		if err != nil {
			return err
		}
		if !role.CanManage() {
			return ErrForbidden
		}
	}

	deleted, err := s.posts.Delete(ctx, postID)
	if err != nil {
		return err
	}

	if deleted.ImageURL != "" {
		if err := s.uploader.Destroy(ctx, deleted.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("image_url", deleted.ImageURL).Msg("failed to remove post image")
		}
	}

	s.logger.Info().Uint("post_id", postID).Msg("post deleted")

	return nil
}

func (s *postService) CreateComment(ctx context.Context, postID, userID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CommentResponse{}, ErrPostNotFound
		}
		return dto.CommentResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, post.CourseID, userID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	if !role.IsEnrolled() {
		return dto.CommentResponse{}, ErrForbidden
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if body == "" {
		return dto.CommentResponse{}, ErrEmptyBody
	}

	comment := models.Comment{
		PostID: postID,
		UserID: userID,
		Body:   body,
	}
	if err := s.posts.CreateComment(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *postService) DeleteComment(ctx context.Context, commentID, actorID uint) error {
	comment, err := s.posts.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	if comment.UserID != actorID {
		post, err := s.posts.GetByID(ctx, comment.PostID)
		if err != nil {
			return err
		}
		role, err := s.membership.ResolveRole(ctx, post.CourseID, actorID)
		if err != nil {
			return err
		}
		if !role.CanManage() {
			return ErrForbidden
		}
	}

	return s.posts.DeleteComment(ctx, commentID)
}
