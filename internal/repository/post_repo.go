package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

// PostRepository defines persistence operations for posts, comments and
// reaction lookups.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (models.Post, error)
	ListByCourse(ctx context.Context, courseID uint, page, pageSize int) ([]models.Post, int64, error)
	Delete(ctx context.Context, id uint) (models.Post, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (models.Comment, error)
	DeleteComment(ctx context.Context, id uint) error
	GetReaction(ctx context.Context, postID, userID uint) (models.Reaction, error)
	CountReactions(ctx context.Context, postID uint, kind string) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository instantiates a GORM-backed repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return models.Post{}, err
	}

	return post, nil
}

func (r *postRepository) ListByCourse(ctx context.Context, courseID uint, page, pageSize int) ([]models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{}).Where("course_id = ?", courseID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var posts []models.Post
	if err := query.Preload("User").Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

// Delete removes the post together with its comments and reactions so no
// orphaned rows survive the destroy.
func (r *postRepository) Delete(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.Post{}, err
	}

	return post, nil
}

func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *postRepository) GetCommentByID(ctx context.Context, id uint) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return models.Comment{}, err
	}

	return comment, nil
}

func (r *postRepository) DeleteComment(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) GetReaction(ctx context.Context, postID, userID uint) (models.Reaction, error) {
	var reaction models.Reaction
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&reaction).Error; err != nil {
		return models.Reaction{}, err
	}

	return reaction, nil
}

func (r *postRepository) CountReactions(ctx context.Context, postID uint, kind string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Where("post_id = ? AND kind = ?", postID, kind).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
