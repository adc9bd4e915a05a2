package repository

import (
	"context"
	"errors"

	"odinbook/internal/cache"
	"odinbook/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, q models.PostQuery) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	DeleteAll(ctx context.Context) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewUpstreamError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetByIDForUpdate reads the post from the primary without the cache.
func (r *postRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewUpstreamError(err)
	}
	return &post, nil
}

// List returns one page of posts, newest first.
func (r *postRepository) List(ctx context.Context, q models.PostQuery) ([]*models.Post, error) {
	if q.AuthorIDs != nil && len(q.AuthorIDs) == 0 {
		return []*models.Post{}, nil
	}
	limit := q.Limit
	if limit <= 0 || limit > models.PostPageSize {
		limit = models.PostPageSize
	}

	query := readDB(r.db).WithContext(ctx).Preload("User").Order("id DESC").Limit(limit)
	if q.AuthorIDs != nil {
		query = query.Where("user_id IN ?", q.AuthorIDs)
	}
	if q.BeforeID > 0 {
		query = query.Where("id < ?", q.BeforeID)
	}

	posts := []*models.Post{}
	if err := query.Find(&posts).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return posts, nil
}

// Update persists the likes and comments lists of post.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(post).Omit(clause.Associations).
		Select("likes", "comments").Updates(post)
	if res.Error != nil {
		return models.NewUpstreamError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}
