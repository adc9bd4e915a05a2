package repository

import (
	"context"
	"errors"

	"odinbook/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.Comment, error)
	DeleteAll(ctx context.Context) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := readDB(r.db).WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewUpstreamError(err)
	}
	return &comment, nil
}

// ListByIDs returns comments in the order of ids, skipping unknown IDs.
func (r *commentRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Comment, error) {
	if len(ids) == 0 {
		return []*models.Comment{}, nil
	}
	var comments []*models.Comment
	if err := readDB(r.db).WithContext(ctx).Preload("User").Where("id IN ?", ids).Find(&comments).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	byID := make(map[uint]*models.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}
	out := make([]*models.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *commentRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.Comment{}).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}
