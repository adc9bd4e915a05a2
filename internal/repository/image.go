package repository

import (
	"context"
	"errors"

	"odinbook/internal/models"

	"gorm.io/gorm"
)

// ImageRepository stores uploaded image blobs.
type ImageRepository interface {
	Store(ctx context.Context, img *models.Image) error
	Get(ctx context.Context, id uint) (*models.Image, error)
	DeleteAll(ctx context.Context) error
}

type imageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Store(ctx context.Context, img *models.Image) error {
	if err := r.db.WithContext(ctx).Create(img).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}

func (r *imageRepository) Get(ctx context.Context, id uint) (*models.Image, error) {
	var img models.Image
	if err := readDB(r.db).WithContext(ctx).First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", id)
		}
		return nil, models.NewUpstreamError(err)
	}
	return &img, nil
}

func (r *imageRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Image{}).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}
