package repository

import (
	"context"
	"errors"

	"folio/internal/models"
	"folio/internal/observability"

	"gorm.io/gorm"
)

// PhotoRepository stores uploaded photo metadata.
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByHash(ctx context.Context, hash string) (*models.Photo, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Photo, error)
}

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository returns a GORM-backed PhotoRepository.
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *models.Photo) error {
	defer observability.TrackQuery("create", "photos")()

	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return models.NewPersistenceError(err)
	}
	return nil
}

// GetByHash returns (nil, nil) when no photo has hash.
func (r *photoRepository) GetByHash(ctx context.Context, hash string) (*models.Photo, error) {
	defer observability.TrackQuery("get_by_hash", "photos")()

	var photo models.Photo
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewPersistenceError(err)
	}
	return &photo, nil
}

func (r *photoRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Photo, error) {
	defer observability.TrackQuery("list_by_user", "photos")()

	photos := []models.Photo{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&photos).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return photos, nil
}
