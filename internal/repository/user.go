// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"folio/internal/models"
	"folio/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateUsername is returned by Save when the username is already taken.
var ErrDuplicateUsername = errors.New("repository: username already exists")

// UserRepository defines persistence operations for users. Usernames are
// matched exactly; callers normalize case before calling.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, user *models.User) error
	SetCoverPhoto(ctx context.Context, userID uint, url string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByUsername returns (nil, nil) when no user matches.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	defer observability.TrackQuery("find_by_username", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewPersistenceError(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	defer observability.TrackQuery("exists_by_username", "users")()

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, models.NewPersistenceError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("save", "users")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateUsername
		}
		return models.NewPersistenceError(err)
	}
	return nil
}

func (r *userRepository) SetCoverPhoto(ctx context.Context, userID uint, url string) error {
	defer observability.TrackQuery("set_cover_photo", "users")()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("cover_photo", url)
	if res.Error != nil {
		return models.NewPersistenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
