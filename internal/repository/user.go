package repository

import (
	"context"
	"errors"

	"odinbook/internal/cache"
	"odinbook/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userMutableColumns are the only columns Update writes. The password hash
// is set once at creation and never round-trips through the cache.
var userMutableColumns = []string{
	"name",
	"profile_pic_url",
	"friends",
	"friend_requests_sent",
	"friend_requests_received",
	"posts",
}

var userProfileColumns = []string{"name", "profile_pic_url"}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	DeleteAll(ctx context.Context) error
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(models.CodeDuplicateUsername, "Username already taken")
		}
		return models.NewUpstreamError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewUpstreamError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDForUpdate reads the primary directly, skipping the cache and the
// replica. Read-modify-write paths start from it.
func (r *userRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewUpstreamError(err)
	}
	return &user, nil
}

// GetByUsername returns (nil, nil) when no user has that username. It
// bypasses the cache because callers need the password hash.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return &user, nil
}

// ListByIDs returns the users with the given IDs in the order requested.
// Unknown IDs are skipped.
func (r *userRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	var users []*models.User
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	byID := make(map[uint]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := readDB(r.db).WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return users, nil
}

// Update writes the mutable fields of user in a single statement. Concurrent
// updates to the same user are last-writer-wins.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.updateColumns(ctx, user, userMutableColumns)
}

// UpdateProfile writes only the name and picture.
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.updateColumns(ctx, user, userProfileColumns)
}

func (r *userRepository) updateColumns(ctx context.Context, user *models.User, columns []string) error {
	res := r.db.WithContext(ctx).Model(user).Select(columns).Updates(user)
	if res.Error != nil {
		return models.NewUpstreamError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}
