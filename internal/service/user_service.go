package service

import (
	"context"

	"odinbook/internal/models"
	"odinbook/internal/observability"
	"odinbook/internal/repository"
	"odinbook/internal/validation"
)

// UserService provides profile reads and edits.
type UserService struct {
	users repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Friends returns the summaries of a user's friends.
func (s *UserService) Friends(ctx context.Context, id uint) ([]models.UserSummary, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	friends, err := s.users.ListByIDs(ctx, user.Friends)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(friends))
	for _, f := range friends {
		out = append(out, f.Summary())
	}
	return out, nil
}

// EditProfile changes the name and picture. Only those two columns are written.
func (s *UserService) EditProfile(ctx context.Context, currentID uint, name, pictureURL string) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "EditProfile")
	defer func() { observability.EndSpan(span, err) }()

	name, pictureURL, err = validation.ValidateProfile(name, pictureURL)
	if err != nil {
		return nil, err
	}
	user, err = s.users.GetByIDForUpdate(ctx, currentID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.ProfilePicURL = pictureURL
	if err = s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
