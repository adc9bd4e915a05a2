// Package seed populates the database with demo users and posts for
// development. It is not used by the API at runtime.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"odinbook/internal/auth"
	"odinbook/internal/cache"
	"odinbook/internal/middleware"
	"odinbook/internal/models"
	"odinbook/internal/repository"
	"odinbook/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

const adminPictureURL = "https://avatars.githubusercontent.com/u/97932191?s=48&v=4"

// Options configuration for the seeder
type Options struct {
	NumUsers      int
	ShouldClean   bool
	AdminUsername string
	AdminPassword string
	// FixturePath optionally names a YAML file of extra users.
	FixturePath string
}

// Seeder writes demo data through the same services the API uses.
type Seeder struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	images   repository.ImageRepository

	accounts *auth.Authenticator
	content  *service.ContentService
	profiles *service.UserService
	graph    *service.SocialGraphService

	faker *gofakeit.Faker
}

// NewSeeder binds a Seeder to db. Passwords are hashed with hasher.
func NewSeeder(db *gorm.DB, hasher auth.PasswordHasher) *Seeder {
	s := &Seeder{
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		images:   repository.NewImageRepository(db),
		faker:    gofakeit.New(0),
	}
	s.accounts = auth.NewAuthenticator(s.users, hasher, nil)
	s.content = service.NewContentService(s.users, s.posts, s.comments, s.images, nil, 0)
	s.profiles = service.NewUserService(s.users)
	s.graph = service.NewSocialGraphService(s.users, nil, nil)
	return s
}

// Run resets the store when asked, then creates the random users, the admin
// and any fixture users.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if opts.ShouldClean {
		if err := s.Reset(ctx); err != nil {
			return err
		}
	}

	users, err := s.SeedUsers(ctx, opts.NumUsers)
	if err != nil {
		return err
	}
	middleware.Logger.Info("seeded users", slog.Int("count", len(users)))

	if opts.AdminUsername != "" {
		if _, err := s.EnsureAdmin(ctx, opts.AdminUsername, opts.AdminPassword); err != nil {
			return err
		}
	}

	if opts.FixturePath != "" {
		fx, err := LoadFixtureFile(opts.FixturePath)
		if err != nil {
			return err
		}
		if err := s.ApplyFixture(ctx, fx); err != nil {
			return err
		}
	}
	return nil
}

// Reset deletes every user, post, comment and image and drops cached copies.
func (s *Seeder) Reset(ctx context.Context) error {
	for name, deleteAll := range map[string]func(context.Context) error{
		"users":    s.users.DeleteAll,
		"posts":    s.posts.DeleteAll,
		"comments": s.comments.DeleteAll,
		"images":   s.images.DeleteAll,
	} {
		if err := deleteAll(ctx); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	if err := cache.FlushEntities(ctx); err != nil {
		middleware.Logger.Warn("failed to flush entity cache", slog.String("error", err.Error()))
	}
	return nil
}

// SeedUsers creates n random users, each with one greeting post.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := s.accounts.Signup(ctx, s.faker.Username(), s.faker.Email(),
			s.faker.Password(true, true, true, false, false, 12))
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i+1, err)
		}
		if user, err = s.profiles.EditProfile(ctx, user.ID, user.Name,
			fmt.Sprintf("https://i.pravatar.cc/150?u=%d", user.ID)); err != nil {
			return nil, err
		}

		if _, err := s.content.CreatePost(ctx, user.ID, HelloPost(user.Name, s.faker.Emoji()), nil); err != nil {
			return nil, fmt.Errorf("create post for %s: %w", user.Username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// EnsureAdmin creates the admin account unless the username is already taken.
func (s *Seeder) EnsureAdmin(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	admin, err := s.accounts.Signup(ctx, "Admin", username, password)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	admin, err = s.profiles.EditProfile(ctx, admin.ID, admin.Name, adminPictureURL)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("admin user ensured", slog.String("username", admin.Username))
	return admin, nil
}

// HelloPost is the greeting every seeded user posts.
func HelloPost(name, emoji string) string {
	return fmt.Sprintf("Hello from %s! %s", name, emoji)
}
