package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"odinbook/internal/cache"
	"odinbook/internal/featureflags"
	"odinbook/internal/models"
	"odinbook/internal/repository"
	"odinbook/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store unavailable")

type publishedEvent struct {
	UserID uint
	Type   string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishUserEvent(_ context.Context, userID uint, eventType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Type: eventType})
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// userRepoStub wraps a real repository and lets a test override single methods.
type userRepoStub struct {
	repository.UserRepository
	getForUpdateFn func(context.Context, uint) (*models.User, error)
	updateFn       func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	if s.getForUpdateFn != nil {
		return s.getForUpdateFn(ctx, id)
	}
	return s.UserRepository.GetByIDForUpdate(ctx, id)
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, user)
	}
	return s.UserRepository.Update(ctx, user)
}

type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	images   *testutil.ImageRepoStub
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache.SetClient(nil)
	db := testutil.NewSQLiteDB(t)
	return &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		images:   testutil.NewImageRepoStub(),
		events:   &recordingPublisher{},
	}
}

func (f *fixture) graph(flags string) *SocialGraphService {
	return NewSocialGraphService(f.users, featureflags.NewManager(flags), f.events)
}

func (f *fixture) content() *ContentService {
	return NewContentService(f.users, f.posts, f.comments, f.images, f.events, 1<<20)
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Name: username, Username: username, PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) reload(t *testing.T, id uint) *models.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
