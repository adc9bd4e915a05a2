package repository

import (
	"context"
	"testing"

	"odinbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListByIDs(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice")
	post := &models.Post{Content: "hi", UserID: alice.ID}
	require.NoError(t, posts.Create(ctx, post))

	first := &models.Comment{Content: "first", UserID: alice.ID, PostID: post.ID}
	second := &models.Comment{Content: "second", UserID: alice.ID, PostID: post.ID}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.ListByIDs(ctx, []uint{second.ID, first.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Content)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "alice", list[0].User.Username)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestImageRepository_StoreAndGet(t *testing.T) {
	repo := NewImageRepository(setupSQLite(t))
	ctx := context.Background()

	img := &models.Image{ContentType: "image/jpeg", Size: 3, Data: []byte{0xff, 0xd8, 0xff}}
	require.NoError(t, repo.Store(ctx, img))
	require.NotZero(t, img.ID)

	got, err := repo.Get(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Data, got.Data)

	_, err = repo.Get(ctx, img.ID+1)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
