package service

import (
	"context"
	"testing"

	"odinbook/internal/cache"
	"odinbook/internal/models"
	"odinbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCache turns the user and post cache on for the rest of the test.
func withCache(t *testing.T) {
	t.Helper()
	_, rdb := testutil.NewMiniredis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })
}

func TestSendFriendRequest_IgnoresStaleCachedUser(t *testing.T) {
	f := newFixture(t)
	withCache(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	snapshot := f.reload(t, alice.ID)
	_, _, err := f.graph("").SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// A slow reader puts the pre-write copy back after the invalidation.
	require.NoError(t, cache.SetJSON(ctx, cache.UserKey(alice.ID), snapshot, cache.UserTTL))

	_, _, err = f.graph("").SendFriendRequest(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	cache.InvalidateUser(ctx, alice.ID)
	sent := f.reload(t, alice.ID).FriendRequestsSent
	assert.Equal(t, models.IDList{bob.ID, carol.ID}, sent)
	assert.Equal(t, models.IDList{alice.ID}, f.reload(t, bob.ID).FriendRequestsReceived)
	assert.Equal(t, models.IDList{alice.ID}, f.reload(t, carol.ID).FriendRequestsReceived)
}

func TestGiveLike_IgnoresStaleCachedPost(t *testing.T) {
	f := newFixture(t)
	withCache(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	svc := f.content()

	post, err := svc.CreatePost(ctx, alice.ID, "hello", nil)
	require.NoError(t, err)
	snapshot, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)

	_, err = svc.GiveLike(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, cache.SetJSON(ctx, cache.PostKey(post.ID), snapshot, cache.PostTTL))

	liked, err := svc.GiveLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{alice.ID, bob.ID}, liked.Likes)

	_, err = svc.GiveLike(ctx, alice.ID, post.ID)
	assert.True(t, models.IsCode(err, models.CodeAlreadyLiked))
}

func TestEditProfile_DoesNotRewriteSocialSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	// The profile edit read alice before the accept landed.
	stale := f.reload(t, alice.ID)
	stub := &userRepoStub{UserRepository: f.users, getForUpdateFn: func(context.Context, uint) (*models.User, error) {
		cp := *stale
		return &cp, nil
	}}

	_, _, err := f.graph("").AcceptFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = NewUserService(stub).EditProfile(ctx, alice.ID, "Alice L", "")
	require.NoError(t, err)

	stored := f.reload(t, alice.ID)
	assert.Equal(t, "Alice L", stored.Name)
	assert.Equal(t, models.IDList{bob.ID}, stored.Friends)
}
