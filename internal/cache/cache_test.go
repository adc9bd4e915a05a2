package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = Close()
		mr.Close()
	})
	return mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{ID: 7, Name: "alice"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, UserKey(7), &first, UserTTL, fetch(&first)))
	assert.Equal(t, "alice", first.Name)
	assert.True(t, mr.Exists("user:7"))

	var second cachedThing
	require.NoError(t, Aside(ctx, UserKey(7), &second, UserTTL, fetch(&second)))
	assert.Equal(t, "alice", second.Name)
	assert.Equal(t, 1, calls)

	InvalidateUser(ctx, 7)
	assert.False(t, mr.Exists("user:7"))
}

func TestAside_DoesNotCacheFetchErrors(t *testing.T) {
	mr := setupMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), PostKey(3), &dest, PostTTL, func() error {
		return errors.New("not found")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("post:3"))
}

func TestAside_WithoutClientCallsFetch(t *testing.T) {
	SetClient(nil)

	var dest cachedThing
	err := Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error {
		dest.Name = "direct"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", dest.Name)
}

func TestFlushEntities(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(1), cachedThing{ID: 1}, UserTTL))
	require.NoError(t, SetJSON(ctx, PostKey(2), cachedThing{ID: 2}, PostTTL))
	require.NoError(t, mr.Set("session:abc", "keep"))

	require.NoError(t, FlushEntities(ctx))
	assert.False(t, mr.Exists("user:1"))
	assert.False(t, mr.Exists("post:2"))
	assert.True(t, mr.Exists("session:abc"))
}
