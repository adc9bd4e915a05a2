package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Connections(10))

	hub.Broadcast(10, "hello")
	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Empty(t, other.Send)

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Connections(10))
	hub.UnregisterClient(b)
	assert.Equal(t, 0, hub.Connections(10))
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(5, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, err = hub.Register(6, nil)
	assert.ErrorIs(t, err, ErrServerConnLimit)
}

func TestHub_ShutdownStopsClients(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(3, nil)
	require.NoError(t, err)
	b, err := hub.Register(4, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	for _, c := range []*Client{a, b} {
		select {
		case <-c.Done():
		default:
			t.Fatalf("client for user %d was not stopped", c.UserID)
		}
	}
	assert.Equal(t, 0, hub.Connections(3))

	// Stopping twice and unregistering after shutdown are both harmless.
	a.Stop()
	hub.UnregisterClient(a)
	require.NoError(t, hub.Shutdown(context.Background()))
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, sendBuffer)

	<-c.Send
	c.TrySend([]byte("overflow"))
	var last []byte
	for len(c.Send) > 0 {
		last = <-c.Send
	}
	assert.Equal(t, "overflow", string(last))
}

func TestPublisher_LocalDelivery(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	p := NewPublisher(NewNotifier(nil), hub)
	p.PublishUserEvent(context.Background(), 3, EventPostLiked, map[string]uint{"post_id": 9})

	var ev struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-c.Send, &ev))
	assert.Equal(t, EventPostLiked, ev.Type)
	assert.EqualValues(t, 9, ev.Payload["post_id"])

	var nilPublisher *Publisher
	nilPublisher.PublishUserEvent(context.Background(), 3, EventPostLiked, nil)
}
