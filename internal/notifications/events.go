// Package notifications delivers social events to connected websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"odinbook/internal/middleware"
	"odinbook/internal/observability"
)

// Event types pushed to clients.
const (
	EventFriendRequestReceived = "friend_request_received"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventFriendRemoved         = "friend_removed"
	EventPostLiked             = "post_liked"
	EventCommentCreated        = "comment_created"
)

// Event is the JSON envelope written to the socket.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher fans events out to a user's connections. With a Redis-backed
// notifier every instance receives the event through the pattern
// subscription; without one it is delivered to the local hub only.
type Publisher struct {
	notifier *Notifier
	hub      *Hub
}

func NewPublisher(notifier *Notifier, hub *Hub) *Publisher {
	return &Publisher{notifier: notifier, hub: hub}
}

// PublishUserEvent delivers a {type, payload} event to userID. Delivery is
// best effort; failures are logged and never returned.
func (p *Publisher) PublishUserEvent(ctx context.Context, userID uint, eventType string, payload any) {
	if p == nil || userID == 0 {
		return
	}
	msg, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event",
			slog.String("event_type", eventType), slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()

	if p.notifier != nil && p.notifier.Enabled() {
		err := p.notifier.PublishUser(ctx, userID, string(msg))
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "redis publish failed, delivering locally",
			slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
	if p.hub != nil {
		p.hub.Broadcast(userID, string(msg))
	}
}
