// Package service holds the business rules for the social graph, content
// and profiles.
package service

import "context"

// EventPublisher delivers real-time notifications. Delivery is best effort.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, userID uint, eventType string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) PublishUserEvent(context.Context, uint, string, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
