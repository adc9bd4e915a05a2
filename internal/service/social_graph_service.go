package service

import (
	"context"
	"log/slog"

	"odinbook/internal/featureflags"
	"odinbook/internal/middleware"
	"odinbook/internal/models"
	"odinbook/internal/notifications"
	"odinbook/internal/observability"
	"odinbook/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	opSendFriendRequest   = "send_friend_request"
	opAcceptFriendRequest = "accept_friend_request"
	opUnfriend            = "unfriend"
)

// SocialGraphService maintains the mirrored friend and request sets stored
// on both users of a pair. Each mutation writes the current user first and
// the other user second, without a transaction.
type SocialGraphService struct {
	users  repository.UserRepository
	flags  featureflags.Checker
	events EventPublisher
}

// NewSocialGraphService returns a new SocialGraphService. flags and events may be nil.
func NewSocialGraphService(users repository.UserRepository, flags featureflags.Checker, events EventPublisher) *SocialGraphService {
	if flags == nil {
		flags = (*featureflags.Manager)(nil)
	}
	return &SocialGraphService{users: users, flags: flags, events: publisherOrNoop(events)}
}

// SendFriendRequest records a request from currentID to targetID on both users.
func (s *SocialGraphService) SendFriendRequest(ctx context.Context, currentID, targetID uint) (current, target *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialGraphService", "SendFriendRequest",
		attribute.Int64("user.id", int64(currentID)), attribute.Int64("target.id", int64(targetID)))
	defer func() { observability.EndSpan(span, err) }()

	current, target, err = s.loadPair(ctx, currentID, targetID, "Cannot send a friend request to yourself")
	if err != nil {
		return nil, nil, err
	}
	if current.FriendRequestsSent.Contains(targetID) {
		return nil, nil, models.NewConflictError(models.CodeAlreadyRequested, "Friend request already sent")
	}
	if current.Friends.Contains(targetID) {
		return nil, nil, models.NewConflictError(models.CodeAlreadyFriends, "You are already friends")
	}

	if current.FriendRequestsReceived.Contains(targetID) && s.flags.Enabled(featureflags.MergeCrossedRequests, currentID) {
		if err = s.accept(ctx, current, target); err != nil {
			return nil, nil, err
		}
		return current, target, nil
	}

	current.FriendRequestsSent = current.FriendRequestsSent.Append(targetID)
	target.FriendRequestsReceived = target.FriendRequestsReceived.Append(currentID)
	if err = s.persistPair(ctx, opSendFriendRequest, current, target); err != nil {
		return nil, nil, err
	}

	s.events.PublishUserEvent(ctx, targetID, notifications.EventFriendRequestReceived,
		map[string]any{"from": current.Summary()})
	return current, target, nil
}

// AcceptFriendRequest makes requesterID and currentID friends. Unless
// strict accept is enabled, no pending request is required.
func (s *SocialGraphService) AcceptFriendRequest(ctx context.Context, currentID, requesterID uint) (current, requester *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialGraphService", "AcceptFriendRequest",
		attribute.Int64("user.id", int64(currentID)), attribute.Int64("requester.id", int64(requesterID)))
	defer func() { observability.EndSpan(span, err) }()

	current, requester, err = s.loadPair(ctx, currentID, requesterID, "Cannot accept a friend request from yourself")
	if err != nil {
		return nil, nil, err
	}
	if current.Friends.Contains(requesterID) {
		return nil, nil, models.NewConflictError(models.CodeAlreadyFriends, "You are already friends")
	}
	if !current.FriendRequestsReceived.Contains(requesterID) && s.flags.Enabled(featureflags.StrictFriendAccept, currentID) {
		return nil, nil, models.NewConflictError(models.CodeNoPendingRequest, "No pending friend request from this user")
	}

	if err = s.accept(ctx, current, requester); err != nil {
		return nil, nil, err
	}
	return current, requester, nil
}

// Unfriend removes the friendship on both users.
func (s *SocialGraphService) Unfriend(ctx context.Context, currentID, otherID uint) (current, other *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialGraphService", "Unfriend",
		attribute.Int64("user.id", int64(currentID)), attribute.Int64("other.id", int64(otherID)))
	defer func() { observability.EndSpan(span, err) }()

	current, other, err = s.loadPair(ctx, currentID, otherID, "Cannot unfriend yourself")
	if err != nil {
		return nil, nil, err
	}
	var removed bool
	current.Friends, removed = current.Friends.RemoveFirst(otherID)
	if !removed {
		return nil, nil, models.NewConflictError(models.CodeNotFriends, "You are not friends")
	}
	other.Friends, _ = other.Friends.RemoveFirst(currentID)

	if err = s.persistPair(ctx, opUnfriend, current, other); err != nil {
		return nil, nil, err
	}

	s.events.PublishUserEvent(ctx, otherID, notifications.EventFriendRemoved,
		map[string]any{"by": current.Summary()})
	return current, other, nil
}

func (s *SocialGraphService) accept(ctx context.Context, current, requester *models.User) error {
	current.Friends = current.Friends.Append(requester.ID)
	requester.Friends = requester.Friends.Append(current.ID)
	current.FriendRequestsReceived, _ = current.FriendRequestsReceived.RemoveFirst(requester.ID)
	requester.FriendRequestsSent, _ = requester.FriendRequestsSent.RemoveFirst(current.ID)

	if err := s.persistPair(ctx, opAcceptFriendRequest, current, requester); err != nil {
		return err
	}

	s.events.PublishUserEvent(ctx, requester.ID, notifications.EventFriendRequestAccepted,
		map[string]any{"by": current.Summary()})
	return nil
}

func (s *SocialGraphService) loadPair(ctx context.Context, currentID, otherID uint, selfMessage string) (*models.User, *models.User, error) {
	if currentID == otherID {
		return nil, nil, models.NewValidationError(selfMessage)
	}
	current, err := s.users.GetByIDForUpdate(ctx, currentID)
	if err != nil {
		return nil, nil, err
	}
	other, err := s.users.GetByIDForUpdate(ctx, otherID)
	if err != nil {
		return nil, nil, err
	}
	return current, other, nil
}

// persistPair writes first then second. When the second write fails the
// first is left committed; the pair is logged and counted for repair.
func (s *SocialGraphService) persistPair(ctx context.Context, op string, first, second *models.User) error {
	if err := s.users.Update(ctx, first); err != nil {
		return err
	}
	if err := s.users.Update(ctx, second); err != nil {
		observability.GraphPartialWrites.WithLabelValues(op).Inc()
		middleware.Logger.ErrorContext(ctx, "social graph left half-updated",
			slog.String("operation", op),
			slog.Uint64("written_user_id", uint64(first.ID)),
			slog.Uint64("failed_user_id", uint64(second.ID)),
			slog.String("error", err.Error()),
		)
		if models.IsCode(err, models.CodeUpstream) {
			return err
		}
		return models.NewUpstreamError(err)
	}
	return nil
}
