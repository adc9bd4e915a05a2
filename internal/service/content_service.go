package service

import (
	"context"
	"log/slog"

	"odinbook/internal/middleware"
	"odinbook/internal/models"
	"odinbook/internal/notifications"
	"odinbook/internal/observability"
	"odinbook/internal/repository"
	"odinbook/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const opCreatePost = "create_post"

// ImageUpload is an image attached to a new post.
type ImageUpload struct {
	ContentType string
	Data        []byte
}

// ContentService implements posts, likes and comments.
type ContentService struct {
	users         repository.UserRepository
	posts         repository.PostRepository
	comments      repository.CommentRepository
	images        repository.ImageRepository
	events        EventPublisher
	maxImageBytes int64
}

// NewContentService returns a new ContentService. events may be nil.
func NewContentService(
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	images repository.ImageRepository,
	events EventPublisher,
	maxImageBytes int64,
) *ContentService {
	return &ContentService{
		users:         users,
		posts:         posts,
		comments:      comments,
		images:        images,
		events:        publisherOrNoop(events),
		maxImageBytes: maxImageBytes,
	}
}

// GiveLike adds currentID to the post's likes.
func (s *ContentService) GiveLike(ctx context.Context, currentID, postID uint) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ContentService", "GiveLike",
		attribute.Int64("user.id", int64(currentID)), attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	user, post, err := s.loadUserAndPost(ctx, currentID, postID)
	if err != nil {
		return nil, err
	}
	if post.Likes.Contains(currentID) {
		return nil, models.NewConflictError(models.CodeAlreadyLiked, "You already liked this post")
	}

	post.Likes = post.Likes.Append(currentID)
	if err = s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	if post.UserID != currentID {
		s.events.PublishUserEvent(ctx, post.UserID, notifications.EventPostLiked,
			map[string]any{"post_id": post.ID, "by": user.Summary()})
	}
	return post, nil
}

// CancelLike removes currentID from the post's likes.
func (s *ContentService) CancelLike(ctx context.Context, currentID, postID uint) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ContentService", "CancelLike",
		attribute.Int64("user.id", int64(currentID)), attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	_, post, err = s.loadUserAndPost(ctx, currentID, postID)
	if err != nil {
		return nil, err
	}
	likes, removed := post.Likes.RemoveFirst(currentID)
	if !removed {
		return nil, models.NewConflictError(models.CodeLikeNotFound, "You have not liked this post")
	}

	post.Likes = likes
	if err = s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// PostComment stores a comment and appends it to the post.
func (s *ContentService) PostComment(ctx context.Context, currentID, postID uint, content string) (post *models.Post, comment *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ContentService", "PostComment",
		attribute.Int64("user.id", int64(currentID)), attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	user, post, err := s.loadUserAndPost(ctx, currentID, postID)
	if err != nil {
		return nil, nil, err
	}
	content, err = validation.ValidateContent("content", content)
	if err != nil {
		return nil, nil, err
	}

	comment = &models.Comment{Content: content, UserID: currentID, PostID: postID}
	if err = s.comments.Create(ctx, comment); err != nil {
		return nil, nil, err
	}
	comment.User = user

	post.Comments = post.Comments.Append(comment.ID)
	if err = s.posts.Update(ctx, post); err != nil {
		return nil, nil, err
	}

	if post.UserID != currentID {
		s.events.PublishUserEvent(ctx, post.UserID, notifications.EventCommentCreated,
			map[string]any{"post_id": post.ID, "comment_id": comment.ID, "by": user.Summary()})
	}
	return post, comment, nil
}

// CreatePost stores the optional image, then the post, then records the
// post on its author.
func (s *ContentService) CreatePost(ctx context.Context, currentID uint, content string, image *ImageUpload) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ContentService", "CreatePost",
		attribute.Int64("user.id", int64(currentID)))
	defer func() { observability.EndSpan(span, err) }()

	author, err := s.users.GetByIDForUpdate(ctx, currentID)
	if err != nil {
		return nil, err
	}
	content, err = validation.ValidateContent("content", content)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		Content:  content,
		UserID:   currentID,
		Likes:    models.IDList{},
		Comments: models.IDList{},
	}

	if image != nil {
		if err = validation.ValidateImage(image.ContentType, image.Data, s.maxImageBytes); err != nil {
			return nil, err
		}
		img := &models.Image{ContentType: validation.JPEGContentType, Size: len(image.Data), Data: image.Data}
		if err = s.images.Store(ctx, img); err != nil {
			return nil, err
		}
		post.ImageID = &img.ID
	}

	if err = s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	author.Posts = author.Posts.Append(post.ID)
	if err = s.users.Update(ctx, author); err != nil {
		observability.GraphPartialWrites.WithLabelValues(opCreatePost).Inc()
		middleware.Logger.ErrorContext(ctx, "post stored but not recorded on author",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.Uint64("user_id", uint64(currentID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	post.User = author
	return post, nil
}

// GetPost returns a single post.
func (s *ContentService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

// ListPosts returns a page of every author's posts, newest first.
func (s *ContentService) ListPosts(ctx context.Context, beforeID uint) ([]*models.Post, error) {
	return s.posts.List(ctx, models.PostQuery{BeforeID: beforeID, Limit: models.PostPageSize})
}

// UserPosts returns a page of one user's posts.
func (s *ContentService) UserPosts(ctx context.Context, userID, beforeID uint) ([]*models.Post, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.posts.List(ctx, models.PostQuery{AuthorIDs: []uint{userID}, BeforeID: beforeID, Limit: models.PostPageSize})
}

// Feed returns a page of the user's own and their friends' posts.
func (s *ContentService) Feed(ctx context.Context, currentID, beforeID uint) ([]*models.Post, error) {
	user, err := s.users.GetByID(ctx, currentID)
	if err != nil {
		return nil, err
	}
	authors := append([]uint{currentID}, user.Friends...)
	return s.posts.List(ctx, models.PostQuery{AuthorIDs: authors, BeforeID: beforeID, Limit: models.PostPageSize})
}

// FriendsPosts returns a page of the user's friends' posts only.
func (s *ContentService) FriendsPosts(ctx context.Context, currentID, beforeID uint) ([]*models.Post, error) {
	user, err := s.users.GetByID(ctx, currentID)
	if err != nil {
		return nil, err
	}
	authors := make([]uint, len(user.Friends))
	copy(authors, user.Friends)
	return s.posts.List(ctx, models.PostQuery{AuthorIDs: authors, BeforeID: beforeID, Limit: models.PostPageSize})
}

// Comments returns a post's comments in the order they were added.
func (s *ContentService) Comments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.comments.ListByIDs(ctx, post.Comments)
}

// Likers returns the users who liked a post.
func (s *ContentService) Likers(ctx context.Context, postID uint) ([]models.UserSummary, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByIDs(ctx, post.Likes)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Image returns a stored image.
func (s *ContentService) Image(ctx context.Context, imageID uint) (*models.Image, error) {
	return s.images.Get(ctx, imageID)
}

// loadUserAndPost reads the post from the primary since its lists are
// rewritten by the caller.
func (s *ContentService) loadUserAndPost(ctx context.Context, userID, postID uint) (*models.User, *models.Post, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.posts.GetByIDForUpdate(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return user, post, nil
}
