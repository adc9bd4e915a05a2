package server

import (
	"errors"
	"io"
	"mime/multipart"

	"odinbook/internal/models"
	"odinbook/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Newest first, 10 per page. Pass the last seen ID as startId for the next page.
// @Tags posts
// @Produce json
// @Param startId query int false "Return posts with an ID below this"
// @Success 200 {object} object{posts=[]models.Post}
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	before, err := s.parseCursor(c)
	if err != nil {
		return nil
	}
	posts, err := s.contentService.ListPosts(c.UserContext(), before)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.contentService.GetPost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param id path int true "User ID"
// @Param startId query int false "Return posts with an ID below this"
// @Success 200 {object} object{posts=[]models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	s.listPosts(c, func(before uint) ([]*models.Post, error) {
		return s.contentService.UserPosts(c.UserContext(), id, before)
	})
	return nil
}

// GetMyPosts handles GET /api/me/posts
// @Summary List the current user's posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param startId query int false "Return posts with an ID below this"
// @Success 200 {object} object{posts=[]models.Post}
// @Router /me/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	s.listPosts(c, func(before uint) ([]*models.Post, error) {
		return s.contentService.UserPosts(c.UserContext(), currentUserID(c), before)
	})
	return nil
}

// GetFeed handles GET /api/me/feed
// @Summary The current user's feed
// @Description Posts by the current user and their friends, newest first.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param startId query int false "Return posts with an ID below this"
// @Success 200 {object} object{posts=[]models.Post}
// @Router /me/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	s.listPosts(c, func(before uint) ([]*models.Post, error) {
		return s.contentService.Feed(c.UserContext(), currentUserID(c), before)
	})
	return nil
}

// GetFriendsPosts handles GET /api/me/friends-posts
// @Summary Posts by the current user's friends
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param startId query int false "Return posts with an ID below this"
// @Success 200 {object} object{posts=[]models.Post}
// @Router /me/friends-posts [get]
func (s *Server) GetFriendsPosts(c *fiber.Ctx) error {
	s.listPosts(c, func(before uint) ([]*models.Post, error) {
		return s.contentService.FriendsPosts(c.UserContext(), currentUserID(c), before)
	})
	return nil
}

// listPosts parses the cursor, runs list and writes the page or the error.
func (s *Server) listPosts(c *fiber.Ctx, list func(before uint) ([]*models.Post, error)) {
	before, err := s.parseCursor(c)
	if err != nil {
		return
	}
	posts, err := list(before)
	if err != nil {
		_ = models.RespondWithError(c, err)
		return
	}
	_ = c.JSON(fiber.Map{"posts": posts})
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts JSON {content} or multipart with content and an optional JPEG image.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param content formData string true "Post text"
// @Param image formData file false "JPEG image"
// @Success 201 {object} object{post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content" form:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	upload, err := s.readImageUpload(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.contentService.CreatePost(c.UserContext(), currentUserID(c), req.Content, upload)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// readImageUpload returns the multipart "image" file, or nil when the
// request carries none.
func (s *Server) readImageUpload(c *fiber.Ctx) (*service.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, models.NewValidationError("Invalid image upload")
	}
	return readMultipartFile(fh, int64(s.config.ImageMaxUploadBytes()))
}

func readMultipartFile(fh *multipart.FileHeader, maxBytes int64) (*service.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Invalid image upload")
	}
	defer func() { _ = f.Close() }()

	// One byte past the limit is enough for validation to reject it.
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, models.NewValidationError("Invalid image upload")
	}
	return &service.ImageUpload{
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

// LikePost handles POST /api/posts/:id/likes
// @Summary Like a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 201 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/likes [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.contentService.GiveLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post liked",
		"post":    post,
	})
}

// UnlikePost handles DELETE /api/posts/:id/likes
// @Summary Remove a like
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/likes [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.contentService.CancelLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Like removed",
		"post":    post,
	})
}

// GetPostLikes handles GET /api/posts/:id/likes
// @Summary List users who liked a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{users=[]models.UserSummary}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/likes [get]
func (s *Server) GetPostLikes(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.contentService.Likers(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}
