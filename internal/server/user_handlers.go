package server

import (
	"odinbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} object{users=[]models.User}
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.List(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetUser handles GET /api/users/:id
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// GetUserFriends handles GET /api/users/:id/friends
// @Summary List a user's friends
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{friends=[]models.UserSummary}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/friends [get]
func (s *Server) GetUserFriends(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	friends, err := s.userService.Friends(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"friends": friends})
}

// EditProfile handles PUT /api/me
// @Summary Edit the current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,profilePictureUrl=string} true "Profile fields"
// @Success 200 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /me [put]
func (s *Server) EditProfile(c *fiber.Ctx) error {
	var req struct {
		Name              string `json:"name"`
		ProfilePictureURL string `json:"profilePictureUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.EditProfile(c.UserContext(), currentUserID(c), req.Name, req.ProfilePictureURL)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
