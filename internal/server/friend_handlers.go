package server

import (
	"odinbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/users/:id/friend-requests
// @Summary Send a friend request
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Param id path int true "Target user ID"
// @Success 200 {object} object{currentUser=models.User,targetUser=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /users/{id}/friend-requests [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	current, target, err := s.graphService.SendFriendRequest(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"currentUser": current,
		"targetUser":  target,
	})
}

// AcceptFriendRequest handles POST /api/users/:id/friend-requests/accept
// @Summary Accept a friend request
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Param id path int true "Requester user ID"
// @Success 200 {object} object{currentUser=models.User,requester=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /users/{id}/friend-requests/accept [post]
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	requesterID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	current, requester, err := s.graphService.AcceptFriendRequest(c.UserContext(), currentUserID(c), requesterID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"currentUser": current,
		"requester":   requester,
	})
}

// Unfriend handles DELETE /api/users/:id/friendship
// @Summary Remove a friend
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Param id path int true "Friend user ID"
// @Success 200 {object} object{currentUser=models.User,formerFriend=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/friendship [delete]
func (s *Server) Unfriend(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	current, other, err := s.graphService.Unfriend(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"currentUser":  current,
		"formerFriend": other,
	})
}
