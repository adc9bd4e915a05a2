package server

import (
	"odinbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetImage handles GET /api/images/:id
// @Summary Fetch an uploaded image
// @Tags images
// @Produce jpeg
// @Param id path int true "Image ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [get]
func (s *Server) GetImage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	img, err := s.contentService.Image(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(img.Data)
}
