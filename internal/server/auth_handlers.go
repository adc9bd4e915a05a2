package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"odinbook/internal/auth"
	"odinbook/internal/config"
	"odinbook/internal/middleware"
	"odinbook/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	wsTicketPrefix = "ws_ticket:"
	wsTicketTTL    = 30 * time.Second
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new user account with empty social sets
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,username=string,password=string} true "Signup request"
// @Success 201 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.authenticator.Signup(c.UserContext(), req.Name, req.Username, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate and return a JWT (token mode) or set a session cookie (session mode)
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} object{message=string,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, artifact, err := s.authenticator.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	resp := fiber.Map{
		"message": "Logged in",
		"user":    user,
	}
	if s.resolver.Mode() == config.AuthModeSession {
		c.Cookie(s.sessionCookie(artifact, time.Now().Add(s.config.SessionTTL)))
	} else {
		resp["token"] = artifact
	}
	return c.JSON(resp)
}

// Logout handles POST /api/auth/logout
// @Summary User logout
// @Description Revokes the session. Tokens stay valid until they expire.
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	artifact := s.requestArtifact(c)
	if artifact != "" {
		if err := s.authenticator.Logout(c.UserContext(), artifact); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "logout revoke failed",
				slog.String("error", err.Error()))
		}
	}
	if s.resolver.Mode() == config.AuthModeSession {
		c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Protected handles GET /api/protected
// @Summary Authenticated probe
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string,user=auth.Identity}
// @Failure 401 {object} models.ErrorResponse
// @Router /protected [get]
func (s *Server) Protected(c *fiber.Ctx) error {
	username, _ := c.Locals(middleware.LocalUsername).(string)
	return c.JSON(fiber.Map{
		"message": "You are authenticated",
		"user":    auth.Identity{UserID: currentUserID(c), Username: username},
	})
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a websocket ticket
// @Description Returns a single-use ticket valid for 30 seconds for GET /api/ws?ticket=
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Realtime notifications unavailable",
		})
	}
	username, _ := c.Locals(middleware.LocalUsername).(string)
	payload, err := json.Marshal(auth.Identity{UserID: currentUserID(c), Username: username})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, payload, wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, models.NewUpstreamError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// consumeWSTicket atomically reads and deletes a ticket.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (auth.Identity, error) {
	var id auth.Identity
	if s.redis == nil || ticket == "" {
		return id, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Bytes()
	if errors.Is(err, redis.Nil) {
		return id, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	if err != nil {
		return id, models.NewUpstreamError(err)
	}
	if err := json.Unmarshal(raw, &id); err != nil || id.UserID == 0 {
		return auth.Identity{}, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	return id, nil
}

// AuthRequired resolves the caller's identity and rejects anonymous requests.
// WebSocket upgrades authenticate with a ticket; everything else uses the
// bearer token or the session cookie.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var (
			id  auth.Identity
			err error
		)
		if strings.HasPrefix(c.Path(), "/api/ws") && c.Method() == fiber.MethodGet {
			id, err = s.consumeWSTicket(ctx, c.Query("ticket"))
		} else {
			artifact := s.requestArtifact(c)
			if artifact == "" {
				return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
			}
			id, err = s.resolver.Resolve(ctx, artifact)
		}
		if err != nil {
			return models.RespondWithError(c, err)
		}

		c.Locals(middleware.LocalUserID, id.UserID)
		c.Locals(middleware.LocalUsername, id.Username)
		c.SetUserContext(middleware.WithUserID(ctx, id.UserID))
		return c.Next()
	}
}

// requestArtifact returns the bearer token, falling back to the session cookie.
func (s *Server) requestArtifact(c *fiber.Ctx) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return c.Cookies(s.cookieName())
}

func (s *Server) cookieName() string {
	if s.config.SessionCookieName != "" {
		return s.config.SessionCookieName
	}
	return "odinbook_session"
}

func (s *Server) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     s.cookieName(),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
