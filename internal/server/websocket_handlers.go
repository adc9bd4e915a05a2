package server

import (
	"errors"
	"log/slog"

	"odinbook/internal/middleware"
	"odinbook/internal/models"
	"odinbook/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles GET /api/ws. The connection receives the
// authenticated user's social events as {type, payload} JSON frames.
// @Summary Notification socket
// @Description Upgrade with a ticket from POST /api/ws/ticket
// @Tags realtime
// @Param ticket query string true "Single-use ticket"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(uint)
		if userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register rejected",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			reason := "connection limit reached"
			if errors.Is(err, notifications.ErrServerConnLimit) {
				reason = "server unavailable"
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
			_ = conn.Close()
			return
		}
		middleware.Logger.Debug("websocket connected", slog.Uint64("user_id", uint64(userID)))
		go client.WritePump()
		// ReadPump unregisters the client, so no broadcast can reach Send
		// once it returns.
		client.ReadPump()
		close(client.Send)
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithStatus(c, fiber.StatusUpgradeRequired,
				fiber.NewError(fiber.StatusUpgradeRequired, "WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}
