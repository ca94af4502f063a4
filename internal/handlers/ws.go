package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketHandler runs one realtime connection. AuthMiddleware and
// WSUpgradeMiddleware must run first. Frames from a connection are handled
// one at a time in arrival order.
func WebSocketHandler(hub *realtime.Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(localUserID).(string)
		email, _ := c.Locals(localEmail).(string)

		ctx, cancel := context.WithCancel(context.Background())
		client := realtime.NewClient(userID, email, c)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.WritePump()
		}()

		defer func() {
			cancel()
			hub.Disconnect(context.Background(), client)
			client.Close()
			wg.Wait()
		}()

		hub.Connect(ctx, client)

		c.SetReadLimit(realtime.MaxMessageSize)
		_ = c.SetReadDeadline(time.Now().Add(realtime.PongWait))
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(realtime.PongWait))
		})

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logging.Warn().Err(err).Str("user_id", userID).Msg("websocket closed unexpectedly")
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			_ = c.SetReadDeadline(time.Now().Add(realtime.PongWait))
			hub.HandleEvent(ctx, client, msg)
		}
	})
}
