package notify

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// UpgradeOnly rejects plain HTTP requests on the websocket route.
func UpgradeOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebsocketHandler streams hub events to the client as JSON until either
// side hangs up.
func WebsocketHandler(hub *Hub, log logrus.FieldLogger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		events, cancel := hub.Subscribe()
		defer cancel()

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-gone:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					log.WithError(err).Debug("websocket write failed")
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	})
}
