package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/realtime"
)

// RealtimeHandler pushes notifications over /ws/notifications. Browsers
// cannot set headers on a websocket handshake, so the token travels in the
// query string.
type RealtimeHandler struct {
	Verifier middleware.TokenVerifier
	Hub      *realtime.Hub
	Log      *logrus.Entry
}

// Routes registers the socket endpoint; before runs ahead of the handshake.
func (h *RealtimeHandler) Routes(app *fiber.App, before ...fiber.Handler) {
	chain := append(before, h.Upgrade, websocket.New(h.Serve))
	app.Get("/ws/notifications", chain...)
}

// Upgrade authenticates the handshake before the connection is upgraded.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		return apperr.Unauthorized("missing token")
	}
	user, err := h.Verifier.Verify(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(middleware.LocalUser, user)
	return c.Next()
}

func (h *RealtimeHandler) Serve(conn *websocket.Conn) {
	user, _ := conn.Locals(middleware.LocalUser).(*models.User)
	if user == nil {
		_ = conn.Close()
		return
	}
	log := h.Log.WithField("user_id", user.ID)

	client := realtime.NewClient(user.ID)
	h.Hub.RegisterClient(client)
	log.Debug("websocket connected")
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Debug("websocket disconnected")
	}()

	// writer: ends when the hub closes Send or a write fails
	go func() {
		defer conn.Close()
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}()

	// reader: clients only send pings; any read error ends the session
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
