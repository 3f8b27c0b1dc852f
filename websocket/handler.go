package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and registers it with the hub.
// The client passes its session token as a query parameter; validation
// happens before the upgrade, so a connection with a missing or invalid
// credential never enters the registry.
func HandleWebSocket(c echo.Context, hub *Hub) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}

	claims, err := middleware.ParseToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user ID in token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(userID, conn)
	hub.Register(client)

	go client.writePump(hub)
	go client.readPump(hub)

	// Welcome frame so the client knows the channel is live
	client.enqueue(mustMarshalEnvelope(Envelope{
		Type: "connected",
		Data: map[string]string{"userId": userID.Hex()},
	}))

	return nil
}
