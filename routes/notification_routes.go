package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/websocket"
)

// RegisterNotificationRoutes sets up the notification REST surface and the
// WebSocket push endpoint. The WebSocket route sits outside the JWT group:
// browsers cannot set headers on the handshake, so the handler validates a
// token query parameter itself before upgrading.
func RegisterNotificationRoutes(e *echo.Echo, store repositories.NotificationStore, users *repositories.UserRepository, hub *websocket.Hub) {
	notificationController := controllers.NewNotificationController(store, users)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/notifications", notificationController.GetNotifications)
	r.PUT("/notifications/:id/read", notificationController.MarkAsRead)
	r.PUT("/notifications/read-all", notificationController.MarkAllAsRead)
	r.POST("/users/fcm-token", notificationController.UpdateFCMToken)

	e.GET("/api/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub)
	})
}
