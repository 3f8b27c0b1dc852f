package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/websocket"
)

// SetupRoutes configures all API routes by calling individual route
// registration functions
func SetupRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub, store repositories.NotificationStore, users *repositories.UserRepository, notifier *services.NotificationService) {
	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "TaskHive Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Uploaded proof files and thumbnails
	e.Static("/uploads", "uploads")

	RegisterAuthRoutes(e, db, notifier)
	RegisterTaskRoutes(e, db, notifier)
	RegisterPackageRoutes(e, db)
	RegisterWalletRoutes(e, db)
	RegisterReferralRoutes(e, db)
	RegisterNotificationRoutes(e, store, users, hub)
}
