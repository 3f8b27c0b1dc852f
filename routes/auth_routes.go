package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/services"
)

// RegisterAuthRoutes sets up signup, login, and logout
func RegisterAuthRoutes(e *echo.Echo, db *mongo.Client, notifier *services.NotificationService) {
	authController := controllers.NewAuthController(db, repositories.NewUserRepository(db), notifier)

	auth := e.Group("/api/auth")
	auth.POST("/signup", authController.Signup)
	auth.POST("/login", authController.Login)
	auth.POST("/remember-login", authController.RememberLogin)

	protected := e.Group("/api/auth")
	protected.Use(middleware.JWTMiddleware())
	protected.POST("/logout", authController.Logout)
}
