package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/routes"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis
	config.ConnectRedis()
	defer config.CloseRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	hub := websocket.NewHub()

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(client)
	notificationRepo := repositories.NewNotificationRepository(client)
	notifier := services.NewNotificationService(notificationRepo, userRepo, hub)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go services.NewTaskExpirer(client, notifier).Run(ctx)
	go middleware.CleanupBlacklist()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"*"},
		AllowInlineJS:  false,
	}))

	routes.SetupRoutes(e, client, hub, notificationRepo, userRepo, notifier)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Fatal(e.Start(":" + port))
}
