package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/services"
)

// RegisterTaskRoutes sets up task creation, browsing, and the vendor
// claim/submit/review lifecycle
func RegisterTaskRoutes(e *echo.Echo, db *mongo.Client, notifier *services.NotificationService) {
	taskController := controllers.NewTaskController(db, notifier)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/tasks", taskController.CreateTask)
	r.GET("/tasks", taskController.GetTasks)
	r.GET("/tasks/:id", taskController.GetTask)
	r.POST("/tasks/:id/claim", taskController.ClaimTask)
	r.POST("/tasks/:id/submit", taskController.SubmitTask)
	r.POST("/tasks/:id/approve", taskController.ApproveTask)
	r.POST("/tasks/:id/reject", taskController.RejectTask)
}
