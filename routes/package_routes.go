package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
)

// RegisterPackageRoutes sets up task package management and purchase
func RegisterPackageRoutes(e *echo.Echo, db *mongo.Client) {
	packageController := controllers.NewPackageController(db)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/packages", packageController.CreatePackage)
	r.GET("/packages", packageController.GetPackages)
	r.POST("/packages/:id/purchase", packageController.PurchasePackage)
}
