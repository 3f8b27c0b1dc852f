package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
)

// RegisterWalletRoutes sets up wallet balance, history, and withdrawals
func RegisterWalletRoutes(e *echo.Echo, db *mongo.Client) {
	walletController := controllers.NewWalletController(db)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/wallet", walletController.GetWallet)
	r.POST("/wallet/withdrawals", walletController.RequestWithdrawal)
}
