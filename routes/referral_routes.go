package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
)

// RegisterReferralRoutes sets up referral info and QR generation
func RegisterReferralRoutes(e *echo.Echo, db *mongo.Client) {
	referralController := controllers.NewReferralController(db)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/referrals", referralController.GetReferralInfo)
	r.GET("/referrals/qr", referralController.GetReferralQR)
}
