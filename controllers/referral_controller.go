package controllers

import (
	"bytes"
	"context"
	"image/png"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

type ReferralController struct {
	db *mongo.Client
}

func NewReferralController(db *mongo.Client) *ReferralController {
	return &ReferralController{db: db}
}

// GetReferralInfo returns the caller's referral code, signup link, and the
// accounts they have referred so far
func (rc *ReferralController) GetReferralInfo(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = config.GetCollection(rc.db, "users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	referred := []models.User{}
	if len(user.Referrals) > 0 {
		cursor, err := config.GetCollection(rc.db, "users").Find(ctx, bson.M{"_id": bson.M{"$in": user.Referrals}})
		if err != nil {
			log.Printf("Error listing referrals for %s: %v", userID.Hex(), err)
		} else {
			defer cursor.Close(ctx)
			if err := cursor.All(ctx, &referred); err != nil {
				log.Printf("Error decoding referrals for %s: %v", userID.Hex(), err)
				referred = []models.User{}
			}
			for i := range referred {
				referred[i].Password = ""
				referred[i].FCMToken = ""
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral info retrieved successfully",
		Data: map[string]interface{}{
			"referralCode":  user.ReferralCode,
			"referralLink":  referralLink(user.ReferralCode),
			"referralCount": len(user.Referrals),
			"totalEarnings": float64(len(user.Referrals)) * ReferralBonus,
			"referrals":     referred,
		},
	})
}

// GetReferralQR renders the caller's referral link as a PNG QR code
func (rc *ReferralController) GetReferralQR(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = config.GetCollection(rc.db, "users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	code, err := qr.Encode(referralLink(user.ReferralCode), qr.M, qr.Auto)
	if err != nil {
		log.Printf("Error encoding referral QR for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	scaled, err := barcode.Scale(code, 256, 256)
	if err != nil {
		log.Printf("Error scaling referral QR for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		log.Printf("Error encoding referral QR PNG for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func referralLink(code string) string {
	base := os.Getenv("APP_BASE_URL")
	if base == "" {
		base = "https://taskhive.work"
	}
	return base + "/signup?ref=" + code
}
