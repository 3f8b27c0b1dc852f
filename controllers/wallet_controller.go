package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/utils"
)

type WalletController struct {
	db *mongo.Client
}

func NewWalletController(db *mongo.Client) *WalletController {
	return &WalletController{db: db}
}

// newTransactionReference generates the unique reference attached to every
// wallet movement so payouts can be reconciled externally
func newTransactionReference() string {
	return uuid.New().String()
}

// GetWallet returns the caller's balance together with their transaction
// history, newest first
func (wc *WalletController) GetWallet(c echo.Context) error {
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
	err = config.GetCollection(wc.db, "users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := config.GetCollection(wc.db, "transactions").Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		log.Printf("Error listing transactions for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve transactions",
		})
	}
	defer cursor.Close(ctx)

	transactions := []models.WalletTransaction{}
	if err := cursor.All(ctx, &transactions); err != nil {
		log.Printf("Error decoding transactions for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve transactions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Wallet retrieved successfully",
		Data: map[string]interface{}{
			"balance":      user.Balance,
			"transactions": transactions,
		},
	})
}

// RequestWithdrawal records a pending withdrawal, debits the wallet, and
// emails the operations inbox. The debit happens up front so a vendor cannot
// queue overlapping withdrawals against the same credit.
func (wc *WalletController) RequestWithdrawal(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.WithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCollection := config.GetCollection(wc.db, "users")

	// Conditional decrement: only succeeds when the balance covers the amount
	result, err := usersCollection.UpdateOne(ctx,
		bson.M{"_id": userID, "balance": bson.M{"$gte": req.Amount}},
		bson.M{
			"$inc": bson.M{"balance": -req.Amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		log.Printf("Error debiting wallet for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process withdrawal",
		})
	}
	if result.ModifiedCount == 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Insufficient balance",
		})
	}

	now := time.Now()
	withdrawal := models.Withdrawal{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Amount:    req.Amount,
		Status:    models.WithdrawalStatusPending,
		Details:   req.Details,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := config.GetCollection(wc.db, "withdrawals").InsertOne(ctx, withdrawal); err != nil {
		log.Printf("Error recording withdrawal for %s: %v", userID.Hex(), err)
		// refund the debit, the request never materialized
		if _, rerr := usersCollection.UpdateByID(ctx, userID, bson.M{"$inc": bson.M{"balance": req.Amount}}); rerr != nil {
			log.Printf("Error refunding failed withdrawal for %s: %v", userID.Hex(), rerr)
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process withdrawal",
		})
	}

	transaction := models.WalletTransaction{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Amount:    -req.Amount,
		Type:      models.TransactionTypeWithdrawal,
		Reference: newTransactionReference(),
		Note:      "Withdrawal request " + withdrawal.ID.Hex(),
		CreatedAt: now,
	}
	if _, err := config.GetCollection(wc.db, "transactions").InsertOne(ctx, transaction); err != nil {
		log.Printf("Error recording withdrawal transaction: %v", err)
	}

	go notifyOperationsOfWithdrawal(userID, withdrawal)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Withdrawal request submitted",
		Data:    withdrawal,
	})
}

func notifyOperationsOfWithdrawal(userID primitive.ObjectID, withdrawal models.Withdrawal) {
	opsEmail := os.Getenv("OPS_EMAIL")
	if opsEmail == "" {
		return
	}
	body := fmt.Sprintf("Vendor %s requested a withdrawal of %.2f.\nRequest ID: %s\nDetails: %s",
		userID.Hex(), withdrawal.Amount, withdrawal.ID.Hex(), withdrawal.Details)
	if err := utils.SendEmail(opsEmail, "New withdrawal request", body); err != nil {
		log.Printf("Error emailing withdrawal request %s: %v", withdrawal.ID.Hex(), err)
	}
}
