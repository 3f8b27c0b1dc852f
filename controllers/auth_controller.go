package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/utils"
)

// ReferralBonus is the flat wallet credit a referrer earns per signup
const ReferralBonus = 5.0

type AuthController struct {
	db       *mongo.Client
	users    *repositories.UserRepository
	notifier *services.NotificationService
}

func NewAuthController(db *mongo.Client, users *repositories.UserRepository, notifier *services.NotificationService) *AuthController {
	return &AuthController{db: db, users: users, notifier: notifier}
}

// Signup registers a new account. A valid incoming referral code credits the
// referrer's wallet and sends them a referral_earned notification.
func (ac *AuthController) Signup(c echo.Context) error {
	var req models.SignupRequest
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

	userType := req.UserType
	if userType == "" {
		userType = models.UserTypeVendor
	}
	if userType != models.UserTypeVendor && userType != models.UserTypeAdmin {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user type",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCollection := config.GetCollection(ac.db, "users")

	// Reject duplicate emails before hashing work
	count, err := usersCollection.CountDocuments(ctx, bson.M{"email": req.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Email already registered",
		})
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process password",
		})
	}

	// Resolve the referrer before creating the account so a bad code fails
	// the signup instead of silently dropping the bonus
	var referrer *models.User
	if req.ReferralCode != "" {
		referrer, err = ac.users.FindByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return c.JSON(http.StatusNotFound, models.Response{
					Status:  http.StatusNotFound,
					Message: "Referral code not found",
				})
			}
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Database error",
			})
		}
	}

	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	now := time.Now()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Email:        req.Email,
		Password:     hashedPassword,
		FullName:     req.FullName,
		UserType:     userType,
		Phone:        req.Phone,
		ReferralCode: referralCode,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}

	if _, err := usersCollection.InsertOne(ctx, user); err != nil {
		log.Printf("Error creating user: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create account",
		})
	}

	if referrer != nil {
		ac.creditReferrer(ctx, referrer, &user)
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.UserType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	user.Password = ""
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Account created successfully",
		Data: models.LoginResponse{
			Token:        token,
			RefreshToken: refreshToken,
			User:         user,
		},
	})
}

// creditReferrer applies the referral bonus and notifies the referrer. The
// signup has already committed; failures here are logged, not surfaced.
func (ac *AuthController) creditReferrer(ctx context.Context, referrer, newUser *models.User) {
	usersCollection := config.GetCollection(ac.db, "users")

	_, err := usersCollection.UpdateByID(ctx, referrer.ID, bson.M{
		"$inc":  bson.M{"balance": ReferralBonus},
		"$push": bson.M{"referrals": newUser.ID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		log.Printf("Error crediting referrer %s: %v", referrer.ID.Hex(), err)
		return
	}

	transaction := models.WalletTransaction{
		ID:        primitive.NewObjectID(),
		UserID:    referrer.ID,
		Amount:    ReferralBonus,
		Type:      models.TransactionTypeReferralBonus,
		Reference: newTransactionReference(),
		Note:      "Referral bonus for " + newUser.Email,
		CreatedAt: time.Now(),
	}
	if _, err := config.GetCollection(ac.db, "transactions").InsertOne(ctx, transaction); err != nil {
		log.Printf("Error recording referral transaction: %v", err)
	}

	err = ac.notifier.Notify(ctx, referrer.ID,
		models.NotificationTypeReferralEarned,
		"Referral bonus earned",
		newUser.FullName+" joined with your referral code",
		map[string]interface{}{"referredUserId": newUser.ID.Hex(), "amount": ReferralBonus},
	)
	if err != nil {
		log.Printf("Error sending referral notification: %v", err)
	}
}

// Login authenticates an account and issues tokens
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
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

	user, err := ac.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.UserType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	response := models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	}
	response.User.Password = ""

	if req.RememberMe {
		rememberToken, err := utils.GenerateRememberMeToken()
		if err == nil {
			credentials := utils.RememberedCredentials{
				Email:      user.Email,
				UserType:   user.UserType,
				UserID:     user.ID.Hex(),
				ExpiresAt:  time.Now().Add(30 * 24 * time.Hour),
				DeviceInfo: req.DeviceInfo,
			}
			if err := utils.StoreRememberedCredentials(config.GetRedisClient(), rememberToken, credentials, 30*24*time.Hour); err != nil {
				log.Printf("Remember me storage failed: %v", err)
			} else {
				response.RememberToken = rememberToken
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data:    response,
	})
}

// RememberLogin redeems a remember-me token for a fresh session. The token
// stays valid until logout or its Redis expiry, so a device can keep
// re-opening sessions without stored passwords.
func (ac *AuthController) RememberLogin(c echo.Context) error {
	var req models.RememberLoginRequest
	if err := c.Bind(&req); err != nil || req.RememberToken == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	credentials, err := utils.RetrieveRememberedCredentials(config.GetRedisClient(), req.RememberToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or expired remember me token",
		})
	}

	userID, err := primitive.ObjectIDFromHex(credentials.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or expired remember me token",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := ac.users.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		// Account gone or deactivated since the token was issued; drop it
		if rerr := utils.RemoveRememberedCredentials(config.GetRedisClient(), req.RememberToken); rerr != nil {
			log.Printf("Error removing stale remembered credentials: %v", rerr)
		}
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or expired remember me token",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.UserType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	response := models.LoginResponse{
		Token:         token,
		RefreshToken:  refreshToken,
		RememberToken: req.RememberToken,
		User:          *user,
	}
	response.User.Password = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data:    response,
	})
}

// Logout invalidates the presented token and drops any remember-me entry
func (ac *AuthController) Logout(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		expiry := time.Unix(claims.ExpiresAt, 0)
		if claims.ExpiresAt == 0 {
			expiry = time.Now().Add(24 * time.Hour)
		}
		middleware.BlacklistToken(authHeader[7:], expiry)
	}

	if rememberToken := c.QueryParam("rememberToken"); rememberToken != "" {
		if err := utils.RemoveRememberedCredentials(config.GetRedisClient(), rememberToken); err != nil {
			log.Printf("Error removing remembered credentials: %v", err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Logged out successfully",
	})
}
