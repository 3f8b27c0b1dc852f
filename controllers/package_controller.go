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
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
)

type PackageController struct {
	db *mongo.Client
}

func NewPackageController(db *mongo.Client) *PackageController {
	return &PackageController{db: db}
}

// CreatePackage creates a task package (admin only)
func (pc *PackageController) CreatePackage(c echo.Context) error {
	if middleware.ExtractUserType(c) != models.UserTypeAdmin {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only admins can create packages",
		})
	}

	creatorID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.PackageCreateRequest
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

	now := time.Now()
	pkg := models.TaskPackage{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CreatedBy:   creatorID,
		Subscribers: []primitive.ObjectID{},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := config.GetCollection(pc.db, "packages").InsertOne(ctx, pkg); err != nil {
		log.Printf("Error creating package: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create package",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Package created successfully",
		Data:    pkg,
	})
}

// GetPackages lists active packages
func (pc *PackageController) GetPackages(c echo.Context) error {
	if _, err := authenticatedUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := config.GetCollection(pc.db, "packages").Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		log.Printf("Error listing packages: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve packages",
		})
	}
	defer cursor.Close(ctx)

	packages := []models.TaskPackage{}
	if err := cursor.All(ctx, &packages); err != nil {
		log.Printf("Error decoding packages: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve packages",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Packages retrieved successfully",
		Data:    packages,
	})
}

// PurchasePackage debits the caller's wallet by the package price and adds
// them to the subscriber list. Subscribers are notified of new tasks posted
// into the package.
func (pc *PackageController) PurchasePackage(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	packageID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid package ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pkg models.TaskPackage
	err = config.GetCollection(pc.db, "packages").FindOne(ctx,
		bson.M{"_id": packageID, "isActive": true}).Decode(&pkg)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Package not found",
		})
	}

	for _, subscriberID := range pkg.Subscribers {
		if subscriberID == userID {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Package already purchased",
			})
		}
	}

	usersCollection := config.GetCollection(pc.db, "users")

	if pkg.Price > 0 {
		result, err := usersCollection.UpdateOne(ctx,
			bson.M{"_id": userID, "balance": bson.M{"$gte": pkg.Price}},
			bson.M{
				"$inc": bson.M{"balance": -pkg.Price},
				"$set": bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			log.Printf("Error debiting package purchase for %s: %v", userID.Hex(), err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to purchase package",
			})
		}
		if result.ModifiedCount == 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Insufficient balance",
			})
		}

		transaction := models.WalletTransaction{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Amount:    -pkg.Price,
			Type:      models.TransactionTypePackagePurchase,
			Reference: newTransactionReference(),
			Note:      "Purchase of package " + pkg.Name,
			CreatedAt: time.Now(),
		}
		if _, err := config.GetCollection(pc.db, "transactions").InsertOne(ctx, transaction); err != nil {
			log.Printf("Error recording purchase transaction: %v", err)
		}
	}

	_, err = config.GetCollection(pc.db, "packages").UpdateByID(ctx, packageID, bson.M{
		"$addToSet": bson.M{"subscribers": userID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		log.Printf("Error subscribing %s to package %s: %v", userID.Hex(), packageID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to purchase package",
		})
	}

	_, err = usersCollection.UpdateByID(ctx, userID, bson.M{
		"$addToSet": bson.M{"packages": packageID},
	})
	if err != nil {
		log.Printf("Error recording package on user %s: %v", userID.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Package purchased successfully",
		Data:    pkg,
	})
}
