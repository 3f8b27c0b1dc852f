package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Client) *UserRepository {
	return &UserRepository{
		collection: config.GetCollection(db, "users"),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"referralCode": code}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateFCMToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"fcmToken": token, "updatedAt": time.Now()}},
	)
	return err
}

// AdjustBalance applies a signed delta to the user's wallet balance
func (r *UserRepository) AdjustBalance(ctx context.Context, userID primitive.ObjectID, delta float64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"balance": delta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}
