package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

// NotificationStore is the persistence contract the delivery subsystem
// consumes. The push channel and the REST surface only ever talk to this
// interface; the backing engine is an implementation detail.
type NotificationStore interface {
	Create(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, data interface{}) (*models.Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Client) *NotificationRepository {
	return &NotificationRepository{
		collection: config.GetCollection(db, "notifications"),
	}
}

// Create persists a new unread notification and returns it with its
// store-assigned id and timestamp.
func (r *NotificationRepository) Create(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, data interface{}) (*models.Notification, error) {
	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := r.collection.InsertOne(ctx, notification)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListByUser returns all notifications for a user, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flips a notification to read. The filter matches unread records
// of the given recipient only, so re-marking an already-read notification is
// a no-op rather than an error, the transition never reverts, and nobody can
// touch another user's read state.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	return err
}

// MarkAllRead flips every unread notification of a user in one update
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	return err
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
}
