package services

import (
	"context"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/websocket"
)

// NotificationService is the single entry point the CRUD layer uses to emit
// notifications. Persistence is authoritative; the push channel and FCM are
// best-effort side channels and their failures never reach the caller.
type NotificationService struct {
	store repositories.NotificationStore
	users *repositories.UserRepository
	hub   *websocket.Hub
}

func NewNotificationService(store repositories.NotificationStore, users *repositories.UserRepository, hub *websocket.Hub) *NotificationService {
	return &NotificationService{
		store: store,
		users: users,
		hub:   hub,
	}
}

// Notify persists a notification and forwards it to every live connection of
// the recipient. The returned error covers persistence only; a recipient
// with no open connection sees the record on their next load.
func (s *NotificationService) Notify(ctx context.Context, recipientID primitive.ObjectID, notifType, title, message string, data interface{}) error {
	notification, err := s.store.Create(ctx, recipientID, notifType, title, message, data)
	if err != nil {
		return err
	}

	s.hub.Dispatch(*notification)

	go s.sendFCM(recipientID, title, message, notifType)

	return nil
}

// sendFCM pushes a native notification to the recipient's registered device,
// if any. Runs detached from the request; all failures are logged and dropped.
func (s *NotificationService) sendFCM(userID primitive.ObjectID, title, message, notifType string) {
	if config.FirebaseApp == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user.FCMToken == "" {
		return
	}

	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		log.Printf("Error getting messaging client: %v", err)
		return
	}

	fcmMessage := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
		Data: map[string]string{
			"type":      notifType,
			"timestamp": time.Now().Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "taskhive_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  message,
					},
					Sound: "default",
					Badge: func() *int { v := 1; return &v }(),
				},
			},
		},
	}

	if _, err := client.Send(ctx, fcmMessage); err != nil {
		log.Printf("Error sending FCM notification to user %s: %v", userID.Hex(), err)
	}
}
