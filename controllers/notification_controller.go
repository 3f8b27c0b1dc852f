package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/repositories"
)

type NotificationController struct {
	store repositories.NotificationStore
	users *repositories.UserRepository
}

func NewNotificationController(store repositories.NotificationStore, users *repositories.UserRepository) *NotificationController {
	return &NotificationController{store: store, users: users}
}

// GetNotifications returns the caller's notifications, newest first, together
// with the unread count so the client can seed its view model in one call.
func (nc *NotificationController) GetNotifications(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notifications, err := nc.store.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("Error listing notifications for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve notifications",
		})
	}

	unreadCount, err := nc.store.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("Error counting unread notifications for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve notifications",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved successfully",
		Data: map[string]interface{}{
			"notifications": notifications,
			"unreadCount":   unreadCount,
		},
	})
}

// MarkAsRead marks a single notification of the caller as read. Idempotent:
// re-marking an already-read notification succeeds without changing anything.
// The store update is scoped to the caller, so an id belonging to somebody
// else is a no-op.
func (nc *NotificationController) MarkAsRead(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := nc.store.MarkRead(ctx, notificationID, userID); err != nil {
		log.Printf("Error marking notification %s read: %v", notificationID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to mark notification as read",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification marked as read",
	})
}

// MarkAllAsRead marks every notification of the caller as read in one update
func (nc *NotificationController) MarkAllAsRead(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := nc.store.MarkAllRead(ctx, userID); err != nil {
		log.Printf("Error marking all notifications read for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to mark notifications as read",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "All notifications marked as read",
	})
}

// UpdateFCMToken registers a device push token for the caller
func (nc *NotificationController) UpdateFCMToken(c echo.Context) error {
	var req models.FCMTokenUpdateRequest
	if err := c.Bind(&req); err != nil || req.FCMToken == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := nc.users.UpdateFCMToken(ctx, userID, req.FCMToken); err != nil {
		log.Printf("Error updating FCM token for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update FCM token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "FCM token updated",
	})
}

// authenticatedUserID resolves the caller's user id from the JWT claims
func authenticatedUserID(c echo.Context) (primitive.ObjectID, error) {
	userIDStr, err := middleware.ExtractUserID(c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(userIDStr)
}
