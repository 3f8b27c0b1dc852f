package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// recordingStore captures the scoping arguments the controller hands to the
// notification store
type recordingStore struct {
	list         []models.Notification
	unread       int64
	markReadID   primitive.ObjectID
	markReadUser primitive.ObjectID
	markAllUser  primitive.ObjectID
}

func (s *recordingStore) Create(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, data interface{}) (*models.Notification, error) {
	return &models.Notification{ID: primitive.NewObjectID(), UserID: userID}, nil
}

func (s *recordingStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.list, nil
}

func (s *recordingStore) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	s.markReadID = id
	s.markReadUser = userID
	return nil
}

func (s *recordingStore) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	s.markAllUser = userID
	return nil
}

func (s *recordingStore) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.unread, nil
}

func newAuthenticatedContext(t *testing.T, method, target string, userID primitive.ObjectID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userId", userID.Hex())
	return c, rec
}

func TestMarkAsReadScopesUpdateToCaller(t *testing.T) {
	store := &recordingStore{}
	controller := NewNotificationController(store, nil)

	caller := primitive.NewObjectID()
	notificationID := primitive.NewObjectID()

	c, rec := newAuthenticatedContext(t, http.MethodPut, "/api/notifications/"+notificationID.Hex()+"/read", caller)
	c.SetParamNames("id")
	c.SetParamValues(notificationID.Hex())

	require.NoError(t, controller.MarkAsRead(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The store must receive the caller's identity, not just the record id;
	// otherwise any authenticated user could flip somebody else's read state
	assert.Equal(t, notificationID, store.markReadID)
	assert.Equal(t, caller, store.markReadUser)
}

func TestMarkAsReadRejectsUnauthenticated(t *testing.T) {
	store := &recordingStore{}
	controller := NewNotificationController(store, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/notifications/x/read", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, controller.MarkAsRead(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, store.markReadUser.IsZero(), "store must not be touched without a caller identity")
}

func TestMarkAsReadRejectsMalformedID(t *testing.T) {
	store := &recordingStore{}
	controller := NewNotificationController(store, nil)

	c, rec := newAuthenticatedContext(t, http.MethodPut, "/api/notifications/nope/read", primitive.NewObjectID())
	c.SetParamNames("id")
	c.SetParamValues("nope")

	require.NoError(t, controller.MarkAsRead(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkAllAsReadScopesToCaller(t *testing.T) {
	store := &recordingStore{}
	controller := NewNotificationController(store, nil)

	caller := primitive.NewObjectID()
	c, rec := newAuthenticatedContext(t, http.MethodPut, "/api/notifications/read-all", caller)

	require.NoError(t, controller.MarkAllAsRead(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, caller, store.markAllUser)
}
