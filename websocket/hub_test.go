package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
)

const testSecret = "test-secret-for-websocket"

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.GET("/api/ws", func(c echo.Context) error {
		return HandleWebSocket(c, hub)
	})
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dialAs(t *testing.T, server *httptest.Server, userID primitive.ObjectID) *gorilla.Conn {
	t.Helper()
	token, _, err := middleware.GenerateJWT(userID.Hex(), "vendor@example.com", models.UserTypeVendor)
	require.NoError(t, err)

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Consume the welcome frame
	var welcome Envelope
	require.NoError(t, readEnvelope(t, conn, &welcome))
	require.Equal(t, "connected", welcome.Type)

	return conn
}

func readEnvelope(t *testing.T, conn *gorilla.Conn, envelope *Envelope) error {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, envelope)
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	hub := NewHub()
	server := newTestServer(t, hub)

	_, resp, err := gorilla.DefaultDialer.Dial(wsURL(server, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestHandshakeRejectsGarbageToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	hub := NewHub()
	server := newTestServer(t, hub)

	_, resp, err := gorilla.DefaultDialer.Dial(wsURL(server, "not-a-jwt"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestHandshakeRejectionLeavesRegistryEmpty(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	hub := NewHub()
	server := newTestServer(t, hub)

	gorilla.DefaultDialer.Dial(wsURL(server, "expired.or.bogus"), nil)

	userID := primitive.NewObjectID()
	assert.Equal(t, 0, hub.ConnectionCount(userID))
}

func TestDispatchFansOutToEveryConnectionOfRecipient(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	hub := NewHub()
	server := newTestServer(t, hub)

	recipient := primitive.NewObjectID()
	bystander := primitive.NewObjectID()

	connA := dialAs(t, server, recipient)
	connB := dialAs(t, server, recipient)
	connC := dialAs(t, server, bystander)

	require.Eventually(t, func() bool {
		return hub.ConnectionCount(recipient) == 2 && hub.ConnectionCount(bystander) == 1
	}, 2*time.Second, 10*time.Millisecond)

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    recipient,
		Title:     "Task approved",
		Message:   "Your submission was accepted",
		Type:      models.NotificationTypeTaskApproved,
		CreatedAt: time.Now(),
	}
	hub.Dispatch(notification)

	for _, conn := range []*gorilla.Conn{connA, connB} {
		var envelope Envelope
		require.NoError(t, readEnvelope(t, conn, &envelope))
		assert.Equal(t, "notification", envelope.Type)

		data, ok := envelope.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, notification.ID.Hex(), data["id"])
		assert.Equal(t, "Task approved", data["title"])
	}

	// The bystander must not see the recipient's notification
	var envelope Envelope
	err := readEnvelope(t, connC, &envelope)
	assert.Error(t, err, "expected read timeout, got frame %+v", envelope)
}

func TestDispatchWithoutConnectionsIsANoOp(t *testing.T) {
	hub := NewHub()

	hub.Dispatch(models.Notification{
		ID:     primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		Title:  "Nobody is listening",
	})

	// Nothing to assert beyond the absence of a panic; a recipient without
	// connections picks the record up on their next load.
}

func TestDispatchPreservesEnqueueOrderPerConnection(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	hub := NewHub()
	server := newTestServer(t, hub)

	recipient := primitive.NewObjectID()
	conn := dialAs(t, server, recipient)

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		hub.Dispatch(models.Notification{
			ID:     primitive.NewObjectID(),
			UserID: recipient,
			Title:  title,
		})
	}

	for _, want := range titles {
		var envelope Envelope
		require.NoError(t, readEnvelope(t, conn, &envelope))
		data, ok := envelope.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, want, data["title"])
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	hub := NewHub()
	server := newTestServer(t, hub)

	recipient := primitive.NewObjectID()
	dialAs(t, server, recipient)

	require.Eventually(t, func() bool {
		return hub.ConnectionCount(recipient) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var client *Client
	hub.mu.RLock()
	for c := range hub.clients[recipient] {
		client = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, client)

	hub.Unregister(client)
	hub.Unregister(client)
	hub.Unregister(client)

	assert.Equal(t, 0, hub.ConnectionCount(recipient))

	// Dispatching to the departed user must not panic or resurrect anything
	hub.Dispatch(models.Notification{ID: primitive.NewObjectID(), UserID: recipient})
	assert.Equal(t, 0, hub.ConnectionCount(recipient))
}
