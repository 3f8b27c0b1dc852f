package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gorilla "github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// HTTPStore talks to the notification REST surface with a bearer token
type HTTPStore struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type listPayload struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

type listResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    listPayload `json:"data"`
}

func (s *HTTPStore) List(ctx context.Context) ([]models.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/api/notifications", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list notifications: unexpected status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data.Notifications, nil
}

func (s *HTTPStore) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return s.put(ctx, "/api/notifications/"+id.Hex()+"/read")
}

func (s *HTTPStore) MarkAllRead(ctx context.Context) error {
	return s.put(ctx, "/api/notifications/read-all")
}

func (s *HTTPStore) put(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// WSDialer opens push channel connections against the server's /api/ws
// endpoint, passing the session token as a query parameter.
type WSDialer struct {
	BaseURL string // ws:// or wss://
	Token   string
}

func NewWSDialer(baseURL, token string) *WSDialer {
	return &WSDialer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
	}
}

func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	endpoint := d.BaseURL + "/api/ws?token=" + url.QueryEscape(d.Token)

	conn, resp, err := gorilla.DefaultDialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *gorilla.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	return payload, err
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
