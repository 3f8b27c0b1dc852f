// Package client implements the notification view model an end-user client
// keeps: the bulk-loaded list merged with live pushes and local read-state
// edits, plus the reconnect loop for the push channel.
package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/websocket"
)

// Store abstracts the notification REST surface the view model reconciles
// against.
type Store interface {
	List(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context) error
}

// Conn is one live push channel connection
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens push channel connections
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DefaultReconnectDelay is the fixed wait between reconnection attempts
const DefaultReconnectDelay = 5 * time.Second

// Notifier holds the client-visible notification state. The displayed
// sequence is newest-first; the unread counter is kept equal to the number
// of unread entries in the sequence at all times.
type Notifier struct {
	store          Store
	dialer         Dialer
	reconnectDelay time.Duration

	mu            sync.Mutex
	notifications []models.Notification
	unread        int
	connected     bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a notifier over the given store and dialer. A
// non-positive reconnectDelay falls back to DefaultReconnectDelay.
func NewNotifier(store Store, dialer Dialer, reconnectDelay time.Duration) *Notifier {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Notifier{
		store:          store,
		dialer:         dialer,
		reconnectDelay: reconnectDelay,
	}
}

// Start loads the initial snapshot and keeps a push channel connection open
// until Close is called or ctx ends. A failed initial load leaves the empty
// degraded state; the next successful connect reloads.
func (n *Notifier) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.done = make(chan struct{})

	loadFailed := false
	if err := n.LoadNotifications(runCtx); err != nil {
		log.Printf("Initial notification load failed: %v", err)
		loadFailed = true
	}

	go n.run(runCtx, loadFailed)
}

// Close tears the connection and the reconnect loop down deterministically.
// Safe to call only after Start.
func (n *Notifier) Close() {
	n.cancel()
	<-n.done
}

// run keeps a connection open until the session ends. reloadOnConnect is
// true when the sequence may be stale: after a failed initial load, and on
// every reconnect (pushes may have been missed while offline). The reload
// replaces the whole sequence from the store.
func (n *Notifier) run(ctx context.Context, reloadOnConnect bool) {
	defer close(n.done)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := n.dialer.Dial(ctx)
		if err != nil {
			n.setConnected(false)
			if !n.waitReconnect(ctx) {
				return
			}
			continue
		}

		n.setConnected(true)

		if reloadOnConnect {
			if err := n.LoadNotifications(ctx); err != nil {
				log.Printf("Notification reload failed: %v", err)
			}
		}
		// Every later connect is a reconnect and must reload
		reloadOnConnect = true

		n.readLoop(ctx, conn)
		n.setConnected(false)

		if ctx.Err() != nil {
			return
		}
		if !n.waitReconnect(ctx) {
			return
		}
	}
}

// waitReconnect blocks for the fixed reconnect delay. Returns false when the
// session ended instead.
func (n *Notifier) waitReconnect(ctx context.Context) bool {
	timer := time.NewTimer(n.reconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// readLoop consumes frames until the connection dies or the session ends
func (n *Notifier) readLoop(ctx context.Context, conn Conn) {
	// ReadMessage has no context support; closing the connection is how a
	// session teardown unblocks it.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer close(stop)
	defer conn.Close()

	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope websocket.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			log.Printf("Discarding malformed push frame: %v", err)
			continue
		}
		if envelope.Type != "notification" {
			continue
		}

		raw, err := json.Marshal(envelope.Data)
		if err != nil {
			continue
		}
		var notification models.Notification
		if err := json.Unmarshal(raw, &notification); err != nil {
			log.Printf("Discarding malformed notification payload: %v", err)
			continue
		}

		n.applyPush(notification)
	}
}

// applyPush prepends a pushed notification. Pushes arrive in creation order
// and always carry the newest record, so no re-sort is needed.
func (n *Notifier) applyPush(notification models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notifications = append([]models.Notification{notification}, n.notifications...)
	if !notification.IsRead {
		n.unread++
	}
}

// LoadNotifications replaces the sequence with a fresh snapshot from the
// store and recomputes the unread counter. On failure the current state is
// left untouched.
func (n *Notifier) LoadNotifications(ctx context.Context) error {
	notifications, err := n.store.List(ctx)
	if err != nil {
		return err
	}

	unread := 0
	for _, notification := range notifications {
		if !notification.IsRead {
			unread++
		}
	}

	n.mu.Lock()
	n.notifications = notifications
	n.unread = unread
	n.mu.Unlock()
	return nil
}

// MarkAsRead optimistically flips the local entry and then updates the
// store. A failed store write is logged and the optimistic state stands;
// the next bulk load re-syncs.
func (n *Notifier) MarkAsRead(ctx context.Context, id primitive.ObjectID) {
	n.mu.Lock()
	for i := range n.notifications {
		if n.notifications[i].ID == id {
			if !n.notifications[i].IsRead {
				n.notifications[i].IsRead = true
				if n.unread > 0 {
					n.unread--
				}
			}
			break
		}
	}
	n.mu.Unlock()

	if err := n.store.MarkRead(ctx, id); err != nil {
		log.Printf("Mark-read for %s failed, local state kept: %v", id.Hex(), err)
	}
}

// MarkAllAsRead flips every entry, zeroes the counter and issues a single
// bulk store update with the same no-rollback policy as MarkAsRead.
func (n *Notifier) MarkAllAsRead(ctx context.Context) {
	n.mu.Lock()
	for i := range n.notifications {
		n.notifications[i].IsRead = true
	}
	n.unread = 0
	n.mu.Unlock()

	if err := n.store.MarkAllRead(ctx); err != nil {
		log.Printf("Mark-all-read failed, local state kept: %v", err)
	}
}

// Notifications returns a copy of the current sequence, newest first
func (n *Notifier) Notifications() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]models.Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// UnreadCount returns the current unread counter
func (n *Notifier) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

// IsConnected reports whether the push channel is live
func (n *Notifier) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *Notifier) setConnected(connected bool) {
	n.mu.Lock()
	n.connected = connected
	n.mu.Unlock()
}
