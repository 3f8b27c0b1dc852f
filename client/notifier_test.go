package client

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/websocket"
)

// fakeStore serves a configurable snapshot and records write calls
type fakeStore struct {
	mu           sync.Mutex
	list         []models.Notification
	listErr      error
	markReadErr  error
	markReadIDs  []primitive.ObjectID
	markAllCalls int
}

func (s *fakeStore) List(ctx context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Notification, len(s.list))
	copy(out, s.list)
	return out, nil
}

func (s *fakeStore) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadIDs = append(s.markReadIDs, id)
	return s.markReadErr
}

func (s *fakeStore) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markAllCalls++
	return nil
}

func (s *fakeStore) setList(list []models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = list
}

func (s *fakeStore) markAllCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markAllCalls
}

// fakeConn feeds frames from a channel and fails once closed
type fakeConn struct {
	frames    chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case payload := <-c.frames:
		return payload, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(t *testing.T, notification models.Notification) {
	t.Helper()
	payload, err := json.Marshal(websocket.Envelope{Type: "notification", Data: notification})
	require.NoError(t, err)
	c.frames <- payload
}

// fakeDialer hands out connections in order, then blocks further dials. An
// optional gate holds every dial until the test releases it.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
	gate  chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dials > len(d.conns) {
		return nil, errors.New("no connection available")
	}
	return d.conns[d.dials-1], nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func makeNotification(title string, read bool) models.Notification {
	return models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    primitive.NewObjectID(),
		Title:     title,
		Type:      models.NotificationTypeTaskAssigned,
		IsRead:    read,
		CreatedAt: time.Now(),
	}
}

func TestColdStartLoadsSnapshotAndCountsUnread(t *testing.T) {
	store := &fakeStore{list: []models.Notification{
		makeNotification("newest", false),
		makeNotification("middle", true),
		makeNotification("oldest", false),
	}}
	dialer := &fakeDialer{conns: []*fakeConn{newFakeConn()}}

	notifier := NewNotifier(store, dialer, 50*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)

	notifications := notifier.Notifications()
	require.Len(t, notifications, 3)
	assert.Equal(t, "newest", notifications[0].Title)
	assert.Equal(t, 2, notifier.UnreadCount())
}

func TestFailedInitialLoadLeavesEmptyState(t *testing.T) {
	store := &fakeStore{listErr: errors.New("store down")}
	dialer := &fakeDialer{conns: []*fakeConn{newFakeConn()}}

	notifier := NewNotifier(store, dialer, 50*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)
	assert.Empty(t, notifier.Notifications())
	assert.Equal(t, 0, notifier.UnreadCount())
}

func TestFirstConnectReloadsAfterFailedInitialLoad(t *testing.T) {
	store := &fakeStore{listErr: errors.New("store down")}
	conn := newFakeConn()
	gate := make(chan struct{})
	dialer := &fakeDialer{conns: []*fakeConn{conn}, gate: gate}

	notifier := NewNotifier(store, dialer, 50*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	// Initial load failed: empty degraded state
	require.Empty(t, notifier.Notifications())

	// The store recovers before the push channel comes up; the first connect
	// must load the snapshot instead of staying degraded until a disconnect
	store.mu.Lock()
	store.listErr = nil
	store.list = []models.Notification{makeNotification("recovered", false)}
	store.mu.Unlock()
	close(gate)

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(notifier.Notifications()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "recovered", notifier.Notifications()[0].Title)
	assert.Equal(t, 1, notifier.UnreadCount())
}

func TestLivePushPrependsAndIncrementsUnread(t *testing.T) {
	store := &fakeStore{list: []models.Notification{
		makeNotification("existing", true),
	}}
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}

	notifier := NewNotifier(store, dialer, 50*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)

	conn.push(t, makeNotification("pushed", false))

	require.Eventually(t, func() bool {
		return len(notifier.Notifications()) == 2
	}, time.Second, 5*time.Millisecond)

	notifications := notifier.Notifications()
	assert.Equal(t, "pushed", notifications[0].Title)
	assert.Equal(t, "existing", notifications[1].Title)
	assert.Equal(t, 1, notifier.UnreadCount())
}

func TestUnreadCounterTracksSequence(t *testing.T) {
	// Mixed pushes in arbitrary read-state order: the counter must equal the
	// number of unread entries at every step.
	store := &fakeStore{}
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}

	notifier := NewNotifier(store, dialer, 50*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)

	reads := []bool{false, true, false, false, true}
	for i, read := range reads {
		conn.push(t, makeNotification("n", read))
		wantLen := i + 1
		require.Eventually(t, func() bool {
			return len(notifier.Notifications()) == wantLen
		}, time.Second, 5*time.Millisecond)

		unreadInList := 0
		for _, notification := range notifier.Notifications() {
			if !notification.IsRead {
				unreadInList++
			}
		}
		assert.Equal(t, unreadInList, notifier.UnreadCount())
	}
	assert.Equal(t, 3, notifier.UnreadCount())
}

func TestUnreadCounterMatchesRecountUnderRandomInterleavings(t *testing.T) {
	// Drives the state machine through a long random mix of pushes,
	// single marks (known and unknown ids) and bulk marks, checking after
	// every step that the counter equals a recount of the sequence.
	rng := rand.New(rand.NewSource(1))
	notifier := NewNotifier(&fakeStore{}, &fakeDialer{}, 50*time.Millisecond)

	recount := func() int {
		unread := 0
		for _, notification := range notifier.Notifications() {
			if !notification.IsRead {
				unread++
			}
		}
		return unread
	}

	var known []primitive.ObjectID
	for step := 0; step < 500; step++ {
		switch op := rng.Intn(10); {
		case op < 6:
			notification := makeNotification("n", rng.Intn(2) == 0)
			notifier.applyPush(notification)
			known = append(known, notification.ID)
		case op < 9:
			id := primitive.NewObjectID()
			if len(known) > 0 && rng.Intn(4) != 0 {
				id = known[rng.Intn(len(known))]
			}
			notifier.MarkAsRead(context.Background(), id)
		default:
			notifier.MarkAllAsRead(context.Background())
		}

		require.Equal(t, recount(), notifier.UnreadCount(), "diverged at step %d", step)
	}
}

func TestMarkAsReadIsOptimisticAndIdempotent(t *testing.T) {
	target := makeNotification("target", false)
	store := &fakeStore{
		list:        []models.Notification{target, makeNotification("other", false)},
		markReadErr: errors.New("store down"),
	}

	notifier := NewNotifier(store, &fakeDialer{}, 50*time.Millisecond)
	require.NoError(t, notifier.LoadNotifications(context.Background()))
	require.Equal(t, 2, notifier.UnreadCount())

	// The store write fails, the local flip stands
	notifier.MarkAsRead(context.Background(), target.ID)
	assert.True(t, notifier.Notifications()[0].IsRead)
	assert.Equal(t, 1, notifier.UnreadCount())

	// Marking the same entry again must not decrement twice
	notifier.MarkAsRead(context.Background(), target.ID)
	assert.Equal(t, 1, notifier.UnreadCount())

	// Marking an unknown id changes nothing locally but still hits the store
	notifier.MarkAsRead(context.Background(), primitive.NewObjectID())
	assert.Equal(t, 1, notifier.UnreadCount())

	store.mu.Lock()
	calls := len(store.markReadIDs)
	store.mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestMarkAllAsReadIssuesOneBulkCall(t *testing.T) {
	store := &fakeStore{list: []models.Notification{
		makeNotification("a", false),
		makeNotification("b", false),
		makeNotification("c", true),
	}}

	notifier := NewNotifier(store, &fakeDialer{}, 50*time.Millisecond)
	require.NoError(t, notifier.LoadNotifications(context.Background()))

	notifier.MarkAllAsRead(context.Background())

	for _, notification := range notifier.Notifications() {
		assert.True(t, notification.IsRead)
	}
	assert.Equal(t, 0, notifier.UnreadCount())
	assert.Equal(t, 1, store.markAllCount())
}

func TestReconnectReloadsSnapshotWithoutDuplicates(t *testing.T) {
	missed := makeNotification("missed while offline", false)
	initial := makeNotification("initial", true)

	store := &fakeStore{list: []models.Notification{initial}}
	conn1 := newFakeConn()
	conn2 := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn1, conn2}}

	notifier := NewNotifier(store, dialer, 20*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)
	require.Len(t, notifier.Notifications(), 1)

	// The connection dies; a notification lands while offline
	store.setList([]models.Notification{missed, initial})
	conn1.Close()

	require.Eventually(t, func() bool {
		return dialer.dialCount() == 2 && notifier.IsConnected()
	}, time.Second, 5*time.Millisecond)

	// The reconnect reload replaces the sequence: the missed record appears
	// exactly once
	require.Eventually(t, func() bool {
		return len(notifier.Notifications()) == 2
	}, time.Second, 5*time.Millisecond)

	notifications := notifier.Notifications()
	assert.Equal(t, "missed while offline", notifications[0].Title)
	assert.Equal(t, "initial", notifications[1].Title)
	assert.Equal(t, 1, notifier.UnreadCount())
}

func TestFailedReloadAfterReconnectKeepsOldState(t *testing.T) {
	initial := makeNotification("initial", false)
	store := &fakeStore{list: []models.Notification{initial}}
	conn1 := newFakeConn()
	conn2 := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn1, conn2}}

	notifier := NewNotifier(store, dialer, 20*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)

	store.mu.Lock()
	store.listErr = errors.New("store down")
	store.mu.Unlock()
	conn1.Close()

	require.Eventually(t, func() bool {
		return dialer.dialCount() == 2 && notifier.IsConnected()
	}, time.Second, 5*time.Millisecond)

	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "initial", notifications[0].Title)
	assert.Equal(t, 1, notifier.UnreadCount())
}

func TestCloseStopsReconnectLoop(t *testing.T) {
	// Every dial fails; Close must end the loop instead of waiting out the
	// delay
	dialer := &fakeDialer{}
	notifier := NewNotifier(&fakeStore{}, dialer, time.Hour)
	notifier.Start(context.Background())

	require.Eventually(t, func() bool {
		return dialer.dialCount() == 1
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		notifier.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return while the reconnect timer was pending")
	}
	assert.False(t, notifier.IsConnected())
}

func TestNonNotificationFramesAreIgnored(t *testing.T) {
	store := &fakeStore{}
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}

	notifier := NewNotifier(store, dialer, 50*time.Millisecond)
	notifier.Start(context.Background())
	defer notifier.Close()

	require.Eventually(t, notifier.IsConnected, time.Second, 5*time.Millisecond)

	welcome, err := json.Marshal(websocket.Envelope{Type: "connected", Data: map[string]string{"userId": "abc"}})
	require.NoError(t, err)
	conn.frames <- welcome
	conn.frames <- []byte("{not json")

	conn.push(t, makeNotification("real", false))

	require.Eventually(t, func() bool {
		return len(notifier.Notifications()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "real", notifier.Notifications()[0].Title)
	assert.Equal(t, 1, notifier.UnreadCount())
}
