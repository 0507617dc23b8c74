package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/session"
)

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(func() {
		_ = m.Shutdown(context.Background())
		cancel()
	})
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestManager_DeliversOnlyToTargetUser(t *testing.T) {
	m := startManager(t)

	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)

	n := domain.Notification{ID: "n1", Type: domain.NotifyAnswer}
	m.EmitToUser("alice", NewNotificationCreatedEvent("alice", n, 1))

	got := receive(t, alice)
	assert.Equal(t, EventNotificationCreated, got.Type)
	assert.Equal(t, "n1", got.Data.(NotificationCreatedData).Notification.ID)

	select {
	case e := <-bob.EventChan:
		t.Fatalf("bob received %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_EmitAfterShutdownIsDropped(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Shutdown(context.Background()))
	m.Emit(NewHeartbeatEvent())
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_Disconnect(t *testing.T) {
	m := startManager(t)
	c, err := m.Connect("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)
	assert.Equal(t, 0, m.ClientCount())
	_, open := <-c.Done
	assert.False(t, open)
}

func TestHandler_RequiresSession(t *testing.T) {
	h := NewHandler(NewManager(nil), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_StreamsUserEvents(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := session.With(r.Context(), session.Session{Identity: &session.Identity{ID: "alice"}})
		h.ServeHTTP(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: connected", lines.Text())

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.EmitToUser("alice", NewNotificationsClearedEvent("alice"))

	var events []string
	for lines.Scan() {
		if line, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
			events = append(events, line)
			break
		}
	}
	assert.Equal(t, []string{string(EventNotificationsCleared)}, events)
}
