package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ali_portfolio/internal/domain/models"
	services "ali_portfolio/internal/services/inbox_service"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInbox struct {
	mu      sync.Mutex
	msgs    []models.Message
	filters []models.MessageFilter
	err     error
}

func (f *fakeInbox) List(_ context.Context, filter models.MessageFilter) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Message(nil), f.msgs...), nil
}

func (f *fakeInbox) add(msg models.Message) {
	f.mu.Lock()
	f.msgs = append([]models.Message{msg}, f.msgs...)
	f.mu.Unlock()
}

func startHub(t *testing.T, inbox Lister) (*Hub, *services.LocalBus, string) {
	t.Helper()

	bus := services.NewLocalBus()
	hub := NewHub(slog.Default(), inbox, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	e := echo.New()
	e.GET("/live", hub.Handle)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, bus, "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_SnapshotOnConnectAndEvent(t *testing.T) {
	inbox := &fakeInbox{msgs: []models.Message{{ID: "m1", Subject: "first", Status: models.MessageUnread}}}
	hub, bus, url := startHub(t, inbox)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?q=wedding&status=unread", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, MessageTypeSnapshot, first.Type)
	require.Len(t, first.Messages, 1)
	assert.Nil(t, first.Event)
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	inbox.add(models.Message{ID: "m2", Subject: "second", Status: models.MessageUnread})
	require.NoError(t, bus.Publish(context.Background(), models.InboxEvent{Type: models.InboxMessageCreated, MessageID: "m2"}))

	next := readFrame(t, conn)
	assert.Equal(t, MessageTypeSnapshot, next.Type)
	require.Len(t, next.Messages, 2)
	assert.Equal(t, "m2", next.Messages[0].ID)
	require.NotNil(t, next.Event)
	assert.Equal(t, models.InboxMessageCreated, next.Event.Type)

	inbox.mu.Lock()
	assert.Equal(t, models.MessageFilter{Query: "wedding", Status: "unread"}, inbox.filters[0])
	inbox.mu.Unlock()
}

func TestHub_ListError(t *testing.T) {
	inbox := &fakeInbox{err: errors.New("db down")}
	_, _, url := startHub(t, inbox)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readFrame(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "failed to load messages", msg.Error)
}

func TestHub_Unregister(t *testing.T) {
	hub, _, url := startHub(t, &fakeInbox{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpgraderFactory_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"https://alizidanjr.site"}, "", true},
		{"allowed origin", []string{"https://alizidanjr.site"}, "https://alizidanjr.site", true},
		{"foreign origin", []string{"https://alizidanjr.site"}, "https://evil.example", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"nothing configured", nil, "https://anything.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := upgraderFactory(tt.allowed)
			req := httptest.NewRequest("GET", "/live", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, up.CheckOrigin(req))
		})
	}
}
