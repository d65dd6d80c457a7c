package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 16
)

// Lister отдаёт упорядоченный список писем для снимка
type Lister interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
}

type Subscriber interface {
	Subscribe() (<-chan models.InboxEvent, func())
}

type MessageType string

const (
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeError    MessageType = "error"
)

// Message is one frame sent to an admin client.
type Message struct {
	Type      MessageType        `json:"type"`
	Messages  []models.Message   `json:"messages,omitempty"`
	Event     *models.InboxEvent `json:"event,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	filter models.MessageFilter
	hub    *Hub
}

// Hub держит подключения админки и рассылает им свежий снимок входящих
// после каждого изменения.
type Hub struct {
	log        *slog.Logger
	inbox      Lister
	events     Subscriber
	upgrader   websocket.Upgrader
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub(log *slog.Logger, inbox Lister, events Subscriber, allowedOrigins []string) *Hub {
	return &Hub{
		log:        log,
		inbox:      inbox,
		events:     events,
		upgrader:   upgraderFactory(allowedOrigins),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// Run обслуживает регистрацию клиентов и события входящих до отмены ctx
func (h *Hub) Run(ctx context.Context) error {
	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("websocket hub stopped")
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.log.Debug("client registered", slog.String("id", c.id))
			h.sendSnapshot(ctx, c, nil)

		case c := <-h.unregister:
			h.remove(c)

		case ev, ok := <-events:
			if !ok {
				h.closeAll()
				return nil
			}
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.sendSnapshot(ctx, c, &ev)
			}
		}
	}
}

// Handle апгрейдит запрос до websocket. Фильтр берётся из q и status.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection",
			slog.String("origin", c.Request().Header.Get("Origin")),
			sl.Err(err),
		)
		return nil
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		filter: models.MessageFilter{
			Query:  c.QueryParam("q"),
			Status: c.QueryParam("status"),
		},
		hub: h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendSnapshot(ctx context.Context, c *Client, ev *models.InboxEvent) {
	msg := Message{Type: MessageTypeSnapshot, Event: ev, Timestamp: time.Now().UTC()}

	msgs, err := h.inbox.List(ctx, c.filter)
	if err != nil {
		h.log.Error("failed to build inbox snapshot", slog.String("client", c.id), sl.Err(err))
		msg = Message{Type: MessageTypeError, Error: "failed to load messages", Timestamp: msg.Timestamp}
	} else {
		msg.Messages = msgs
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal snapshot", sl.Err(err))
		return
	}

	select {
	case c.send <- data:
	default:
		h.log.Warn("client channel blocked, skipping", slog.String("client", c.id))
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
		h.log.Debug("client unregistered", slog.String("id", c.id))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// клиент ничего не шлёт, чтение нужно только для close и pong
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket closed", slog.String("client", c.id), sl.Err(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
