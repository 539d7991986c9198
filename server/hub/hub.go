// Package hub broadcasts live operation events to websocket clients.
//
// Hub implements engine.Sink and engine.Notifier: every item result,
// progress update, summary and notification is encoded as a JSON Message and
// queued for every connected browser. Sending never blocks the caller;
// clients that cannot keep up are disconnected.
//
// Example usage:
//
//	h := hub.New(logger)
//	go h.Run(ctx)
//	router.Handle("/ws", h)
//	r := runner.New(logger, provider, runner.WithSink(h), runner.WithNotifier(h))
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nomis52/neongrid/engine"
)

// Message types.
const (
	TypeConnection   = "connection"
	TypeItem         = "item"
	TypeProgress     = "progress"
	TypeSummary      = "summary"
	TypeNotification = "notification"
)

const (
	broadcastBuffer = 256

	// defaultSummaryWait bounds how long Summary waits for room in the
	// broadcast buffer. A run emits one summary, so it is not dropped on the
	// first full buffer like item and progress messages.
	defaultSummaryWait = 2 * time.Second
)

// Message is the envelope of everything sent to clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	now         func() time.Time
	summaryWait time.Duration

	// Owned by Run.
	clients map[*client]bool

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	clientCount atomic.Int64
	dropped     atomic.Int64
}

var (
	_ engine.Sink     = (*Hub)(nil)
	_ engine.Notifier = (*Hub)(nil)
)

// New creates a Hub. Call Run to start delivering messages.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		now:         time.Now,
		summaryWait: defaultSummaryWait,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run delivers messages until ctx is cancelled. All clients are
// disconnected on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			h.logger.Info("hub shutting down")
			return nil

		case c := <-h.register:
			h.clients[c] = true
			h.clientCount.Store(int64(len(h.clients)))
			h.logger.Info("client registered", "client_id", c.id, "total_clients", len(h.clients))

			hello, err := h.encode(TypeConnection, map[string]string{"client_id": c.id})
			if err == nil {
				h.deliver(c, hello)
			}

		case c := <-h.unregister:
			if h.clients[c] {
				h.remove(c)
				h.logger.Info("client unregistered", "client_id", c.id, "total_clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// deliver queues msg for c, disconnecting c if its buffer is full.
func (h *Hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("client too slow, disconnecting", "client_id", c.id)
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.clientCount.Store(int64(len(h.clients)))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// Dropped returns how many messages were discarded because the hub was backed up.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// ItemResult implements engine.Sink.
func (h *Hub) ItemResult(r engine.ItemResult) {
	h.publish(TypeItem, r)
}

// Progress implements engine.Sink.
func (h *Hub) Progress(p engine.Progress) {
	h.publish(TypeProgress, p)
}

// Summary implements engine.Sink.
func (h *Hub) Summary(s engine.Summary) {
	h.publishWait(TypeSummary, struct {
		engine.Summary
		Description string `json:"description"`
	}{s, engine.Describe(s)}, h.summaryWait)
}

// Notify implements engine.Notifier.
func (h *Hub) Notify(n engine.Notification) {
	h.publish(TypeNotification, n)
}

// publish queues a message for every client without blocking.
func (h *Hub) publish(msgType string, data any) {
	h.publishWait(msgType, data, 0)
}

// publishWait queues a message, waiting up to wait for buffer space. The
// message is dropped when the wait expires or the hub has stopped.
func (h *Hub) publishWait(msgType string, data any, wait time.Duration) {
	msg, err := h.encode(msgType, data)
	if err != nil {
		h.logger.Error("failed to encode message", "type", msgType, "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
		return
	default:
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case h.broadcast <- msg:
			return
		case <-h.done:
		case <-timer.C:
		}
	}

	h.dropped.Add(1)
	level := slog.LevelDebug
	if wait > 0 {
		level = slog.LevelWarn
	}
	h.logger.Log(context.Background(), level, "broadcast buffer full, dropping message", "type", msgType)
}

func (h *Hub) encode(msgType string, data any) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: h.now(),
	})
}
