package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/neongrid/engine"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()

	server := httptest.NewServer(h)
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return h, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The connection message confirms registration.
	msg := read(t, conn)
	require.Equal(t, TypeConnection, msg.Type)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_BroadcastsEngineEvents(t *testing.T) {
	h, server := startHub(t)
	a := dial(t, server)
	b := dial(t, server)
	assert.Equal(t, 2, h.ClientCount())

	h.ItemResult(engine.ItemResult{RunID: "r1", Kind: engine.KindFollow, Item: "alice", Label: "followed @alice", Outcome: engine.OutcomeSuccess})
	h.Progress(engine.Progress{RunID: "r1", Kind: engine.KindFollow, Processed: 1, Limit: 2})
	h.Summary(engine.Summary{RunID: "r1", Kind: engine.KindFollow, Processed: 1, Succeeded: 1, Limit: 2, Cancelled: true})
	h.Notify(engine.Notification{Level: engine.LevelWarning, Message: "All operations stopped"})

	for _, conn := range []*websocket.Conn{a, b} {
		item := read(t, conn)
		assert.Equal(t, TypeItem, item.Type)
		assert.JSONEq(t, `{"run_id":"r1","kind":"follow","index":0,"item":"alice","label":"followed @alice","outcome":"success"}`, string(item.Data))

		progress := read(t, conn)
		assert.Equal(t, TypeProgress, progress.Type)
		assert.Contains(t, string(progress.Data), `"processed":1`)

		summary := read(t, conn)
		assert.Equal(t, TypeSummary, summary.Type)
		assert.Contains(t, string(summary.Data), `"description":"follow bot stopped: 1 followed, 0 failed"`)
		assert.Contains(t, string(summary.Data), `"cancelled":true`)

		note := read(t, conn)
		assert.Equal(t, TypeNotification, note.Type)
		assert.Contains(t, string(note.Data), `"level":"warning"`)
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	h, server := startHub(t)
	conn := dial(t, server)
	require.Equal(t, 1, h.ClientCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_DropsSlowClients(t *testing.T) {
	h, _ := startHub(t)

	slow := &client{hub: h, send: make(chan []byte, 1), id: "slow", logger: h.logger}
	h.register <- slow
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	// The connection message filled the buffer; the next message overflows it.
	h.Notify(engine.Notification{Level: engine.LevelInfo, Message: "hello"})

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open, "send channel is closed when the client is dropped")
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := New(logger) // not running

	for range broadcastBuffer + 10 {
		h.Progress(engine.Progress{Kind: engine.KindLike})
	}
	assert.Equal(t, int64(10), h.Dropped())
}

func TestHub_SummaryWaitsForBufferSpace(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := New(logger) // not running
	h.summaryWait = 5 * time.Second

	for range broadcastBuffer {
		h.Progress(engine.Progress{Kind: engine.KindLike})
	}
	require.Zero(t, h.Dropped())

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-h.broadcast
	}()
	h.Summary(engine.Summary{Kind: engine.KindLike, Processed: 2, Succeeded: 2})
	assert.Zero(t, h.Dropped(), "summary is queued once space frees up")

	var last []byte
	for range broadcastBuffer {
		last = <-h.broadcast
	}
	var msg received
	require.NoError(t, json.Unmarshal(last, &msg))
	assert.Equal(t, TypeSummary, msg.Type)
	assert.Contains(t, string(msg.Data), "like bot completed")
}

func TestHub_SummaryDroppedAfterWait(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := New(logger) // not running
	h.summaryWait = 10 * time.Millisecond

	for range broadcastBuffer {
		h.Progress(engine.Progress{Kind: engine.KindLike})
	}

	start := time.Now()
	h.Summary(engine.Summary{Kind: engine.KindLike})
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Equal(t, int64(1), h.Dropped())
}

func TestHub_ServeAfterShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := New(logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Run(ctx))

	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "connection is closed when the hub is not running")
	assert.Equal(t, 0, h.ClientCount())
}
