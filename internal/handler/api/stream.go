package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	svcmetrics "github.com/seethefuture888888-creator/kangbo/internal/service/metrics"
	xlogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
	streamSendBuffer = 4
)

// StreamHub pushes each written snapshot to connected websocket clients.
type StreamHub struct {
	upgrader   websocket.Upgrader
	clients    map[*streamClient]bool
	broadcast  chan []byte
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	latest     []byte
	logger     *xlogger.Logger
}

type streamClient struct {
	hub  *StreamHub
	conn *websocket.Conn
	send chan []byte
}

// NewStreamHub creates a hub accepting upgrades from the given origins ("*" accepts any).
func NewStreamHub(logger *xlogger.Logger, allowOrigins []string) *StreamHub {
	h := &StreamHub{
		clients:    make(map[*streamClient]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     originChecker(allowOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run is the hub event loop. It returns when ctx is done or Stop is called.
func (h *StreamHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			latest := h.latest
			n := len(h.clients)
			h.mu.Unlock()
			if latest != nil {
				client.send <- latest
			}
			svcmetrics.StreamClients.Set(float64(n))
			h.logger.Debug("stream client connected", xlogger.Int("clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			svcmetrics.StreamClients.Set(float64(n))
			h.logger.Debug("stream client disconnected", xlogger.Int("clients", n))

		case data := <-h.broadcast:
			h.mu.Lock()
			h.latest = data
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *StreamHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	svcmetrics.StreamClients.Set(0)
}

// Stop ends the event loop and disconnects every client.
func (h *StreamHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *StreamHub) Name() string { return "websocket" }

// Publish queues the snapshot for broadcast. It never blocks the pipeline.
func (h *StreamHub) Publish(_ context.Context, snap *models.Snapshot) error {
	select {
	case h.broadcast <- snap.Raw:
	default:
		h.logger.Warn("stream broadcast queue full, dropping snapshot", xlogger.String("run_id", snap.RunID))
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and registers the client. The latest snapshot is sent first.
func (h *StreamHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", xlogger.Error(err))
		return nil
	}

	client := &streamClient{hub: h, conn: conn, send: make(chan []byte, streamSendBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// Seed sets the snapshot sent to clients before the first broadcast.
func (h *StreamHub) Seed(raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		h.latest = raw
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
