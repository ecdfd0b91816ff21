// Package transport exposes the session service over WebSocket.
//
// Clients exchange JSON frames of the form {"event": ..., "data": ...}. The
// hub assigns each connection a unique transport address, hands decoded
// frames to the service, and implements the service's Emitter so replies and
// broadcasts route back through the same connections.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cryptexq/cryptexq-go/pkg/metrics"
	"github.com/cryptexq/cryptexq-go/pkg/session"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 256 * 1024
	sendQueueSize  = 64
)

// Frame is the wire envelope for every message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	addr string
	conn *websocket.Conn

	// mu guards closed and the right to send on send. Emits race the
	// disconnect path, so the channel may only be closed or written while
	// holding mu with closed checked.
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func (c *client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// enqueue reports whether the frame was queued. It fails without blocking
// when the connection is closed or its queue is full.
func (c *client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Hub accepts WebSocket connections and bridges them to the session service.
type Hub struct {
	service *session.Service
	log     *metrics.Logger
	limiter *mapLimiter

	mu      sync.RWMutex
	clients map[string]*client

	connSeq uint64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithRateLimit bounds how many events per second a single connection may
// submit. Zero values disable limiting.
func WithRateLimit(eventsPerSecond float64, burst int) HubOption {
	return func(h *Hub) { h.limiter = newMapLimiter(eventsPerSecond, burst) }
}

// WithHubLogger sets the hub's logger.
func WithHubLogger(log *metrics.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

// NewHub creates a Hub serving the given service.
func NewHub(svc *session.Service, opts ...HubOption) *Hub {
	h := &Hub{
		service: svc,
		log:     metrics.NewLogger(),
		clients: make(map[string]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the HTTP handler that upgrades to WebSocket.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.handleUpgrade)
}

// ListenAndServe serves the hub on addr until ctx is done. The WebSocket
// endpoint is /ws; /healthz answers liveness probes.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"clients": h.ClientCount(),
		})
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	h.log.Info("transport listening", metrics.Fields{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("transport server: %w", err)
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit implements session.Emitter. The Broadcast target reaches every
// connection; any other target is a transport address. Delivery is
// best-effort: a full send queue drops the frame for that connection rather
// than blocking the service.
func (h *Hub) Emit(event string, payload interface{}, target string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	if target == session.Broadcast {
		h.mu.RLock()
		for _, c := range h.clients {
			h.enqueue(c, frame)
		}
		h.mu.RUnlock()
		return nil
	}

	h.mu.RLock()
	c, ok := h.clients[target]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("emit %s: no connection for %s", event, target)
	}
	h.enqueue(c, frame)
	return nil
}

func (h *Hub) enqueue(c *client, frame []byte) {
	if !c.enqueue(frame) {
		h.log.Warn("dropping frame for closed or backlogged connection", metrics.Fields{"addr": c.addr})
	}
}

func (h *Hub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade failed", metrics.Fields{"err": err.Error()})
		return
	}

	c := &client{
		addr: fmt.Sprintf("conn-%d", atomic.AddUint64(&h.connSeq, 1)),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	h.clients[c.addr] = c
	h.mu.Unlock()
	h.log.Debug("client connected", metrics.Fields{"addr": c.addr})

	// The request context dies when this handler returns; the pumps own the
	// hijacked connection and need a context that outlives it.
	go h.writePump(c)
	go h.readPump(context.Background(), c)
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.dropClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("read error", metrics.Fields{"addr": c.addr, "err": err.Error()})
			}
			return
		}
		if frame.Event == "" {
			continue
		}
		if !h.limiter.allow(c.addr, time.Now()) {
			h.log.Warn("rate limit exceeded", metrics.Fields{"addr": c.addr, "event": frame.Event})
			continue
		}
		h.service.Dispatch(ctx, h, c.addr, frame.Event, frame.Data)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dropClient tears down a connection: presence entries bound to its address
// are removed, its pair state cleared, and the roster rebroadcast.
func (h *Hub) dropClient(c *client) {
	h.mu.Lock()
	_, present := h.clients[c.addr]
	delete(h.clients, c.addr)
	h.mu.Unlock()
	if !present {
		return
	}

	c.close()
	c.conn.Close()
	h.limiter.forget(c.addr)
	h.service.HandleDisconnect(h, c.addr)
	h.log.Debug("client disconnected", metrics.Fields{"addr": c.addr})
}
