package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wordgrid/server/internal/config"
	"github.com/wordgrid/server/internal/performance"
	"github.com/wordgrid/server/internal/streaming"
	"github.com/wordgrid/server/internal/world"
)

const (
	// Default ping interval (30 seconds)
	defaultPingInterval = 30 * time.Second

	// Pong wait timeout (60 seconds)
	pongWait = 60 * time.Second

	// Write timeout (10 seconds)
	writeTimeout = 10 * time.Second

	// Largest inbound frame accepted from a client
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "wordgrid_active_sessions",
	Help: "Number of connected WebSocket sessions",
})

// WebSocketConnection represents one connected session
type WebSocketConnection struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	hub       *WebSocketHub
	limiter   *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// queue hands msg to the write pump without blocking. It reports false when
// the buffer is full or the session is already closed.
func (c *WebSocketConnection) queue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WebSocketConnection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WebSocketHub manages all active WebSocket connections
type WebSocketHub struct {
	connections map[*WebSocketConnection]bool
	broadcast   chan []byte
	register    chan *WebSocketConnection
	unregister  chan *WebSocketConnection
	done        chan struct{}
	mu          sync.RWMutex
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WebSocketError represents an error message sent over WebSocket
type WebSocketError struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error codes carried in WebSocketError.Code
const (
	CodeInvalidMessageFormat = "InvalidMessageFormat"
	CodeUnknownMessageType   = "UnknownMessageType"
	CodeValidationError      = "ValidationError"
	CodeRegionTooLarge       = "RegionTooLarge"
	CodeRateLimited          = "RateLimited"
	CodeSubscriptionNotFound = "SubscriptionNotFound"
	CodeInternalError        = "InternalError"
)

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		connections: make(map[*WebSocketConnection]bool),
		broadcast:   make(chan []byte, sendBufferSize),
		register:    make(chan *WebSocketConnection),
		unregister:  make(chan *WebSocketConnection),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled, after
// closing every remaining connection.
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.connections {
				delete(h.connections, conn)
				conn.closeSend()
			}
			h.mu.Unlock()
			activeSessions.Set(0)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()
			activeSessions.Inc()
			log.Info().Str("session_id", conn.sessionID).Msg("WebSocket session registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.closeSend()
				activeSessions.Dec()
			}
			h.mu.Unlock()
			log.Info().Str("session_id", conn.sessionID).Msg("WebSocket session unregistered")

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.connections {
				if !conn.queue(message) {
					log.Warn().Str("session_id", conn.sessionID).Msg("dropping slow WebSocket session")
					delete(h.connections, conn)
					conn.closeSend()
					activeSessions.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Count returns the number of registered sessions
func (h *WebSocketHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// PublishWordFound broadcasts a word_found message to every session.
func (h *WebSocketHub) PublishWordFound(event world.FoundWord) error {
	message, err := encodeMessage("word_found", "", event)
	if err != nil {
		return fmt.Errorf("failed to encode word_found broadcast: %w", err)
	}
	h.Broadcast(message)
	return nil
}

// WebSocketHandlers handles WebSocket connections
type WebSocketHandlers struct {
	hub      *WebSocketHub
	world    *world.World
	streams  *streaming.Manager
	profiler *performance.Profiler
	validate *validator.Validate
	upgrader websocket.Upgrader
	msgLimit rate.Limit
	msgBurst int
}

// NewWebSocketHandlers creates a new WebSocket handlers instance
func NewWebSocketHandlers(w *world.World, hub *WebSocketHub, streams *streaming.Manager, cfg *config.Config, profiler *performance.Profiler) *WebSocketHandlers {
	limit := rate.Inf
	if cfg.RateLimit.WSPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimit.WSPerSecond)
	}
	burst := cfg.RateLimit.WSBurst
	if burst < 1 {
		burst = 1
	}

	return &WebSocketHandlers{
		hub:      hub,
		world:    w,
		streams:  streams,
		profiler: profiler,
		validate: validator.New(),
		msgLimit: limit,
		msgBurst: burst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), cfg.Server.AllowedOrigins)
			},
		},
	}
}

// GetHub returns the hub sessions are registered with
func (h *WebSocketHandlers) GetHub() *WebSocketHub {
	return h.hub
}

// HandleWebSocket handles WebSocket connection upgrades
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	wsConn := &WebSocketConnection{
		conn:      conn,
		sessionID: uuid.NewString(),
		send:      make(chan []byte, sendBufferSize),
		hub:       h.hub,
		limiter:   rate.NewLimiter(h.msgLimit, h.msgBurst),
	}

	// Registered before the snapshot so no word found in between is lost.
	select {
	case h.hub.register <- wsConn:
	case <-h.hub.done:
		_ = conn.Close()
		return
	}

	h.sendStats(wsConn, "")
	h.sendFoundWords(wsConn, "")

	go wsConn.writePump()
	go wsConn.readPump(h)
}

// readPump handles incoming messages from the WebSocket connection
func (c *WebSocketConnection) readPump(handlers *WebSocketHandlers) {
	defer func() {
		if handlers.streams != nil {
			handlers.streams.RemoveSession(c.sessionID)
		}
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		if err := c.conn.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close connection")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session_id", c.sessionID).Msg("WebSocket error")
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.sendError("", "Invalid message format", CodeInvalidMessageFormat)
			continue
		}

		if !c.limiter.Allow() {
			c.sendError(msg.ID, "Rate limit exceeded", CodeRateLimited)
			continue
		}

		handlers.dispatch(c, &msg)
	}
}

// dispatch handles one message. A panicking handler fails only that request;
// the session and the hub keep running.
func (h *WebSocketHandlers) dispatch(c *WebSocketConnection, msg *WebSocketMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("session_id", c.sessionID).
				Str("type", msg.Type).
				Bytes("stack", debug.Stack()).
				Msg("WebSocket handler panicked")
			c.sendError(msg.ID, "Internal error", CodeInternalError)
		}
	}()
	h.handleMessage(c, msg)
}

// writePump handles outgoing messages to the WebSocket connection
func (c *WebSocketConnection) writePump() {
	ticker := time.NewTicker(defaultPingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close connection")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				_ = w.Close()
				return
			}

			// Queued messages share the frame, one JSON document per line
			n := len(c.send)
			for i := 0; i < n; i++ {
				if _, err := w.Write([]byte{'\n'}); err != nil {
					_ = w.Close()
					return
				}
				if _, err := w.Write(<-c.send); err != nil {
					_ = w.Close()
					return
				}
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// encodeMessage builds a WebSocketMessage with payload marshalled into Data
func encodeMessage(msgType, id string, payload any) ([]byte, error) {
	msg := WebSocketMessage{Type: msgType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// sendMessage queues a typed response for this session only
func (c *WebSocketConnection) sendMessage(msgType, id string, payload any) {
	messageBytes, err := encodeMessage(msgType, id, payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("failed to marshal message")
		c.sendError(id, "Failed to prepare response", CodeInternalError)
		return
	}
	if !c.queue(messageBytes) {
		log.Warn().Str("session_id", c.sessionID).Str("type", msgType).Msg("failed to send message: channel full")
	}
}

// sendError sends an error message to the client
func (c *WebSocketConnection) sendError(id, errorMsg, code string) {
	messageBytes, err := json.Marshal(WebSocketError{
		Type:    "error",
		ID:      id,
		Error:   errorMsg,
		Message: errorMsg,
		Code:    code,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal error message")
		return
	}
	if !c.queue(messageBytes) {
		log.Warn().Str("session_id", c.sessionID).Msg("failed to send error message: channel full")
	}
}

// handleMessage routes messages to appropriate handlers
func (h *WebSocketHandlers) handleMessage(conn *WebSocketConnection, msg *WebSocketMessage) {
	switch msg.Type {
	case "ping":
		conn.sendMessage("pong", msg.ID, nil)
	case "get_chunk":
		h.handleGetChunk(conn, msg)
	case "get_region":
		h.handleGetRegion(conn, msg)
	case "validate":
		h.handleValidate(conn, msg)
	case "get_stats":
		h.sendStats(conn, msg.ID)
	case "get_found_words":
		h.sendFoundWords(conn, msg.ID)
	case "subscribe_viewport":
		h.handleSubscribeViewport(conn, msg)
	case "update_viewport":
		h.handleUpdateViewport(conn, msg)
	default:
		conn.sendError(msg.ID, "Unknown message type", CodeUnknownMessageType)
	}
}
