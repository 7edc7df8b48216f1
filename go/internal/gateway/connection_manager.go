package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/events"
)

// MessageHandler processes frames read from connections.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client Client, raw []byte)
	Disconnect(ctx context.Context, connectionID string)
}

// Client is a connection as seen by the dispatcher.
type Client interface {
	ID() string
	// Send queues ev for this connection only.
	Send(ev *events.Event) bool
}

// ConnectionManager manages WebSocket connections grouped by room.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	rooms       map[string]map[string]*Connection

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh chan *events.Event
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	id      string
	Conn    *websocket.Conn
	send    chan []byte
	manager *ConnectionManager

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin:     AllowOrigins([]string{"*"}),
	}
}

// AllowOrigins returns an origin check accepting the listed origins, or
// every origin when the list contains "*".
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan *events.Event, 1000),
	}
}

// SetHandler installs the handler for incoming frames. It must be called
// before the first upgrade.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start processes room broadcasts until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case ev := <-cm.broadcastCh:
			cm.handleBroadcast(ev)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket. The new
// connection belongs to no room until it joins one.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	c := &Connection{
		id:          uuid.NewString(),
		Conn:        conn,
		send:        make(chan []byte, cm.config.SendBufferSize),
		manager:     cm,
		cancel:      cancel,
		ConnectedAt: now,
		LastPing:    now,
	}

	cm.mu.Lock()
	cm.connections[c.id] = c
	cm.mu.Unlock()

	go c.writePump()
	go c.readPump(ctx)

	log.Debug().
		Str("connection_id", c.id).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
	return nil
}

// AssignRoom moves a connection into a room's broadcast group.
func (cm *ConnectionManager) AssignRoom(connectionID, roomCode string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	c, ok := cm.connections[connectionID]
	if !ok {
		return
	}
	cm.removeFromRoomsLocked(connectionID)
	members, ok := cm.rooms[roomCode]
	if !ok {
		members = make(map[string]*Connection)
		cm.rooms[roomCode] = members
	}
	members[connectionID] = c

	log.Debug().
		Str("connection_id", connectionID).
		Str("room_code", roomCode).
		Int("room_connections", len(members)).
		Msg("connection joined room")
}

// LeaveRoom removes a connection from its room's broadcast group but
// keeps the socket open.
func (cm *ConnectionManager) LeaveRoom(connectionID string) {
	cm.mu.Lock()
	cm.removeFromRoomsLocked(connectionID)
	cm.mu.Unlock()
}

// CloseRoom disconnects every connection of a purged room.
func (cm *ConnectionManager) CloseRoom(roomCode string) {
	cm.mu.RLock()
	var targets []*Connection
	for _, c := range cm.rooms[roomCode] {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		c.Conn.Close()
	}
	if len(targets) > 0 {
		log.Info().Str("room_code", roomCode).Int("connections", len(targets)).Msg("closed room connections")
	}
}

// BroadcastToRoom queues ev for every connection in its room.
func (cm *ConnectionManager) BroadcastToRoom(ev *events.Event) {
	select {
	case cm.broadcastCh <- ev:
	default:
		log.Warn().
			Str("room_code", ev.RoomCode).
			Str("event_type", string(ev.Type)).
			Msg("broadcast channel full, dropping event")
	}
}

func (cm *ConnectionManager) handleBroadcast(ev *events.Event) {
	cm.mu.RLock()
	members := cm.rooms[ev.RoomCode]
	targets := make([]*Connection, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}
	for _, c := range targets {
		if !c.enqueue(data) {
			log.Warn().
				Str("connection_id", c.id).
				Msg("connection send buffer full, closing connection")
			c.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(ev.Type)).
		Str("room_code", ev.RoomCode).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int, len(cm.rooms))
	for code, members := range cm.rooms {
		roomCounts[code] = len(members)
	}
	return map[string]interface{}{
		"total_connections": len(cm.connections),
		"active_rooms":      len(cm.rooms),
		"room_connections":  roomCounts,
	}
}

func (cm *ConnectionManager) unregister(c *Connection) {
	cm.mu.Lock()
	_, ok := cm.connections[c.id]
	delete(cm.connections, c.id)
	cm.removeFromRoomsLocked(c.id)
	cm.mu.Unlock()
	if !ok {
		return
	}

	c.mu.Lock()
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.cancel()

	if cm.handler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cm.handler.Disconnect(ctx, c.id)
		cancel()
	}
	log.Debug().Str("connection_id", c.id).Msg("connection unregistered")
}

func (cm *ConnectionManager) removeFromRoomsLocked(connectionID string) {
	for code, members := range cm.rooms {
		if _, ok := members[connectionID]; ok {
			delete(members, connectionID)
			if len(members) == 0 {
				delete(cm.rooms, code)
			}
		}
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()
	for _, c := range targets {
		c.Conn.Close()
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Send queues ev for this connection only.
func (c *Connection) Send(ev *events.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to marshal event")
		return false
	}
	return c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump hands each frame to the message handler in arrival order.
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		c.mu.Lock()
		c.LastPing = time.Now()
		c.mu.Unlock()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.id).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		if c.manager.handler != nil {
			c.manager.handler.HandleMessage(ctx, c, message)
		}
	}
}
