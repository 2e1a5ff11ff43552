package farmserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

// Errors sent back to the client in an error frame
var (
	errNotRoomMember = errors.New("You are not a member of this room!")
	errNotJoined     = errors.New("Join the room before chatting!")
)

// ConnectionManager manages the duplex connections and the room channels they joined
type ConnectionManager struct {
	// Connection pools organized by room ID
	roomConnections map[int]map[*Connection]bool
	connections     map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	store    *Store

	broadcastCh chan BroadcastMessage
}

// Connection is one client's duplex channel
type Connection struct {
	ID      string
	User    string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	// rooms this connection joined, guarded by Manager.mu
	rooms map[int]bool
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is an event for every connection in a room, or in every room when All is set
type BroadcastMessage struct {
	RoomID  int
	All     bool
	Event   realtime.EventName
	Payload interface{}
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
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, store *Store) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[int]map[*Connection]bool),
		connections:     make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		store:       store,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcasts until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a duplex connection for user
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, user string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		User:        user,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		rooms:       make(map[int]bool),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user", user).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn] = true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.unregisterLocked(conn)
}

func (cm *ConnectionManager) unregisterLocked(conn *Connection) {
	if !cm.connections[conn] {
		return
	}
	delete(cm.connections, conn)
	for roomID := range conn.rooms {
		cm.unsubscribeLocked(conn, roomID)
	}
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("user", conn.User).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for conn := range cm.connections {
		cm.unregisterLocked(conn)
	}
}

func (cm *ConnectionManager) subscribe(conn *Connection, roomID int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if !cm.connections[conn] {
		return
	}
	if cm.roomConnections[roomID] == nil {
		cm.roomConnections[roomID] = make(map[*Connection]bool)
	}
	cm.roomConnections[roomID][conn] = true
	conn.rooms[roomID] = true
}

func (cm *ConnectionManager) unsubscribe(conn *Connection, roomID int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.unsubscribeLocked(conn, roomID)
}

func (cm *ConnectionManager) unsubscribeLocked(conn *Connection, roomID int) {
	delete(conn.rooms, roomID)
	if connections, ok := cm.roomConnections[roomID]; ok {
		delete(connections, conn)
		// Clean up empty room pools
		if len(connections) == 0 {
			delete(cm.roomConnections, roomID)
		}
	}
}

func (cm *ConnectionManager) subscribed(conn *Connection, roomID int) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return conn.rooms[roomID]
}

// BroadcastToRoom sends an event to every connection that joined roomID
func (cm *ConnectionManager) BroadcastToRoom(roomID int, event realtime.EventName, payload interface{}) {
	cm.enqueue(BroadcastMessage{RoomID: roomID, Event: event, Payload: payload})
}

// BroadcastToAll sends an event to every connection in any room
func (cm *ConnectionManager) BroadcastToAll(event realtime.EventName, payload interface{}) {
	cm.enqueue(BroadcastMessage{All: true, Event: event, Payload: payload})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().
			Int("room_id", message.RoomID).
			Str("event", string(message.Event)).
			Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	// Marshal the event once
	frame, err := realtime.Encode(message.Event, message.Payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	cm.mu.RLock()
	var slow []*Connection
	delivered := 0
	for conn := range cm.connections {
		if message.All {
			if len(conn.rooms) == 0 {
				continue
			}
		} else if !conn.rooms[message.RoomID] {
			continue
		}
		select {
		case conn.Send <- frame:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		// Connection is slow/dead, close it
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user", conn.User).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event", string(message.Event)).
		Int("room_id", message.RoomID).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// sendTo queues an event for one connection only
func (cm *ConnectionManager) sendTo(conn *Connection, event realtime.EventName, payload interface{}) {
	frame, err := realtime.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.connections[conn] {
		return
	}
	select {
	case conn.Send <- frame:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, dropping event")
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int)
	for roomID, connections := range cm.roomConnections {
		roomCounts[strconv.Itoa(roomID)] = len(connections)
	}

	return map[string]interface{}{
		"total_connections": len(cm.connections),
		"active_rooms":      len(cm.roomConnections),
		"room_connections":  roomCounts,
	}
}

// writePump drains Send onto the socket and keeps it alive with pings.
// A closed Send channel means the manager dropped the connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("write failed, dropping connection")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump applies client frames in order until the socket fails or goes quiet
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("connection closed unexpectedly")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// roomRef is a room ID sent either as a decimal string or as a number
type roomRef int

func (r *roomRef) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*r = roomRef(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("room_id %q is not a number", v)
		}
		*r = roomRef(n)
	default:
		return fmt.Errorf("room_id has unexpected type %T", raw)
	}
	if *r <= 0 {
		return errors.New("room_id must be positive")
	}
	return nil
}

type roomFrame struct {
	RoomID roomRef `json:"room_id"`
}

type chatFrame struct {
	RoomID  roomRef `json:"room_id"`
	Message string  `json:"message"`
}

type statusFrame struct {
	Message string `json:"message"`
}

type memberUpdateFrame struct {
	Count   int             `json:"count"`
	Members []models.Member `json:"members"`
}

// handleClientMessage applies one join, leave or chat frame
func (c *Connection) handleClientMessage(message []byte) {
	var env realtime.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("dropping malformed frame")
		return
	}

	var err error
	switch env.Event {
	case realtime.EventJoin:
		err = c.handleJoin(env.Data)
	case realtime.EventLeave:
		err = c.handleLeave(env.Data)
	case realtime.EventChat:
		err = c.handleChat(env.Data)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("event", string(env.Event)).
			Msg("ignoring client event")
		return
	}

	if err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Str("event", string(env.Event)).Msg("client event rejected")
		c.Manager.sendTo(c, realtime.EventError, statusFrame{Message: err.Error()})
	}
}

func (c *Connection) handleJoin(data json.RawMessage) error {
	var f roomFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid join: %w", err)
	}
	roomID := int(f.RoomID)
	if c.Manager.store.RoomOf(c.User) != roomID {
		return errNotRoomMember
	}

	c.Manager.subscribe(c, roomID)
	c.Manager.BroadcastToRoom(roomID, realtime.EventStatus, statusFrame{Message: fmt.Sprintf("%s joined the room.", c.User)})
	c.Manager.broadcastMembers(roomID)
	return nil
}

func (c *Connection) handleLeave(data json.RawMessage) error {
	var f roomFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid leave: %w", err)
	}
	roomID := int(f.RoomID)

	c.Manager.unsubscribe(c, roomID)
	c.Manager.BroadcastToRoom(roomID, realtime.EventStatus, statusFrame{Message: fmt.Sprintf("%s left the room.", c.User)})
	c.Manager.broadcastMembers(roomID)
	return nil
}

func (c *Connection) handleChat(data json.RawMessage) error {
	var f chatFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid chat: %w", err)
	}
	roomID := int(f.RoomID)
	content := strings.TrimSpace(f.Message)
	if content == "" {
		return nil
	}
	if !c.Manager.subscribed(c, roomID) {
		return errNotJoined
	}

	c.Manager.BroadcastToRoom(roomID, realtime.EventChat, c.Manager.store.NewChatMessage(c.User, content))
	return nil
}

// broadcastMembers sends the full roster to the room. Closed rooms get nothing.
func (cm *ConnectionManager) broadcastMembers(roomID int) {
	members, ok := cm.store.Members(roomID)
	if !ok {
		return
	}
	cm.BroadcastToRoom(roomID, realtime.EventMemberUpdate, memberUpdateFrame{Count: len(members), Members: members})
}
