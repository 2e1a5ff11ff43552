package realtime

import (
	"context"
	"encoding/json"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// EventName is the name carried in every frame on the duplex channel
type EventName string

const (
	// Outbound
	EventJoin  EventName = "join"
	EventLeave EventName = "leave"

	// Both directions
	EventChat EventName = "chat"

	// Inbound
	EventStatus       EventName = "status"
	EventMemberUpdate EventName = "member_update"
	EventError        EventName = "error"
)

// Envelope is the JSON frame exchanged over the WebSocket
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomPayload is the body of join and leave. The room ID travels as a decimal string.
type RoomPayload struct {
	RoomID string `json:"room_id"`
}

// ChatPayload is the body of an outbound chat event
type ChatPayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

// Emitter sends a named event over the duplex connection
type Emitter interface {
	Emit(ctx context.Context, name EventName, payload interface{}) error
}

// Event is the tagged union of everything the connection manager delivers.
// Lifecycle events are produced locally, the rest are decoded from frames.
type Event interface{ isEvent() }

// Connected is delivered once, on the first successful dial
type Connected struct {
	ConnectionID string
}

// Disconnected is delivered whenever an established connection drops
type Disconnected struct {
	Err error
}

// Reconnected is delivered when a dropped connection is re-established.
// Attempt counts dial attempts since the drop, including the successful one.
type Reconnected struct {
	ConnectionID string
	Attempt      int
}

// ConnectError is delivered for every failed dial
type ConnectError struct {
	Err     error
	Attempt int
}

// ChatReceived is a chat broadcast from the room
type ChatReceived struct {
	Message models.ChatMessage
}

// StatusReceived is a join/leave/system notice for the room
type StatusReceived struct {
	Message string
}

// MembersUpdated is a complete roster snapshot
type MembersUpdated struct {
	Count   int
	Members []models.Member
}

// ServerError is an error frame sent by the server
type ServerError struct {
	Message string
}

func (Connected) isEvent()      {}
func (Disconnected) isEvent()   {}
func (Reconnected) isEvent()    {}
func (ConnectError) isEvent()   {}
func (ChatReceived) isEvent()   {}
func (StatusReceived) isEvent() {}
func (MembersUpdated) isEvent() {}
func (ServerError) isEvent()    {}
