package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

var (
	// ErrMissingRoomID means the page has no room identifier where one is expected
	ErrMissingRoomID = errors.New("missing room id")
	// ErrInvalidRoomID means the room identifier is not a positive integer
	ErrInvalidRoomID = errors.New("invalid room id")
)

// ParseRoomID validates the room identifier taken from page context
func ParseRoomID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrMissingRoomID
	}
	// digits only; Atoi would take a leading sign
	if raw[0] < '0' || raw[0] > '9' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomID, raw)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomID, raw)
	}
	return id, nil
}

// Binder keeps the connection joined to one room channel for the lifetime of a page.
// The room ID is fixed at construction.
type Binder struct {
	emitter realtime.Emitter
	roomID  int

	mu     sync.Mutex
	joins  int
	closed bool
}

// Bind resolves the room identifier and returns a binder for it. Resolution
// failures are logged locally and nothing is sent.
func Bind(raw string, emitter realtime.Emitter) (*Binder, error) {
	id, err := ParseRoomID(raw)
	if err != nil {
		log.Error().Err(err).Str("raw_room_id", raw).Msg("room channel not bound")
		return nil, err
	}
	return NewBinder(emitter, id), nil
}

// NewBinder creates a binder for an already validated room ID
func NewBinder(emitter realtime.Emitter, roomID int) *Binder {
	return &Binder{emitter: emitter, roomID: roomID}
}

// RoomID returns the bound room
func (b *Binder) RoomID() int {
	return b.roomID
}

// Payload returns the join/leave body for the bound room
func (b *Binder) Payload() realtime.RoomPayload {
	return realtime.RoomPayload{RoomID: strconv.Itoa(b.roomID)}
}

// Joins returns how many join events have been sent
func (b *Binder) Joins() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.joins
}

// HandleEvent joins the room on the first connect and again on every reconnect.
// It reports whether a join was sent.
func (b *Binder) HandleEvent(ctx context.Context, ev realtime.Event) (bool, error) {
	switch ev := ev.(type) {
	case realtime.Connected:
		return true, b.Join(ctx)
	case realtime.Reconnected:
		log.Info().
			Int("room_id", b.roomID).
			Int("attempt", ev.Attempt).
			Msg("rejoining room after reconnect")
		return true, b.Join(ctx)
	default:
		return false, nil
	}
}

// Join emits join for the bound room. A closed binder sends nothing.
func (b *Binder) Join(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.joins++
	b.mu.Unlock()

	if err := b.emitter.Emit(ctx, realtime.EventJoin, b.Payload()); err != nil {
		return fmt.Errorf("join room %d: %w", b.roomID, err)
	}
	log.Debug().Int("room_id", b.roomID).Msg("join emitted")
	return nil
}

// Leave emits leave once and stops any further rejoining. Delivery is best effort.
func (b *Binder) Leave(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.emitter.Emit(ctx, realtime.EventLeave, b.Payload()); err != nil {
		log.Debug().Err(err).Int("room_id", b.roomID).Msg("leave not delivered")
		return fmt.Errorf("leave room %d: %w", b.roomID, err)
	}
	return nil
}
