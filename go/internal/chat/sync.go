package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

// Input is the chat composer state
type Input struct {
	Text    string
	Focused bool
}

// Sync sends chat into the room channel and folds inbound chat, status and
// roster events into its log and roster. It is owned by a single goroutine.
type Sync struct {
	emitter realtime.Emitter
	roomID  int

	log    *Log
	roster *Roster
	input  Input
}

// NewSync creates chat sync for roomID keeping logLimit entries
func NewSync(emitter realtime.Emitter, roomID int, logLimit int) *Sync {
	return &Sync{
		emitter: emitter,
		roomID:  roomID,
		log:     NewLog(logLimit),
		roster:  &Roster{},
	}
}

func (s *Sync) Log() *Log {
	return s.log
}

func (s *Sync) Roster() *Roster {
	return s.roster
}

func (s *Sync) Input() Input {
	return s.input
}

// SetInput updates the composer text and focuses it
func (s *Sync) SetInput(text string) {
	s.input.Text = text
	s.input.Focused = true
}

// Blur drops composer focus
func (s *Sync) Blur() {
	s.input.Focused = false
}

// Send emits the composer text. Whitespace-only input sends nothing and leaves
// the composer untouched. Otherwise the composer is cleared without waiting for
// the server; the message shows up only when it is broadcast back.
func (s *Sync) Send(ctx context.Context) (bool, error) {
	message := strings.TrimSpace(s.input.Text)
	if message == "" {
		return false, nil
	}
	s.input.Text = ""

	payload := realtime.ChatPayload{RoomID: strconv.Itoa(s.roomID), Message: message}
	if err := s.emitter.Emit(ctx, realtime.EventChat, payload); err != nil {
		return true, fmt.Errorf("send chat: %w", err)
	}
	return true, nil
}

// SendMessage sets the composer to text and sends it
func (s *Sync) SendMessage(ctx context.Context, text string) (bool, error) {
	s.SetInput(text)
	return s.Send(ctx)
}

// HandleEvent applies a chat, status or member_update event. It reports whether
// the event was consumed.
func (s *Sync) HandleEvent(ev realtime.Event) bool {
	switch ev := ev.(type) {
	case realtime.ChatReceived:
		s.log.AppendChat(ev.Message)
	case realtime.StatusReceived:
		s.log.AppendStatus(ev.Message)
	case realtime.MembersUpdated:
		s.roster.Replace(ev.Count, ev.Members)
		log.Debug().
			Int("room_id", s.roomID).
			Int("count", ev.Count).
			Msg("roster replaced")
	default:
		return false
	}
	return true
}
