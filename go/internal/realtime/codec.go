package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// ErrUnknownEvent is returned by DecodeEvent for event names it does not handle
var ErrUnknownEvent = errors.New("unknown event")

// timestampLayouts are tried in order. Zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type chatFrame struct {
	ID             int    `json:"id"`
	User           string `json:"user"`
	MessageContent string `json:"message_content"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

type statusFrame struct {
	Message string `json:"message"`
}

type memberUpdateFrame struct {
	Count   *int            `json:"count"`
	Members []models.Member `json:"members"`
}

// Encode wraps payload in an envelope named name
func Encode(name EventName, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

// DecodeEvent parses one inbound frame into its typed event
func DecodeEvent(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Event {
	case EventChat:
		var f chatFrame
		if err := unmarshalData(env, &f); err != nil {
			return nil, err
		}
		ts, err := ParseTimestamp(f.Timestamp)
		if err != nil {
			return nil, err
		}
		content := f.MessageContent
		if content == "" {
			content = f.Content
		}
		return ChatReceived{Message: models.ChatMessage{
			ID:        f.ID,
			User:      f.User,
			Content:   content,
			Timestamp: ts,
		}}, nil

	case EventStatus:
		var f statusFrame
		if err := unmarshalData(env, &f); err != nil {
			return nil, err
		}
		return StatusReceived{Message: f.Message}, nil

	case EventMemberUpdate:
		var f memberUpdateFrame
		if err := unmarshalData(env, &f); err != nil {
			return nil, err
		}
		members := f.Members
		if members == nil {
			members = []models.Member{}
		}
		count := len(members)
		if f.Count != nil {
			count = *f.Count
		}
		return MembersUpdated{Count: count, Members: members}, nil

	case EventError:
		var f statusFrame
		if err := unmarshalData(env, &f); err != nil {
			return nil, err
		}
		return ServerError{Message: f.Message}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func unmarshalData(env Envelope, v interface{}) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", env.Event, err)
	}
	return nil
}

// ParseTimestamp reads a server-issued ISO-8601 timestamp. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
