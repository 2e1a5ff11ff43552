package chat

import (
	"fmt"
	"time"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// EntryKind distinguishes chat cards from status cards in the log
type EntryKind int

const (
	EntryChat EntryKind = iota
	EntryStatus
)

// Entry is one card in the chat log
type Entry struct {
	Seq     int
	Kind    EntryKind
	Message models.ChatMessage
	Status  string
}

// DefaultLogLimit is the number of entries kept in the scroll buffer
const DefaultLogLimit = 200

// Log is the ordered scroll buffer of chat and status entries. Order is arrival
// order; timestamps are never used to reorder.
type Log struct {
	entries []Entry
	limit   int
	seq     int
}

// NewLog creates a log keeping at most limit entries. limit <= 0 keeps everything.
func NewLog(limit int) *Log {
	return &Log{limit: limit}
}

func (l *Log) AppendChat(msg models.ChatMessage) Entry {
	return l.append(Entry{Kind: EntryChat, Message: msg})
}

func (l *Log) AppendStatus(text string) Entry {
	return l.append(Entry{Kind: EntryStatus, Status: text})
}

func (l *Log) append(e Entry) Entry {
	l.seq++
	e.Seq = l.seq
	l.entries = append(l.entries, e)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-l.limit:]...)
	}
	return e
}

// Entries returns a copy of the visible entries, oldest first
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Last returns the newest entry, the one scrolled into view
func (l *Log) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Format renders an entry with its timestamp in loc
func (e Entry) Format(loc *time.Location) string {
	if e.Kind == EntryStatus {
		return "* " + e.Status
	}
	if e.Message.Timestamp.IsZero() {
		return fmt.Sprintf("%s: %s", e.Message.User, e.Message.Content)
	}
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("[%s] %s: %s", e.Message.Timestamp.In(loc).Format("15:04"), e.Message.User, e.Message.Content)
}
