// Package notice holds transient, individually dismissible user notices that
// expire on their own after a fixed interval.
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a notice stays up unless dismissed
const DefaultTTL = 5 * time.Second

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notice struct {
	ID        string
	Kind      Kind
	Text      string
	CreatedAt time.Time
}

// Center keeps the visible notices. Safe for concurrent use; expiry runs on clock timers.
type Center struct {
	clock    clockwork.Clock
	ttl      time.Duration
	onChange func()

	mu      sync.Mutex
	notices []Notice
	timers  map[string]clockwork.Timer
}

// NewCenter creates a notice center. onChange, if set, is called after every
// change, including expiry, without any lock held.
func NewCenter(clock clockwork.Clock, ttl time.Duration, onChange func()) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		clock:    clock,
		ttl:      ttl,
		onChange: onChange,
		timers:   make(map[string]clockwork.Timer),
	}
}

func (c *Center) Info(text string) Notice    { return c.Show(KindInfo, text) }
func (c *Center) Success(text string) Notice { return c.Show(KindSuccess, text) }
func (c *Center) Error(text string) Notice   { return c.Show(KindError, text) }

// Show adds a notice and schedules its expiry
func (c *Center) Show(kind Kind, text string) Notice {
	n := Notice{
		ID:        uuid.New().String(),
		Kind:      kind,
		Text:      text,
		CreatedAt: c.clock.Now(),
	}

	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.timers[n.ID] = c.clock.AfterFunc(c.ttl, func() {
		if c.remove(n.ID) {
			log.Debug().Str("notice_id", n.ID).Msg("notice expired")
			c.changed()
		}
	})
	c.mu.Unlock()

	log.Debug().Str("kind", string(kind)).Str("text", text).Msg("notice shown")
	c.changed()
	return n
}

// Dismiss removes a notice before it expires. It reports whether it was still up.
func (c *Center) Dismiss(id string) bool {
	if !c.remove(id) {
		return false
	}
	c.changed()
	return true
}

// Active returns the visible notices, oldest first
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Close drops every notice and cancels pending expiries
func (c *Center) Close() {
	c.mu.Lock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.notices = nil
	c.mu.Unlock()
}

func (c *Center) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.notices {
		if n.ID == id {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Center) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
