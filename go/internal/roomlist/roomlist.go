// Package roomlist backs the room browser: debounced search, join codes and
// the room a join redirect points at.
package roomlist

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// SearchDelay is how long typing must pause before a search runs
const SearchDelay = 300 * time.Millisecond

var (
	ErrEmptyJoinCode = errors.New("please enter a room code")
	ErrNoRoomInPath  = errors.New("redirect does not point at a room")
)

// RoomPathF is the page path of a room
const RoomPathF = "/rooms/%d"

// Searcher runs search only after input has been idle for the delay.
// search is called from a clock goroutine.
type Searcher struct {
	clock  clockwork.Clock
	delay  time.Duration
	search func(query string)

	mu    sync.Mutex
	timer clockwork.Timer
}

func NewSearcher(clock clockwork.Clock, delay time.Duration, search func(query string)) *Searcher {
	if delay <= 0 {
		delay = SearchDelay
	}
	return &Searcher{clock: clock, delay: delay, search: search}
}

// Input restarts the debounce with the latest query
func (s *Searcher) Input(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.delay, func() { s.search(query) })
}

// Now cancels any pending search and runs query immediately
func (s *Searcher) Now(query string) {
	s.Stop()
	s.search(strings.TrimSpace(query))
}

// Stop cancels a pending search
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// NormalizeJoinCode trims and upper-cases a join code
func NormalizeJoinCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", ErrEmptyJoinCode
	}
	return code, nil
}

// RoomIDFromRedirect extracts the room ID from a redirect such as /rooms/5
func RoomIDFromRedirect(redirect string) (int, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoRoomInPath, err)
	}
	dir, last := path.Split(strings.TrimSuffix(u.Path, "/"))
	if strings.TrimSuffix(dir, "/") != "/rooms" {
		return 0, fmt.Errorf("%w: %q", ErrNoRoomInPath, redirect)
	}
	id, err := strconv.Atoi(last)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoRoomInPath, redirect)
	}
	return id, nil
}

// Joinable reports whether a room can be joined from the list. Private rooms
// need a join code.
func Joinable(r models.RoomSummary) bool {
	return !r.IsFull && !r.IsPrivate
}

// Describe renders one room card
func Describe(r models.RoomSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", r.ID, r.Name)
	if r.IsPrivate {
		b.WriteString(" [private]")
	}
	fmt.Fprintf(&b, " %d/%d by %s", r.MemberCount, r.MaxMembers, r.OwnerName)
	if r.IsFull {
		b.WriteString(" (Room Full)")
	}
	return b.String()
}

// EmptyText is shown when a search finds nothing
func EmptyText(query string) string {
	if query == "" {
		return "No rooms found."
	}
	return fmt.Sprintf("No rooms found matching %q.", query)
}
