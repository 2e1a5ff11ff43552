package roomlist

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

type queries struct {
	mu  sync.Mutex
	got []string
}

func (q *queries) record(s string) {
	q.mu.Lock()
	q.got = append(q.got, s)
	q.mu.Unlock()
}

func (q *queries) list() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.got...)
}

func TestSearchIsDebounced(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var q queries
	s := NewSearcher(clock, SearchDelay, q.record)

	s.Input("g")
	clock.Advance(100 * time.Millisecond)
	s.Input("gr")
	clock.Advance(100 * time.Millisecond)
	s.Input(" green ")
	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, q.list())

	clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return len(q.list()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"green"}, q.list())
}

func TestSearchNowCancelsPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var q queries
	s := NewSearcher(clock, SearchDelay, q.record)

	s.Input("a")
	s.Now("b")
	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"b"}, q.list())
}

func TestNormalizeJoinCode(t *testing.T) {
	code, err := NormalizeJoinCode(" ab3x ")
	require.NoError(t, err)
	assert.Equal(t, "AB3X", code)

	_, err = NormalizeJoinCode("  ")
	assert.ErrorIs(t, err, ErrEmptyJoinCode)
}

func TestRoomIDFromRedirect(t *testing.T) {
	tests := []struct {
		redirect string
		want     int
		wantErr  bool
	}{
		{redirect: "/rooms/5", want: 5},
		{redirect: "/rooms/12/", want: 12},
		{redirect: "http://localhost:8080/rooms/3", want: 3},
		{redirect: "/rooms", wantErr: true},
		{redirect: "/rooms/abc", wantErr: true},
		{redirect: "/other/4", wantErr: true},
		{redirect: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.redirect, func(t *testing.T) {
			got, err := RoomIDFromRedirect(tt.redirect)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoRoomInPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinableAndDescribe(t *testing.T) {
	open := models.RoomSummary{ID: 1, Name: "Farm", MemberCount: 1, MaxMembers: 4, OwnerName: "ann"}
	full := open
	full.IsFull = true
	private := open
	private.IsPrivate = true

	assert.True(t, Joinable(open))
	assert.False(t, Joinable(full))
	assert.False(t, Joinable(private))

	assert.Equal(t, "#1 Farm 1/4 by ann", Describe(open))
	assert.Equal(t, "#1 Farm 1/4 by ann (Room Full)", Describe(full))
	assert.Equal(t, `No rooms found matching "x".`, EmptyText("x"))
}
