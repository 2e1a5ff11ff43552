package farmserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

// newTestNoticeConsumer skips the NATS connection; broadcasts stay queued on the manager
func newTestNoticeConsumer(t *testing.T) (*NoticeConsumer, *ConnectionManager) {
	t.Helper()
	store, _ := newTestStore(t)
	cm := NewConnectionManager(DefaultConnectionConfig(), store)
	return &NoticeConsumer{connectionManager: cm, config: DefaultNoticeConsumerConfig()}, cm
}

func queued(t *testing.T, cm *ConnectionManager) BroadcastMessage {
	t.Helper()
	select {
	case msg := <-cm.broadcastCh:
		return msg
	default:
		t.Fatal("nothing broadcast")
		return BroadcastMessage{}
	}
}

func TestNoticeToRoom(t *testing.T) {
	nc, cm := newTestNoticeConsumer(t)

	require.NoError(t, nc.processMessage("seedlings.notices.12", []byte(`{"message": "Rain is coming"}`)))

	msg := queued(t, cm)
	assert.Equal(t, 12, msg.RoomID)
	assert.False(t, msg.All)
	assert.Equal(t, realtime.EventStatus, msg.Event)
	assert.Equal(t, statusFrame{Message: "Rain is coming"}, msg.Payload)
}

func TestNoticeToAllAsPlainText(t *testing.T) {
	nc, cm := newTestNoticeConsumer(t)

	require.NoError(t, nc.processMessage("seedlings.notices.all", []byte("Server restarting in 5 minutes\n")))

	msg := queued(t, cm)
	assert.True(t, msg.All)
	assert.Equal(t, statusFrame{Message: "Server restarting in 5 minutes"}, msg.Payload)
}

func TestNoticeRejected(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    string
	}{
		{"foreign subject", "other.notices.1", "hi"},
		{"bare prefix", "seedlings.notices.", "hi"},
		{"room not a number", "seedlings.notices.barn", "hi"},
		{"room zero", "seedlings.notices.0", "hi"},
		{"empty body", "seedlings.notices.1", "   "},
		{"empty message field", "seedlings.notices.1", `{"message": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc, cm := newTestNoticeConsumer(t)
			assert.Error(t, nc.processMessage(tt.subject, []byte(tt.data)))
			assert.Empty(t, cm.broadcastCh)
		})
	}
}
