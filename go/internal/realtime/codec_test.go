package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

func TestEncode(t *testing.T) {
	frame, err := Encode(EventJoin, RoomPayload{RoomID: "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"join","data":{"room_id":"42"}}`, string(frame))

	frame, err = Encode(EventChat, ChatPayload{RoomID: "7", Message: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"chat","data":{"room_id":"7","message":"hi"}}`, string(frame))
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "chat with message_content",
			frame: `{"event":"chat","data":{"id":3,"user":"ann","message_content":"hello","timestamp":"2024-05-01T10:30:00"}}`,
			want: ChatReceived{Message: models.ChatMessage{
				ID:        3,
				User:      "ann",
				Content:   "hello",
				Timestamp: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
			}},
		},
		{
			name:  "chat with legacy content",
			frame: `{"event":"chat","data":{"user":"bob","content":"yo","timestamp":"2024-05-01T10:30:00.250000+02:00"}}`,
			want: ChatReceived{Message: models.ChatMessage{
				User:      "bob",
				Content:   "yo",
				Timestamp: time.Date(2024, 5, 1, 8, 30, 0, 250000000, time.UTC),
			}},
		},
		{
			name:  "status",
			frame: `{"event":"status","data":{"message":"ann joined the room."}}`,
			want:  StatusReceived{Message: "ann joined the room."},
		},
		{
			name:  "member update",
			frame: `{"event":"member_update","data":{"count":2,"members":[{"id":1,"username":"ann","is_owner":true},{"id":2,"username":"bob","is_owner":false}]}}`,
			want: MembersUpdated{Count: 2, Members: []models.Member{
				{ID: 1, Username: "ann", IsOwner: true},
				{ID: 2, Username: "bob"},
			}},
		},
		{
			name:  "empty member update",
			frame: `{"event":"member_update","data":{"count":0,"members":[]}}`,
			want:  MembersUpdated{Count: 0, Members: []models.Member{}},
		},
		{
			name:  "member update without count",
			frame: `{"event":"member_update","data":{"members":[{"id":9,"username":"cy"}]}}`,
			want:  MembersUpdated{Count: 1, Members: []models.Member{{ID: 9, Username: "cy"}}},
		},
		{
			name:  "server error",
			frame: `{"event":"error","data":{"message":"not in room"}}`,
			want:  ServerError{Message: "not in room"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.frame))
			require.NoError(t, err)

			if chat, ok := tt.want.(ChatReceived); ok {
				gotChat, ok := got.(ChatReceived)
				require.True(t, ok)
				assert.True(t, chat.Message.Timestamp.Equal(gotChat.Message.Timestamp))
				chat.Message.Timestamp = gotChat.Message.Timestamp
				assert.Equal(t, chat, gotChat)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event":"tick","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"event":"status"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"event":"chat","data":{"user":"a","message_content":"b","timestamp":"yesterday"}}`))
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	ts, err = ParseTimestamp("2024-01-02T03:04:05.123456")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, 123456000, ts.Nanosecond())

	ts, err = ParseTimestamp("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 3, ts.UTC().Hour())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	frame, err := Encode(EventStatus, map[string]string{"message": "x"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, EventStatus, env.Event)

	ev, err := DecodeEvent(frame)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived{Message: "x"}, ev)
}
