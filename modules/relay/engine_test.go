package relay

import (
	"encoding/json"
	"testing"

	domain "github.com/example/socket-relay/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, event string, data any) Frame {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Frame{Event: event, Data: raw}
}

func dispatch(t *testing.T, e *Engine, conn ConnID, f Frame) []Delivery {
	t.Helper()
	out, err := e.Dispatch(conn, f)
	require.NoError(t, err)
	return out
}

func setupConn(t *testing.T, e *Engine, conn ConnID, userID string) {
	t.Helper()
	e.Lifecycle().Connect(conn)
	out := dispatch(t, e, conn, frame(t, EventSetup, domain.User{ID: userID, Name: "user " + userID}))
	require.Equal(t, []Delivery{{Conn: conn, Frame: Frame{Event: EventConnected}}}, out)
}

func recipients(deliveries []Delivery) []ConnID {
	out := make([]ConnID, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, d.Conn)
	}
	return out
}

func chatMessage(senderID string, memberIDs ...string) domain.Message {
	users := make([]domain.User, 0, len(memberIDs))
	for _, id := range memberIDs {
		users = append(users, domain.User{ID: id})
	}
	return domain.Message{
		ID:      "m1",
		Sender:  &domain.User{ID: senderID},
		Content: "hi",
		Chat:    &domain.Chat{ID: "chat1", Users: users},
	}
}

func TestEngine_SetupAcknowledgesOnlyTheCaller(t *testing.T) {
	e := NewEngine(NewRegistry())
	e.Lifecycle().Connect("A")
	e.Lifecycle().Connect("B")

	out := dispatch(t, e, "A", frame(t, EventSetup, map[string]any{"_id": "u1", "name": "Ann"}))

	assert.Equal(t, []Delivery{{Conn: "A", Frame: Frame{Event: EventConnected}}}, out)
	assert.Equal(t, []ConnID{"A"}, e.Registry().MembersOf("u1"))
}

func TestEngine_TypingReachesOthersInRoom(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")
	dispatch(t, e, "A", frame(t, EventJoinChat, "chat1"))
	dispatch(t, e, "B", frame(t, EventJoinChat, "chat1"))

	for _, event := range []string{EventTyping, EventStopTyping} {
		t.Run(event, func(t *testing.T) {
			out := dispatch(t, e, "A", frame(t, event, "chat1"))
			assert.Equal(t, []Delivery{{Conn: "B", Frame: Frame{Event: event}}}, out)
		})
	}
}

func TestEngine_TypingFromNonMemberReachesRoom(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")
	dispatch(t, e, "B", frame(t, EventJoinChat, "chat1"))

	out := dispatch(t, e, "A", frame(t, EventTyping, "chat1"))
	assert.Equal(t, []ConnID{"B"}, recipients(out))

	out = dispatch(t, e, "A", frame(t, EventTyping, "empty-room"))
	assert.Empty(t, out)
}

func TestEngine_NewMessageSkipsSender(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")

	msg := chatMessage("u1", "u1", "u2")
	f := frame(t, EventNewMessage, msg)
	out := dispatch(t, e, "A", f)

	require.Len(t, out, 1)
	assert.Equal(t, ConnID("B"), out[0].Conn)
	assert.Equal(t, EventMessageReceived, out[0].Frame.Event)
	assert.JSONEq(t, string(f.Data), string(out[0].Frame.Data))
}

func TestEngine_NewMessageReachesEveryDeviceOfRecipient(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B1", "u2")
	setupConn(t, e, "B2", "u2")

	out := dispatch(t, e, "A", frame(t, EventNewMessage, chatMessage("u1", "u1", "u2")))

	assert.Equal(t, []ConnID{"B1", "B2"}, recipients(out))
}

func TestEngine_NewMessageToSenderOtherDevice(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A1", "u1")
	setupConn(t, e, "A2", "u1")
	setupConn(t, e, "B", "u2")

	out := dispatch(t, e, "A1", frame(t, EventNewMessage, chatMessage("u1", "u1", "u2")))

	// Personal rooms of the sender are skipped on every device.
	assert.Equal(t, []ConnID{"B"}, recipients(out))
}

func TestEngine_NewMessageDedupesConnectionPerMessage(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")
	// B also identifies as u3 and sits in both personal rooms.
	dispatch(t, e, "B", frame(t, EventSetup, domain.User{ID: "u3"}))

	out := dispatch(t, e, "A", frame(t, EventNewMessage, chatMessage("u1", "u1", "u2", "u3")))

	assert.Equal(t, []ConnID{"B"}, recipients(out))
}

func TestEngine_NewMessageNeverReturnsToSendingConnection(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")
	// A also sits in u2's personal room.
	dispatch(t, e, "A", frame(t, EventJoinChat, "u2"))

	out := dispatch(t, e, "A", frame(t, EventNewMessage, chatMessage("u1", "u1", "u2")))

	assert.Equal(t, []ConnID{"B"}, recipients(out))
}

func TestEngine_NewMessageOfflineRecipient(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")

	out := dispatch(t, e, "A", frame(t, EventNewMessage, chatMessage("u1", "u1", "u9")))

	assert.Empty(t, out)
}

func TestEngine_NewMessageFromServer(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")

	out := dispatch(t, e, "", frame(t, EventNewMessage, chatMessage("u1", "u1", "u2")))

	assert.Equal(t, []ConnID{"B"}, recipients(out))
}

func TestEngine_MalformedEventsAreDropped(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{name: "setup without id", frame: Frame{Event: EventSetup, Data: json.RawMessage(`{"name":"x"}`)}},
		{name: "setup with wrong type", frame: Frame{Event: EventSetup, Data: json.RawMessage(`"u1"`)}},
		{name: "setup without payload", frame: Frame{Event: EventSetup}},
		{name: "join with object", frame: Frame{Event: EventJoinChat, Data: json.RawMessage(`{"room":"chat1"}`)}},
		{name: "join with empty room", frame: Frame{Event: EventJoinChat, Data: json.RawMessage(`""`)}},
		{name: "typing without room", frame: Frame{Event: EventTyping}},
		{name: "stop typing with number", frame: Frame{Event: EventStopTyping, Data: json.RawMessage(`42`)}},
		{name: "message without users", frame: Frame{Event: EventNewMessage, Data: json.RawMessage(`{"sender":{"_id":"u1"},"chat":{"_id":"c1"}}`)}},
		{name: "message with null users", frame: Frame{Event: EventNewMessage, Data: json.RawMessage(`{"sender":{"_id":"u1"},"chat":{"_id":"c1","users":null}}`)}},
		{name: "message without sender", frame: Frame{Event: EventNewMessage, Data: json.RawMessage(`{"content":"hi","chat":{"_id":"c1","users":[{"_id":"u1"},{"_id":"u2"}]}}`)}},
		{name: "sender without _id", frame: Frame{Event: EventNewMessage, Data: json.RawMessage(`{"sender":{"name":"Ann"},"chat":{"_id":"c1","users":[{"_id":"u1"},{"_id":"u2"}]}}`)}},
		{name: "message without chat", frame: Frame{Event: EventNewMessage, Data: json.RawMessage(`{"sender":{"_id":"u1"}}`)}},
		{name: "message not json", frame: Frame{Event: EventNewMessage, Data: json.RawMessage(`nope`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(NewRegistry())
			setupConn(t, e, "A", "u1")
			setupConn(t, e, "B", "u2")
			dispatch(t, e, "B", frame(t, EventJoinChat, "chat1"))
			roomsBefore := e.Registry().RoomsOf("A")

			out, err := e.Dispatch("A", tt.frame)

			require.ErrorIs(t, err, ErrMalformedEvent)
			assert.Empty(t, out)
			assert.Equal(t, roomsBefore, e.Registry().RoomsOf("A"))
			user, _ := e.Registry().Identity("A")
			assert.Equal(t, "u1", user)
		})
	}
}

func TestEngine_UnknownEventIsIgnored(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")

	out, err := e.Dispatch("A", Frame{Event: "wave", Data: json.RawMessage(`"chat1"`)})

	require.ErrorIs(t, err, ErrUnknownEvent)
	assert.Empty(t, out)
	assert.Equal(t, []string{"u1"}, e.Registry().RoomsOf("A"))
}

func TestEngine_JoinBeforeSetup(t *testing.T) {
	e := NewEngine(NewRegistry())
	e.Lifecycle().Connect("A")
	e.Lifecycle().Connect("B")

	dispatch(t, e, "A", frame(t, EventJoinChat, "chat1"))
	out := dispatch(t, e, "B", frame(t, EventTyping, "chat1"))

	assert.Equal(t, []ConnID{"A"}, recipients(out))
	_, identified := e.Registry().Identity("A")
	assert.False(t, identified)
}

func TestEngine_DisconnectStopsDelivery(t *testing.T) {
	e := NewEngine(NewRegistry())
	setupConn(t, e, "A", "u1")
	setupConn(t, e, "B", "u2")
	dispatch(t, e, "B", frame(t, EventJoinChat, "chat1"))

	dispatch(t, e, "B", Frame{Event: EventDisconnect})

	assert.Empty(t, dispatch(t, e, "A", frame(t, EventTyping, "chat1")))
	assert.Empty(t, dispatch(t, e, "A", frame(t, EventNewMessage, chatMessage("u1", "u1", "u2"))))
	assert.False(t, e.Registry().Registered("B"))
}
