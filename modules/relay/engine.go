package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/socket-relay/domain/chat"
)

// Wire event names. These strings are shared with existing clients and must not change.
const (
	EventSetup      = "setup"
	EventJoinChat   = "join chat"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
	EventNewMessage = "new message"
	EventDisconnect = "disconnect"

	EventConnected       = "connected"
	EventMessageReceived = "message received"
)

// Frame is the JSON envelope carried by one websocket text message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var errEmptyRoom = errors.New("empty room id")

// Delivery is one outbound frame addressed to one connection.
type Delivery struct {
	Conn  ConnID
	Frame Frame
}

type handlerFunc func(e *Engine, conn ConnID, data json.RawMessage) ([]Delivery, error)

// handlers maps inbound event names to their handler.
var handlers = map[string]handlerFunc{
	EventSetup:      handleSetup,
	EventJoinChat:   handleJoinChat,
	EventTyping:     roomSignal(EventTyping),
	EventStopTyping: roomSignal(EventStopTyping),
	EventNewMessage: handleNewMessage,
	EventDisconnect: handleDisconnect,
}

// Engine turns inbound events into deliveries using the registry.
// It performs no I/O; the caller writes the returned deliveries.
type Engine struct {
	registry  *Registry
	lifecycle *Lifecycle
}

// NewEngine creates an engine operating on registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{
		registry:  registry,
		lifecycle: NewLifecycle(registry),
	}
}

// Registry returns the registry the engine operates on.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Lifecycle returns the lifecycle manager bound to the engine's registry.
func (e *Engine) Lifecycle() *Lifecycle {
	return e.lifecycle
}

// Dispatch handles one inbound frame from conn.
// Errors wrap ErrMalformedEvent or ErrUnknownEvent and are never meant for the client.
func (e *Engine) Dispatch(conn ConnID, frame Frame) ([]Delivery, error) {
	h, ok := handlers[frame.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
	return h(e, conn, frame.Data)
}

func handleSetup(e *Engine, conn ConnID, data json.RawMessage) ([]Delivery, error) {
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: setup: %v", ErrMalformedEvent, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: setup: missing _id", ErrMalformedEvent)
	}

	e.registry.Identify(conn, user.ID)
	return []Delivery{{Conn: conn, Frame: Frame{Event: EventConnected}}}, nil
}

func handleJoinChat(e *Engine, conn ConnID, data json.RawMessage) ([]Delivery, error) {
	room, err := decodeRoom(data)
	if err != nil {
		return nil, fmt.Errorf("%w: join chat: %v", ErrMalformedEvent, err)
	}
	e.registry.JoinRoom(conn, room)
	return nil, nil
}

// roomSignal relays a payload-less event to every other connection in a room.
func roomSignal(event string) handlerFunc {
	return func(e *Engine, conn ConnID, data json.RawMessage) ([]Delivery, error) {
		room, err := decodeRoom(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, event, err)
		}

		var out []Delivery
		for _, member := range e.registry.MembersOf(room) {
			if member == conn {
				continue
			}
			out = append(out, Delivery{Conn: member, Frame: Frame{Event: event}})
		}
		return out, nil
	}
}

func handleNewMessage(e *Engine, conn ConnID, data json.RawMessage) ([]Delivery, error) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: new message: %v", ErrMalformedEvent, err)
	}

	targets, err := ResolveTargets(msg)
	if err != nil {
		return nil, err
	}

	// The payload is forwarded verbatim so fields the relay does not model survive.
	payload := append(json.RawMessage(nil), data...)

	var out []Delivery
	sent := make(map[ConnID]struct{})
	for _, userID := range targets {
		for _, member := range e.registry.MembersOf(userID) {
			if member == conn {
				continue
			}
			if _, dup := sent[member]; dup {
				continue
			}
			sent[member] = struct{}{}
			out = append(out, Delivery{
				Conn:  member,
				Frame: Frame{Event: EventMessageReceived, Data: payload},
			})
		}
	}
	return out, nil
}

func handleDisconnect(e *Engine, conn ConnID, _ json.RawMessage) ([]Delivery, error) {
	e.lifecycle.Disconnect(conn)
	return nil, nil
}

// decodeRoom reads a room id sent as a bare JSON string.
func decodeRoom(data json.RawMessage) (string, error) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		return "", err
	}
	if room == "" {
		return "", errEmptyRoom
	}
	return room, nil
}
