package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/socket-relay/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// Sender writes frames to one client transport.
type Sender interface {
	Send(frame Frame) error
	Close() error
}

type hubEventKind int

const (
	hubConnect hubEventKind = iota
	hubFrame
)

// recentMessageLimit bounds how many relayed message ids the hub remembers.
const recentMessageLimit = 1024

type hubEvent struct {
	kind   hubEventKind
	conn   ConnID
	sender Sender
	frame  Frame
}

// Hub serializes all relay work onto one goroutine. Each queued event is handled
// to completion, deliveries included, before the next one is taken.
type Hub struct {
	engine  *Engine
	logger  types.Logger
	senders map[ConnID]Sender // owned by Run
	relayed *recentIDs        // owned by Run
	events  chan hubEvent
	done    chan struct{}
}

// NewHub creates a hub around engine. queueSize bounds the pending event queue.
func NewHub(engine *Engine, logger types.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		engine:  engine,
		logger:  logger,
		senders: make(map[ConnID]Sender),
		relayed: newRecentIDs(recentMessageLimit),
		events:  make(chan hubEvent, queueSize),
		done:    make(chan struct{}),
	}
}

// Run processes queued events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Relay hub shutting down", "connections", len(h.senders))
			h.closeAll()
			close(h.done)
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.done
}

// Connect registers a new transport connection.
func (h *Hub) Connect(conn ConnID, sender Sender) {
	h.enqueue(hubEvent{kind: hubConnect, conn: conn, sender: sender})
}

// Receive queues an inbound frame from conn.
func (h *Hub) Receive(conn ConnID, frame Frame) {
	h.enqueue(hubEvent{kind: hubFrame, conn: conn, frame: frame})
}

// Disconnect queues the teardown of conn.
func (h *Hub) Disconnect(conn ConnID) {
	h.Receive(conn, Frame{Event: EventDisconnect})
}

// Relay queues a persisted message for delivery on behalf of the server.
func (h *Hub) Relay(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	h.Receive("", Frame{Event: EventNewMessage, Data: data})
	return nil
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	return h.engine.Registry().ConnectionCount()
}

// RoomCount returns the number of non-empty rooms.
func (h *Hub) RoomCount() int {
	return h.engine.Registry().RoomCount()
}

func (h *Hub) enqueue(ev hubEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *Hub) handle(ev hubEvent) {
	switch ev.kind {
	case hubConnect:
		h.senders[ev.conn] = ev.sender
		h.engine.Lifecycle().Connect(ev.conn)
		h.logger.Debug("Connection registered", "connID", ev.conn)
	case hubFrame:
		// A message posted over REST may also be re-emitted by its sender's socket.
		msgID := messageID(ev.frame)
		if msgID != "" && h.relayed.contains(msgID) {
			h.logger.Debug("Skipping already relayed message", "connID", ev.conn, "messageID", msgID)
			return
		}
		deliveries, err := h.engine.Dispatch(ev.conn, ev.frame)
		if ev.frame.Event == EventDisconnect {
			delete(h.senders, ev.conn)
			h.logger.Debug("Connection deregistered", "connID", ev.conn)
		}
		if err != nil {
			h.logDropped(ev, err)
			return
		}
		if msgID != "" {
			h.relayed.add(msgID)
		}
		h.deliver(deliveries)
	}
}

func (h *Hub) deliver(deliveries []Delivery) {
	for _, d := range deliveries {
		sender, ok := h.senders[d.Conn]
		if !ok {
			continue
		}
		if err := sender.Send(d.Frame); err != nil {
			h.logger.Warn("Send failed, dropping connection",
				"connID", d.Conn, "event", d.Frame.Event, "error", err)
			h.drop(d.Conn, sender)
		}
	}
}

// drop treats a transport failure as a disconnect.
func (h *Hub) drop(conn ConnID, sender Sender) {
	delete(h.senders, conn)
	h.engine.Lifecycle().Disconnect(conn)
	_ = sender.Close()
}

func (h *Hub) closeAll() {
	for conn, sender := range h.senders {
		_ = sender.Close()
		h.engine.Lifecycle().Disconnect(conn)
	}
	h.senders = make(map[ConnID]Sender)
}

func (h *Hub) logDropped(ev hubEvent, err error) {
	if errors.Is(err, ErrUnknownEvent) {
		h.logger.Debug("Ignoring unknown event", "connID", ev.conn, "event", ev.frame.Event)
		return
	}
	h.logger.Warn("Dropping event", "connID", ev.conn, "event", ev.frame.Event, "error", err)
}

// messageID returns the _id of a new message frame, or "" for anything else.
func messageID(f Frame) string {
	if f.Event != EventNewMessage {
		return ""
	}
	var msg struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		return ""
	}
	return msg.ID
}

// recentIDs is a fixed-size set that forgets the oldest id once full.
type recentIDs struct {
	ids   map[string]struct{}
	order []string
	next  int
}

func newRecentIDs(limit int) *recentIDs {
	return &recentIDs{
		ids:   make(map[string]struct{}, limit),
		order: make([]string, limit),
	}
}

func (r *recentIDs) contains(id string) bool {
	_, ok := r.ids[id]
	return ok
}

func (r *recentIDs) add(id string) {
	if r.contains(id) {
		return
	}
	if old := r.order[r.next]; old != "" {
		delete(r.ids, old)
	}
	r.order[r.next] = id
	r.ids[id] = struct{}{}
	r.next = (r.next + 1) % len(r.order)
}
