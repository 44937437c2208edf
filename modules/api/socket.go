package api

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/example/socket-relay/modules/relay"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	// writeWait is the time allowed to write one frame to the peer.
	writeWait = 10 * time.Second
	// maxFrameSize is the largest inbound frame accepted from a peer.
	maxFrameSize = 64 * 1024
)

var (
	errSocketClosed   = errors.New("socket closed")
	errSendBufferFull = errors.New("send buffer full")
)

// socketConn adapts one websocket to relay.Sender. Frames are queued on a
// bounded buffer and written by writePump; a full buffer fails the send.
type socketConn struct {
	id     relay.ConnID
	conn   *websocket.Conn
	send   chan relay.Frame
	closed chan struct{}
	once   sync.Once
}

func newSocketConn(id relay.ConnID, conn *websocket.Conn, buffer int) *socketConn {
	if buffer <= 0 {
		buffer = 256
	}
	return &socketConn{
		id:     id,
		conn:   conn,
		send:   make(chan relay.Frame, buffer),
		closed: make(chan struct{}),
	}
}

// Send queues f without blocking.
func (s *socketConn) Send(f relay.Frame) error {
	select {
	case <-s.closed:
		return errSocketClosed
	default:
	}
	select {
	case s.send <- f:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close stops the write pump, which closes the underlying socket.
func (s *socketConn) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// writePump drains the send buffer and keeps the peer alive with pings.
func (s *socketConn) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleSocket runs one relay connection until the peer goes away or stops answering pings.
func (m *APIModule) handleSocket(c *websocket.Conn) {
	id := relay.ConnID(uuid.NewString())
	sc := newSocketConn(id, c, m.settings.SendBuffer)

	pongWait := m.settings.PingTimeout
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}

	m.hub.Connect(id, sc)
	m.logger.Info("Socket connected", "connID", id)

	pumpDone := make(chan struct{})
	go func() {
		sc.writePump(pongWait * 9 / 10)
		close(pumpDone)
	}()

	m.readFrames(sc, pongWait)

	m.hub.Disconnect(id)
	_ = sc.Close()
	<-pumpDone
	m.logger.Info("Socket disconnected", "connID", id)
}

// readFrames decodes inbound envelopes and hands them to the hub.
func (m *APIModule) readFrames(sc *socketConn, pongWait time.Duration) {
	c := sc.conn
	c.SetReadLimit(maxFrameSize)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("Socket read error", "connID", sc.id, "error", err)
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(pongWait))
		if msgType != websocket.TextMessage {
			continue
		}

		var frame relay.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			m.logger.Debug("Dropping undecodable frame", "connID", sc.id, "error", err)
			continue
		}
		// disconnect is only ever raised by the transport itself.
		if frame.Event == relay.EventDisconnect {
			continue
		}
		m.hub.Receive(sc.id, frame)
	}
}
