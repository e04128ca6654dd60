package session

import (
	"sync"
	"time"

	"ev/ocpp/gateway/internal/helpers"

	"github.com/gorilla/websocket"
)

// Subscriber is a UI/monitoring session receiving read-only fan-out for one
// (charge point, connector) pair. Unlike charge-point sessions there is no
// uniqueness constraint and no pending-call table.
type Subscriber struct {
	identity     string
	connectorId  int
	remoteAddr   string
	conn         FrameWriter
	subscribedAt time.Time

	mu     sync.Mutex
	closed bool
}

func NewSubscriber(identity string, connectorId int, conn FrameWriter, remoteAddr string) *Subscriber {
	return &Subscriber{
		identity:     identity,
		connectorId:  connectorId,
		remoteAddr:   remoteAddr,
		conn:         conn,
		subscribedAt: helpers.Now(),
	}
}

func (s *Subscriber) Identity() string        { return s.identity }
func (s *Subscriber) ConnectorId() int        { return s.connectorId }
func (s *Subscriber) RemoteAddr() string      { return s.remoteAddr }
func (s *Subscriber) SubscribedAt() time.Time { return s.subscribedAt }

// Send writes one event frame. Sends are serialized under the subscriber's
// own lock; a send failure marks the subscriber dead.
func (s *Subscriber) Send(event []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.conn.WriteMessage(websocket.TextMessage, event)
}

func (s *Subscriber) Close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	msg := websocket.FormatCloseMessage(code, reason)
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	s.conn.Close()
}
