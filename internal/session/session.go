// Charge-point session state machine: owns the socket's outbound side, the
// pending-call table and heartbeat bookkeeping for one connection.
package session

import (
	"errors"
	"sync"
	"time"

	"ev/ocpp/gateway/internal/helpers"
	logging "ev/ocpp/gateway/internal/logging"
	"ev/ocpp/gateway/internal/ocpp"
	"ev/ocpp/gateway/internal/version"

	"github.com/gorilla/websocket"
)

type State int

const (
	State_Connecting State = iota
	State_Authenticating
	State_Online
	State_Closing
	State_Closed
)

func (s State) String() string {
	switch s {
	case State_Connecting:
		return "CONNECTING"
	case State_Authenticating:
		return "AUTHENTICATING"
	case State_Online:
		return "ONLINE"
	case State_Closing:
		return "CLOSING"
	case State_Closed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// FrameWriter is the outbound slice of *websocket.Conn the session needs.
// Tests substitute a fake; reads stay with the connection's read loop.
type FrameWriter interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

var (
	ErrSessionClosed     = errors.New("session closed")
	ErrQueueFull         = errors.New("outbound queue full")
	ErrDuplicateUniqueId = errors.New("uniqueId already pending")
)

const closeWriteTimeout = 2 * time.Second

// PendingCall tracks one gateway-issued CALL awaiting its response frame.
type PendingCall struct {
	UniqueId  string
	Action    string
	IssuedAt  time.Time
	TimeoutAt time.Time

	done chan ocpp.Envelope
}

type Session struct {
	identity   string
	ver        version.OcppVersion
	remoteAddr string
	conn       FrameWriter

	mu                    sync.Mutex
	state                 State
	pending               map[string]*PendingCall
	heartbeatIntervalSecs int
	lastHeartbeatAt       time.Time
	authenticatedAt       time.Time

	sendQueue chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session in CONNECTING state and starts its writer goroutine.
// All outbound frames pass through the bounded queue so writes to the socket
// never interleave.
func New(identity string, ver version.OcppVersion, conn FrameWriter, remoteAddr string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &Session{
		identity:        identity,
		ver:             ver,
		remoteAddr:      remoteAddr,
		conn:            conn,
		state:           State_Connecting,
		pending:         make(map[string]*PendingCall),
		lastHeartbeatAt: helpers.Now(),
		sendQueue:       make(chan []byte, queueSize),
		done:            make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *Session) Identity() string             { return s.identity }
func (s *Session) Version() version.OcppVersion { return s.ver }
func (s *Session) RemoteAddr() string           { return s.remoteAddr }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == State_Closed {
		return
	}
	s.state = state
	if state == State_Online && s.authenticatedAt.IsZero() {
		s.authenticatedAt = helpers.Now()
	}
}

func (s *Session) AuthenticatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticatedAt
}

// SetHeartbeatInterval arms the silent-peer check; called when the gateway
// hands the negotiated interval back in the BootNotification response.
func (s *Session) SetHeartbeatInterval(secs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeatIntervalSecs = secs
	s.lastHeartbeatAt = helpers.Now()
}

func (s *Session) HeartbeatInterval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeatIntervalSecs
}

// Touch records inbound activity. Any frame counts, not just Heartbeat.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeatAt = helpers.Now()
}

func (s *Session) LastHeartbeatAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeatAt
}

// Silent reports whether the peer has been quiet past the grace window of
// multiplier x negotiated interval. Sessions that have not completed a
// BootNotification round trip are never silent.
func (s *Session) Silent(now time.Time, multiplier int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heartbeatIntervalSecs <= 0 || s.state != State_Online {
		return false
	}
	grace := time.Duration(s.heartbeatIntervalSecs*multiplier) * time.Second
	return now.Sub(s.lastHeartbeatAt) > grace
}

// Send queues a raw text frame. A full queue means the consumer is not
// keeping up; the session is torn down rather than buffering without bound.
func (s *Session) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.sendQueue <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		logging.Logger.Warnf("[ %s ] outbound queue full, dropping connection", s.identity)
		s.Close(websocket.ClosePolicyViolation, "slow consumer")
		return ErrQueueFull
	}
}

func (s *Session) SendEnvelope(env ocpp.Envelope) error {
	frame, err := env.Encode()
	if err != nil {
		return err
	}
	return s.Send(frame)
}

// Call issues a CALL towards the charge point and blocks until the matching
// CALLRESULT/CALLERROR arrives, the timeout fires, or the session closes.
// Timeouts and cancellation surface as synthetic CallError envelopes so the
// caller always receives a correlated response.
func (s *Session) Call(action string, payload []byte, timeout time.Duration) (ocpp.Envelope, error) {
	uniqueId := ocpp.GenerateUniqueId()
	pc, err := s.registerPending(uniqueId, action, timeout)
	if err != nil {
		return ocpp.Envelope{}, err
	}

	if err := s.SendEnvelope(ocpp.Call(uniqueId, action, payload)); err != nil {
		s.removePending(uniqueId)
		return ocpp.Envelope{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-pc.done:
		return response, nil
	case <-timer.C:
		if _, stillPending := s.removePending(uniqueId); !stillPending {
			// response raced the timer; collect it
			return <-pc.done, nil
		}
		logging.Logger.Warnf("[ %s ] call %s timed out (%s)", s.identity, action, uniqueId)
		return ocpp.CallError(uniqueId, ocpp.ErrorCode_Timeout, "no response from charge point", nil), nil
	case <-s.done:
		return ocpp.CallError(uniqueId, ocpp.ErrorCode_Cancelled, "session closed", nil), nil
	}
}

func (s *Session) registerPending(uniqueId string, action string, timeout time.Duration) (*PendingCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == State_Closing || s.state == State_Closed {
		return nil, ErrSessionClosed
	}
	if _, exists := s.pending[uniqueId]; exists {
		return nil, ErrDuplicateUniqueId
	}
	now := helpers.Now()
	pc := &PendingCall{
		UniqueId:  uniqueId,
		Action:    action,
		IssuedAt:  now,
		TimeoutAt: now.Add(timeout),
		done:      make(chan ocpp.Envelope, 1),
	}
	s.pending[uniqueId] = pc
	return pc, nil
}

func (s *Session) removePending(uniqueId string) (*PendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.pending[uniqueId]
	if ok {
		delete(s.pending, uniqueId)
	}
	return pc, ok
}

// Resolve matches an inbound CALLRESULT/CALLERROR against the pending table.
// Unmatched or already-resolved ids are dropped without touching session
// state, which makes duplicate and post-timeout responses harmless.
func (s *Session) Resolve(env ocpp.Envelope) bool {
	pc, ok := s.removePending(env.UniqueId)
	if !ok {
		logging.Logger.Warnf("[ %s ] correlation miss for uniqueId %s, dropped", s.identity, env.UniqueId)
		return false
	}
	pc.done <- env
	return true
}

func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close transitions to CLOSED, cancels every outstanding call, sends the
// close frame and releases the socket. Safe to call from any goroutine and
// idempotent.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = State_Closing
		cancelled := s.pending
		s.pending = make(map[string]*PendingCall)
		s.mu.Unlock()

		for _, pc := range cancelled {
			select {
			case pc.done <- ocpp.CallError(pc.UniqueId, ocpp.ErrorCode_Cancelled, reason, nil):
			default:
			}
		}

		close(s.done)

		msg := websocket.FormatCloseMessage(code, reason)
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil {
			logging.Logger.Debugf("[ %s ] close frame write failed: %s", s.identity, err.Error())
		}
		s.conn.Close()

		s.mu.Lock()
		s.state = State_Closed
		s.mu.Unlock()
	})
}

// Done is closed when the session shuts down; the read loop selects on it.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.sendQueue:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Logger.Warnf("[ %s ] client disconnected(write): %s", s.identity, err.Error())
				s.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		}
	}
}
