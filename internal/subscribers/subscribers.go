// Subscriber registry: fan-out of connector status events to UI/monitoring
// sessions, keyed by (charge point identity, connector id). Delivery is
// best-effort and strictly read-only with respect to charge-point sessions.
package subscribers

import (
	"encoding/json"

	"ev/ocpp/gateway/internal/helpers"
	logging "ev/ocpp/gateway/internal/logging"
	"ev/ocpp/gateway/internal/session"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

type Key struct {
	Identity    string
	ConnectorId int
}

// ConnectorStatusEvent is the normalized event delivered to subscribers.
type ConnectorStatusEvent struct {
	ChargePointId string `json:"chargePointId"`
	ConnectorId   int    `json:"connectorId"`
	Status        string `json:"status"`
	ErrorCode     string `json:"errorCode,omitempty"`
	Timestamp     string `json:"timestamp"`
}

func NewConnectorStatusEvent(identity string, connectorId int, status string, errorCode string) ConnectorStatusEvent {
	return ConnectorStatusEvent{
		ChargePointId: identity,
		ConnectorId:   connectorId,
		Status:        status,
		ErrorCode:     errorCode,
		Timestamp:     helpers.GenerateDateNowMs(),
	}
}

type SubscriberRegistry struct {
	subs *xsync.MapOf[Key, []*session.Subscriber]
}

func New() *SubscriberRegistry {
	return &SubscriberRegistry{subs: xsync.NewMapOf[Key, []*session.Subscriber]()}
}

func (r *SubscriberRegistry) Subscribe(identity string, connectorId int, sub *session.Subscriber) {
	key := Key{Identity: identity, ConnectorId: connectorId}
	r.subs.Compute(key, func(current []*session.Subscriber, _ bool) ([]*session.Subscriber, bool) {
		return append(current, sub), false
	})
	logging.Logger.Debugf("[ %s ] subscriber added for connector %d (%s)", identity, connectorId, sub.RemoteAddr())
}

func (r *SubscriberRegistry) Unsubscribe(identity string, connectorId int, sub *session.Subscriber) {
	key := Key{Identity: identity, ConnectorId: connectorId}
	r.subs.Compute(key, func(current []*session.Subscriber, loaded bool) ([]*session.Subscriber, bool) {
		if !loaded {
			return nil, true
		}
		remaining := make([]*session.Subscriber, 0, len(current))
		for _, s := range current {
			if s != sub {
				remaining = append(remaining, s)
			}
		}
		return remaining, len(remaining) == 0
	})
}

// Publish delivers the event to every current subscriber for the pair. A
// failed send removes that subscriber only; the rest still get the event.
func (r *SubscriberRegistry) Publish(identity string, connectorId int, event ConnectorStatusEvent) int {
	key := Key{Identity: identity, ConnectorId: connectorId}
	current, ok := r.subs.Load(key)
	if !ok || len(current) == 0 {
		return 0
	}

	frame, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Errorf("[ %s ] unable to marshal status event: %s", identity, err.Error())
		return 0
	}

	delivered := 0
	for _, sub := range current {
		if err := sub.Send(frame); err != nil {
			logging.Logger.Warnf("[ %s ] dropping subscriber %s: %s", identity, sub.RemoteAddr(), err.Error())
			r.Unsubscribe(identity, connectorId, sub)
			sub.Close(websocket.CloseGoingAway, "send failed")
			continue
		}
		delivered++
	}
	return delivered
}

func (r *SubscriberRegistry) Count(identity string, connectorId int) int {
	current, ok := r.subs.Load(Key{Identity: identity, ConnectorId: connectorId})
	if !ok {
		return 0
	}
	return len(current)
}
