package main

import (
	"testing"
	"time"

	"ev/ocpp/gateway/internal/broker"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records the topics handed to the broker.
type capturePublisher struct {
	topics chan string
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{topics: make(chan string, 4)}
}

func (p *capturePublisher) Connect() error { return nil }
func (p *capturePublisher) Close() error   { return nil }

func (p *capturePublisher) Publish(topic string, json string) error {
	p.topics <- topic
	return nil
}

func TestDropReplacedSessionSuppressesDisconnect(t *testing.T) {
	state := newTestServiceState()
	state.Config.Services.WsGateway.StandaloneMode = false
	pub := newCapturePublisher()
	state.Broker = pub
	w := HttpHandler(state)

	oldConn := newRecordConn()
	oldSess := newOnlineSession("CP001", oldConn)
	state.Registry.Admit(oldSess)

	newConn := newRecordConn()
	newSess := newOnlineSession("CP001", newConn)
	defer newSess.Close(1000, "test done")

	evicted := state.Registry.Admit(newSess)
	require.Same(t, oldSess, evicted)
	evicted.Close(websocket.ClosePolicyViolation, "session replaced")

	// the stale connection's read loop unwinds after the replacement is live
	w.dropChargePoint(oldSess)

	select {
	case topic := <-pub.topics:
		t.Fatalf("unexpected publish on topic %s for replaced session", topic)
	case <-time.After(200 * time.Millisecond):
	}

	current, found := state.Registry.Lookup("CP001")
	require.True(t, found, "replacement session must stay registered")
	assert.Same(t, newSess, current)
}

func TestDropLiveSessionPublishesDisconnect(t *testing.T) {
	state := newTestServiceState()
	state.Config.Services.WsGateway.StandaloneMode = false
	pub := newCapturePublisher()
	state.Broker = pub
	w := HttpHandler(state)

	conn := newRecordConn()
	sess := newOnlineSession("CP001", conn)
	state.Registry.Admit(sess)

	w.dropChargePoint(sess)

	select {
	case topic := <-pub.topics:
		assert.Equal(t, broker.Topic("CP001", broker.EventKind_Disconnected), topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect event published")
	}

	_, found := state.Registry.Lookup("CP001")
	assert.False(t, found)
}
