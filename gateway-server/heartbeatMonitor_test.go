package main

import (
	"encoding/json"
	"testing"
	"time"

	"ev/ocpp/gateway/internal/helpers"
	"ev/ocpp/gateway/internal/ocpp"
	"ev/ocpp/gateway/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeConn records the close frame the sweep sends.
type closeConn struct {
	recordConn
	closeCode chan int
}

func newCloseConn() *closeConn {
	return &closeConn{
		recordConn: recordConn{frames: make(chan []byte, 16)},
		closeCode:  make(chan int, 1),
	}
}

func (c *closeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		select {
		case c.closeCode <- int(data[0])<<8 | int(data[1]):
		default:
		}
	}
	return nil
}

func TestSweepEvictsSilentSession(t *testing.T) {
	defer helpers.ResetMockNow()

	state := newTestServiceState()
	conn := newCloseConn()
	sess := newOnlineSession("CP001", conn)
	state.Registry.Admit(sess)
	sess.SetHeartbeatInterval(1)

	// well past the 2x grace window
	future := time.Now().Add(10 * time.Second)
	helpers.SetMockNow(func() time.Time { return future })

	sweepSilentSessions(state, 2)

	_, found := state.Registry.Lookup("CP001")
	assert.False(t, found, "silent session should be removed from the registry")
	assert.Equal(t, session.State_Closed, sess.State())

	select {
	case code := <-conn.closeCode:
		assert.Equal(t, websocket.CloseGoingAway, code)
	case <-time.After(time.Second):
		t.Fatal("no close frame sent")
	}
}

// Full lifecycle: a charge point boots, negotiates its interval, then goes
// quiet past the grace window and is evicted.
func TestBootThenSilentEviction(t *testing.T) {
	defer helpers.ResetMockNow()

	state := newTestServiceState()
	conn := newCloseConn()
	sess := newOnlineSession("CP004", conn)
	state.Registry.Admit(sess)

	routeFrame(state, sess, []byte(`[2,"1","BootNotification",{"chargePointVendor":"Test Vendor","chargePointModel":"Test Model"}]`))

	env, err := ocpp.Decode(nextFrame(t, &conn.recordConn))
	require.NoError(t, err)
	require.Equal(t, ocpp.MsgTypeCallResult, env.MessageTypeId)
	require.Equal(t, "1", env.UniqueId)

	var response ocpp.BootNotificationResponse
	require.NoError(t, json.Unmarshal(env.Payload, &response))
	assert.Equal(t, ocpp.BootStatus_Accepted, response.Status)
	assert.Equal(t, 60, response.Interval)

	// quiet for just over 2x the negotiated interval
	future := time.Now().Add(121 * time.Second)
	helpers.SetMockNow(func() time.Time { return future })

	sweepSilentSessions(state, 2)

	_, found := state.Registry.Lookup("CP004")
	assert.False(t, found)
	assert.Equal(t, session.State_Closed, sess.State())

	select {
	case code := <-conn.closeCode:
		assert.Equal(t, websocket.CloseGoingAway, code)
	case <-time.After(time.Second):
		t.Fatal("no close frame sent")
	}
}

func TestSweepKeepsActiveSession(t *testing.T) {
	state := newTestServiceState()
	conn := newCloseConn()
	sess := newOnlineSession("CP001", conn)
	defer sess.Close(1000, "test done")
	state.Registry.Admit(sess)
	sess.SetHeartbeatInterval(60)

	sweepSilentSessions(state, 2)

	_, found := state.Registry.Lookup("CP001")
	require.True(t, found)
	assert.Equal(t, session.State_Online, sess.State())
}

func TestSweepIgnoresSessionsWithoutInterval(t *testing.T) {
	defer helpers.ResetMockNow()

	state := newTestServiceState()
	conn := newCloseConn()
	sess := newOnlineSession("CP001", conn)
	defer sess.Close(1000, "test done")
	state.Registry.Admit(sess)

	// no BootNotification round trip yet, so no interval armed
	future := time.Now().Add(time.Hour)
	helpers.SetMockNow(func() time.Time { return future })

	sweepSilentSessions(state, 2)

	_, found := state.Registry.Lookup("CP001")
	assert.True(t, found)
}
