// Periodic sweep that evicts charge points gone silent past their grace
// window.
package main

import (
	"time"

	"ev/ocpp/gateway/internal/broker"
	"ev/ocpp/gateway/internal/helpers"
	telemetry "ev/ocpp/gateway/internal/telemetry"

	"github.com/gorilla/websocket"
)

// runHeartbeatMonitor ticks until stop closes. Each pass walks the registry
// and closes every session whose peer has been quiet longer than
// multiplier x negotiated interval.
func runHeartbeatMonitor(state *ServiceState, stop <-chan struct{}) {
	sweepInterval := time.Duration(state.Config.Services.WsGateway.HeartbeatSweepSecs) * time.Second
	multiplier := state.Config.Services.WsGateway.HeartbeatMultiplier

	_log.Infof("heartbeat monitor started, sweep every %s, grace %dx interval", sweepInterval, multiplier)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			_log.Info("heartbeat monitor stopped")
			return
		case <-ticker.C:
			sweepSilentSessions(state, multiplier)
		}
	}
}

func sweepSilentSessions(state *ServiceState, multiplier int) {
	now := helpers.Now()
	for _, sess := range state.Registry.ListAll() {
		if !sess.Silent(now, multiplier) {
			continue
		}

		_log.Warnf("[ %s ] no heartbeat since %s, evicting", sess.Identity(), sess.LastHeartbeatAt().Format(time.RFC3339))
		telemetry.TrackSessionEvicted(sess.Identity(), "heartbeat timeout")

		removed := state.Registry.RemoveIfSame(sess)
		sess.Close(websocket.CloseGoingAway, "heartbeat timeout")

		if removed && !state.Config.Services.WsGateway.StandaloneMode {
			go notifyLifecycle(state, sess.Identity(), broker.EventKind_Disconnected, sess.RemoteAddr())
		}
	}
}
