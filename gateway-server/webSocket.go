// Provides the HTTP WebSocket server: charge points attach on
// /ocpp/{identity}, monitoring clients on /user-cp/{identity}/{connector}.
package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ev/ocpp/gateway/internal/broker"
	"ev/ocpp/gateway/internal/session"
	telemetry "ev/ocpp/gateway/internal/telemetry"
	"ev/ocpp/gateway/internal/version"

	"github.com/gorilla/websocket"
)

const MAX_MSG_SIZE = 8192

var (
	// DefaultUpgrader specifies the parameters for upgrading an HTTP
	// connection to a WebSocket connection.
	DefaultUpgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Charge points are not browsers; there is no origin to check.
		CheckOrigin: func(r *http.Request) bool { return true },
	}
)

type Websocket struct {
	// Upgrader specifies the parameters for upgrading an incoming HTTP
	// connection to a WebSocket connection. If nil, DefaultUpgrader is used.
	Upgrader *websocket.Upgrader

	serviceState *ServiceState
}

func HttpHandler(serviceState *ServiceState) *Websocket {
	return &Websocket{serviceState: serviceState}
}

func (w *Websocket) upgrader() *websocket.Upgrader {
	if w.Upgrader != nil {
		return w.Upgrader
	}
	return DefaultUpgrader
}

// ServeHTTP dispatches on path shape. Requests that upgrade but fail
// admission are closed with a policy-violation frame so the client learns
// why instead of seeing a bare HTTP error.
func (w *Websocket) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	_log.Debug("Client connected to : ", req.Host, " path:", req.URL.Path, ", client: ", req.RemoteAddr)
	telemetry.TrackConnectionRequest(connectionUrl(w.serviceState, req.URL.Path), 1)

	urlPath := strings.TrimPrefix(req.URL.Path, w.serviceState.Config.Services.WsGateway.BasePath)

	if strings.HasPrefix(urlPath, chargePointPrefix) {
		w.serveChargePoint(rw, req, urlPath)
		return
	}
	if strings.HasPrefix(urlPath, subscriberPrefix) {
		w.serveSubscriber(rw, req, urlPath)
		return
	}

	w.upgradeAndReject(rw, req, websocket.ClosePolicyViolation, "unknown path")
}

// upgradeAndReject completes the handshake and immediately sends a close
// frame with the given code.
func (w *Websocket) upgradeAndReject(rw http.ResponseWriter, req *http.Request, code int, reason string) {
	conn, err := w.upgrader().Upgrade(rw, req, nil)
	if err != nil {
		_log.Errorf("%s : websocket: couldn't upgrade %s", req.RemoteAddr, err)
		return
	}
	defer conn.Close()

	_log.Warnf("%s : rejecting connection: %s", req.RemoteAddr, reason)
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(2*time.Second))
}

func (w *Websocket) serveChargePoint(rw http.ResponseWriter, req *http.Request, urlPath string) {
	state := w.serviceState
	remoteAddrStr := req.RemoteAddr

	identity, err := toChargePointIdentity(urlPath)
	if err != nil {
		w.upgradeAndReject(rw, req, websocket.ClosePolicyViolation, err.Error())
		return
	}

	requested := websocket.Subprotocols(req)
	ver, subprotocol, ok := version.Negotiate(requested, state.Modules)
	if !ok {
		_log.Warnf("%s : no mutually supported ocpp version in %v", remoteAddrStr, requested)
		w.upgradeAndReject(rw, req, websocket.CloseProtocolError, "unsupported ocpp version")
		return
	}

	upgradeHeader := http.Header{}
	if subprotocol != "" {
		upgradeHeader.Set("Sec-WebSocket-Protocol", subprotocol)
	}

	conn, err := w.upgrader().Upgrade(rw, req, upgradeHeader)
	if err != nil {
		_log.Errorf("%s : websocket: couldn't upgrade %s", remoteAddrStr, err)
		return
	}

	sess := session.New(identity, ver, conn, remoteAddrStr, state.Config.Services.WsGateway.SendQueueSize)
	sess.SetState(session.State_Authenticating)

	authResult := AuthConnection(req, identity, state)
	if !authResult.IsAuthenticated {
		sess.Close(websocket.ClosePolicyViolation, authResult.Error)
		return
	}

	if evicted := state.Registry.Admit(sess); evicted != nil {
		_log.Warnf("[ %s ] replaced by new connection from %s", identity, remoteAddrStr)
		telemetry.TrackSessionEvicted(identity, "session replaced")
		evicted.Close(websocket.ClosePolicyViolation, "session replaced")
	}
	sess.SetState(session.State_Online)
	_log.Infof("[ %s ] online, ocpp %s, client %s", identity, ver, remoteAddrStr)

	if !state.Config.Services.WsGateway.StandaloneMode {
		go notifyLifecycle(state, identity, broker.EventKind_Connected, remoteAddrStr)
	}

	w.readChargePoint(conn, sess)
}

// readChargePoint owns the inbound side until the connection dies. Every
// frame refreshes the heartbeat clock before routing.
func (w *Websocket) readChargePoint(conn *websocket.Conn, sess *session.Session) {
	state := w.serviceState
	conn.SetReadLimit(MAX_MSG_SIZE)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			_log.Warnf("[ %s ] client disconnected(read): %s", sess.Identity(), err)
			break
		}
		if msgType == websocket.BinaryMessage {
			_log.Warnf("[ %s ] binary frame received, closing", sess.Identity())
			sess.Close(websocket.CloseUnsupportedData, "binary frames not supported")
			break
		}

		sess.Touch()
		routeFrame(state, sess, msg)

		select {
		case <-sess.Done():
			// router or writer tore the session down mid-loop
		default:
			continue
		}
		break
	}

	w.dropChargePoint(sess)
}

func (w *Websocket) dropChargePoint(sess *session.Session) {
	state := w.serviceState
	removed := state.Registry.RemoveIfSame(sess)
	sess.Close(websocket.CloseNormalClosure, "connection closed")

	// A stale connection that was already replaced must not announce a
	// disconnect for an identity whose replacement is still online.
	if removed && !state.Config.Services.WsGateway.StandaloneMode {
		go notifyLifecycle(state, sess.Identity(), broker.EventKind_Disconnected, sess.RemoteAddr())
	}
	_log.Infof("[ %s ] session released", sess.Identity())
}

// notifyLifecycle publishes connected/disconnected events. Broker trouble is
// logged, never propagated to the charge-point connection.
func notifyLifecycle(state *ServiceState, identity string, eventKind string, remoteAddr string) {
	body := map[string]string{"remoteAddr": remoteAddr}
	if err := broker.PublishEvent(state.Broker, state.Context.HostName, identity, eventKind, body); err != nil {
		_log.Errorf("[ %s ] problem publishing %s event: %s", identity, eventKind, err.Error())
	}
}

func (w *Websocket) serveSubscriber(rw http.ResponseWriter, req *http.Request, urlPath string) {
	state := w.serviceState
	remoteAddrStr := req.RemoteAddr

	identity, connectorId, err := toSubscriberTarget(urlPath)
	if err != nil {
		w.upgradeAndReject(rw, req, websocket.ClosePolicyViolation, err.Error())
		return
	}

	conn, err := w.upgrader().Upgrade(rw, req, nil)
	if err != nil {
		_log.Errorf("%s : websocket: couldn't upgrade %s", remoteAddrStr, err)
		return
	}

	sub := session.NewSubscriber(identity, connectorId, conn, remoteAddrStr)
	state.Subscribers.Subscribe(identity, connectorId, sub)
	_log.Infof("[ %s ] subscriber attached for connector %d (%s)", identity, connectorId, remoteAddrStr)

	// Subscribers are receive-only; inbound text is drained and dropped so
	// the close handshake still works.
	conn.SetReadLimit(MAX_MSG_SIZE)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	state.Subscribers.Unsubscribe(identity, connectorId, sub)
	sub.Close(websocket.CloseNormalClosure, "connection closed")
	_log.Infof("[ %s ] subscriber released for connector %d (%s)", identity, connectorId, remoteAddrStr)
}

func connectionUrl(state *ServiceState, path string) string {
	return fmt.Sprintf("%s:%d%s", state.Context.HostName, state.Config.Services.WsGateway.ListenPort, path)
}
