// Frame routing: dispatches inbound OCPP envelopes and issues gateway
// originated calls towards charge points.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"ev/ocpp/gateway/internal/broker"
	"ev/ocpp/gateway/internal/helpers"
	"ev/ocpp/gateway/internal/ocpp"
	"ev/ocpp/gateway/internal/session"
	"ev/ocpp/gateway/internal/subscribers"
	telemetry "ev/ocpp/gateway/internal/telemetry"
	"ev/ocpp/gateway/internal/version"
)

var ErrServiceUnavailable = errors.New("charge point not connected")

const (
	Direction_In  = "in"
	Direction_Out = "out"
)

// routeFrame handles one inbound text frame from a charge point. A malformed
// frame earns a CallError with the synthetic id; the connection stays up.
func routeFrame(state *ServiceState, sess *session.Session, frame []byte) {
	startedAt := time.Now()
	_log.Debug("RecvClient->: ", string(frame))

	env, err := ocpp.Decode(frame)
	if err != nil {
		_log.Warnf("[ %s ] unable to parse ocpp envelope: %s, for message: %s", sess.Identity(), err, string(frame))
		reply := ocpp.CallError(ocpp.SyntheticUniqueId, ocpp.ErrorCode_FormationViolation, "malformed ocpp frame", nil)
		if sendErr := sess.SendEnvelope(reply); sendErr != nil {
			_log.Warnf("[ %s ] unable to send error reply: %s", sess.Identity(), sendErr.Error())
		}
		return
	}

	archiveFrame(state, sess.Identity(), Direction_In, env.Action, frame)

	switch env.MessageTypeId {
	case ocpp.MsgTypeCall:
		handleCall(state, sess, env)
		telemetry.TrackOcppRequest(sess.Identity(), sess.RemoteAddr(), env.UniqueId, env.Action, "200", time.Since(startedAt))

	case ocpp.MsgTypeCallResult, ocpp.MsgTypeCallError:
		sess.Resolve(env)

	}
}

// handleCall validates the action's payload shape, answers the actions the
// gateway interprets itself and forwards the rest downstream as opaque
// events. Every CALL gets exactly one reply carrying the same uniqueId.
func handleCall(state *ServiceState, sess *session.Session, env ocpp.Envelope) {
	module := state.Modules[sess.Version()]
	if module != nil {
		if err := module.Validate(env.Action, env.Payload, version.Direction_FromChargePoint); err != nil {
			_log.Warnf("[ %s ] %s failed validation: %s", sess.Identity(), env.Action, err.Error())
			reply := ocpp.CallError(env.UniqueId, ocpp.ErrorCode_FormationViolation, err.Error(), nil)
			sendReply(state, sess, reply)
			return
		}
	}

	switch env.Action {
	case ocpp.Action_BootNotification:
		handleBootNotification(state, sess, env)
	case ocpp.Action_Heartbeat:
		handleHeartbeat(state, sess, env)
	case ocpp.Action_StatusNotification:
		handleStatusNotification(state, sess, env)
	case ocpp.Action_GetConfiguration:
		handleGetConfiguration(state, sess, env)
	default:
		// opaque pass-through: publish downstream, ack to the charge point
		publishAsync(state, sess.Identity(), broker.EventKind_Message, map[string]any{
			"action":  env.Action,
			"payload": env.Payload,
		})
		sendReply(state, sess, ocpp.Ack(env.UniqueId))
	}
}

func handleBootNotification(state *ServiceState, sess *session.Session, env ocpp.Envelope) {
	_log.Debugf("[ %s ] received BootNotification", sess.Identity())

	interval := state.Config.Services.WsGateway.HeartbeatIntervalSecs
	sess.SetHeartbeatInterval(interval)

	var boot ocpp.BootNotification
	if err := json.Unmarshal(env.Payload, &boot); err == nil {
		publishAsync(state, sess.Identity(), broker.EventKind_Boot, boot)
	}

	response := ocpp.BootNotificationResponse{
		Status:      ocpp.BootStatus_Accepted,
		CurrentTime: helpers.GenerateDateNow(),
		Interval:    interval,
	}
	sendReply(state, sess, ocpp.CallResult(env.UniqueId, ocpp.MarshalPayload(&response)))
}

func handleHeartbeat(state *ServiceState, sess *session.Session, env ocpp.Envelope) {
	response := ocpp.HeartbeatResponse{CurrentTime: helpers.GenerateDateNow()}
	sendReply(state, sess, ocpp.CallResult(env.UniqueId, ocpp.MarshalPayload(&response)))
}

func handleStatusNotification(state *ServiceState, sess *session.Session, env ocpp.Envelope) {
	connectorId, status, errorCode, ok := deriveConnectorStatus(env.Payload)
	if ok {
		event := subscribers.NewConnectorStatusEvent(sess.Identity(), connectorId, status, errorCode)
		delivered := state.Subscribers.Publish(sess.Identity(), connectorId, event)
		_log.Debugf("[ %s ] status %s on connector %d delivered to %d subscribers", sess.Identity(), status, connectorId, delivered)
		publishAsync(state, sess.Identity(), broker.EventKind_Status, event)
	} else {
		_log.Warnf("[ %s ] StatusNotification without a recognisable connector status: %s", sess.Identity(), string(env.Payload))
	}

	sendReply(state, sess, ocpp.Ack(env.UniqueId))
}

// handleGetConfiguration answers with the keys the gateway itself owns.
func handleGetConfiguration(state *ServiceState, sess *session.Session, env ocpp.Envelope) {
	known := map[string]string{
		"HeartbeatInterval": strconv.Itoa(state.Config.Services.WsGateway.HeartbeatIntervalSecs),
		"SupportedVersions": version.ToSubprotocol(sess.Version()),
	}

	var request ocpp.GetConfiguration
	json.Unmarshal(env.Payload, &request)

	response := ocpp.GetConfigurationResponse{}
	if len(request.Key) == 0 {
		for k, v := range known {
			response.ConfigurationKey = append(response.ConfigurationKey, ocpp.KeyValue{Key: k, Readonly: true, Value: v})
		}
	} else {
		for _, k := range request.Key {
			if v, ok := known[k]; ok {
				response.ConfigurationKey = append(response.ConfigurationKey, ocpp.KeyValue{Key: k, Readonly: true, Value: v})
			} else {
				response.UnknownKey = append(response.UnknownKey, k)
			}
		}
	}

	sendReply(state, sess, ocpp.CallResult(env.UniqueId, ocpp.MarshalPayload(&response)))
}

// deriveConnectorStatus normalises both payload shapes: 1.6 carries
// status/errorCode, 2.0.1 carries connectorStatus/evseId.
func deriveConnectorStatus(payload json.RawMessage) (int, string, string, bool) {
	var probe struct {
		ConnectorId     int    `json:"connectorId"`
		Status          string `json:"status"`
		ErrorCode       string `json:"errorCode"`
		ConnectorStatus string `json:"connectorStatus"`
		EvseId          int    `json:"evseId"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return 0, "", "", false
	}

	if probe.ConnectorStatus != "" {
		return probe.ConnectorId, probe.ConnectorStatus, "", true
	}
	if probe.Status != "" {
		return probe.ConnectorId, probe.Status, probe.ErrorCode, true
	}
	return 0, "", "", false
}

// IssueCall sends a gateway originated CALL to a connected charge point and
// waits for the correlated response. Timeouts and cancellations come back as
// synthetic CallError envelopes, not errors.
func IssueCall(state *ServiceState, identity string, action string, payload json.RawMessage) (ocpp.Envelope, error) {
	sess, ok := state.Registry.Lookup(identity)
	if !ok {
		return ocpp.Envelope{}, ErrServiceUnavailable
	}

	module := state.Modules[sess.Version()]
	if module != nil {
		if err := module.Validate(action, payload, version.Direction_ToChargePoint); err != nil {
			return ocpp.Envelope{}, err
		}
	}

	timeout := time.Duration(state.Config.Services.WsGateway.CallTimeoutSecs) * time.Second
	response, err := sess.Call(action, payload, timeout)
	if err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			return ocpp.Envelope{}, ErrServiceUnavailable
		}
		return ocpp.Envelope{}, err
	}
	return response, nil
}

func sendReply(state *ServiceState, sess *session.Session, env ocpp.Envelope) {
	frame, err := env.Encode()
	if err != nil {
		_log.Errorf("[ %s ] unable to encode reply: %s", sess.Identity(), err.Error())
		return
	}

	_log.Debug("<-SendClient: ", string(frame))
	if err := sess.Send(frame); err != nil {
		_log.Warnf("[ %s ] unable to send reply: %s", sess.Identity(), err.Error())
		return
	}
	archiveFrame(state, sess.Identity(), Direction_Out, env.Action, frame)
}

// publishAsync hands the event to the broker off the read loop; failures are
// logged and never affect the charge-point connection.
func publishAsync(state *ServiceState, identity string, eventKind string, body any) {
	if state.Config.Services.WsGateway.StandaloneMode {
		return
	}
	go func() {
		if err := broker.PublishEvent(state.Broker, state.Context.HostName, identity, eventKind, body); err != nil {
			_log.Errorf("[ %s ] problem publishing %s event: %s", identity, eventKind, err.Error())
		}
	}()
}

// archiveFrame stores the frame when archival is on; best effort.
func archiveFrame(state *ServiceState, identity string, direction string, action string, frame []byte) {
	if state.Archiver == nil || !state.Config.Services.Archive.StoreFrames {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := state.Archiver.Store(ctx, identity, direction, action, frame); err != nil {
			_log.Warnf("[ %s ] unable to archive frame: %s", identity, err.Error())
		}
	}()
}
