// REST command API: issues gateway-to-charge-point calls and exposes
// connection diagnostics.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	conf "ev/ocpp/gateway/internal/config"
	httplistener "ev/ocpp/gateway/internal/http"
	"ev/ocpp/gateway/internal/ocpp"
	"ev/ocpp/gateway/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type ActionResponse struct {
	Status      string          `json:"status"`
	UniqueId    string          `json:"uniqueId,omitempty"`
	MessageBody json.RawMessage `json:"messageBody,omitempty"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	ErrorText   string          `json:"error,omitempty"`
}

type ConnectionInfo struct {
	NetworkId       string `json:"networkId"`
	OcppVersion     string `json:"ocppVersion"`
	RemoteAddr      string `json:"remoteAddr"`
	State           string `json:"state"`
	PendingCalls    int    `json:"pendingCalls"`
	LastHeartbeatAt string `json:"lastHeartbeatAt"`
}

func createSendActionHandler(serviceState *ServiceState, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action_SendToChargePoint(w, r, serviceState, action)
	}
}

func setupRestApi(serviceState *ServiceState, config conf.HttpConfig) error {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	router.Route("/", func(r chi.Router) {
		r.Use(middleware.BasicAuth("gateway-server", map[string]string{
			config.HttpUser: config.HttpPassword,
		}))

		r.Route("/actions", func(r chi.Router) {
			actionRoutes := map[string]string{
				"remotestarttransaction": ocpp.Action_RemoteStartTransaction,
				"remotestoptransaction":  ocpp.Action_RemoteStopTransaction,
				"reset":                  ocpp.Action_Reset,
				"unlockconnector":        ocpp.Action_UnlockConnector,
				"getconfiguration":       ocpp.Action_GetConfiguration,
				"changeconfiguration":    ocpp.Action_ChangeConfiguration,
				"changeavailability":     ocpp.Action_ChangeAvailability,
				"triggermessage":         ocpp.Action_TriggerMessage,
				"getdiagnostics":         ocpp.Action_GetDiagnostics,
				"datatransfer":           ocpp.Action_DataTransfer,
			}
			for route, action := range actionRoutes {
				r.Post(fmt.Sprintf("/%s/{networkid}", route), createSendActionHandler(serviceState, action))
			}
		})

		r.Get("/connections", func(w http.ResponseWriter, r *http.Request) {
			action_ListConnections(w, r, serviceState)
		})
		r.Get("/connections/{networkid}/frames", func(w http.ResponseWriter, r *http.Request) {
			action_ListFrames(w, r, serviceState)
		})
	})

	_log.Info("Starting REST API Server")
	listenNetPort := fmt.Sprintf("%s:%d", config.ListenAddress, config.ListenPort)
	_log.Info("REST API listening on: ", listenNetPort)

	_ioCloser, err := httplistener.ListenAndServeWithClose(listenNetPort, router)
	if err != nil {
		_log.Error("Failed to start REST API server")
		return err
	}
	serviceState.ApiCloser = &_ioCloser

	_log.Info("REST server started")
	return nil
}

// action_SendToChargePoint relays the request body as an OCPP call and renders
// the correlated response. 503 when the charge point is offline, 504 when the
// call timed out.
func action_SendToChargePoint(w http.ResponseWriter, r *http.Request, serviceState *ServiceState, action string) {
	_log.Info("Path: " + r.URL.Path)
	networkId := chi.URLParam(r, "networkid")

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r.Body); err != nil {
		_log.Errorf("Error streaming request body: %s", err.Error())
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, &ActionResponse{Status: "Error", ErrorText: "unreadable request body"})
		return
	}

	payload := json.RawMessage(buf.Bytes())
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("{}")
	}

	response, err := IssueCall(serviceState, networkId, action, payload)
	if err == ErrServiceUnavailable {
		_log.Warnf("[ %s ] not connected, cannot send %s", networkId, action)
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, &ActionResponse{Status: "Offline", ErrorText: "charge point not connected"})
		return
	}
	if err != nil {
		var validationErr *version.ValidationError
		if errors.As(err, &validationErr) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, &ActionResponse{Status: "Error", ErrorText: err.Error()})
			return
		}
		_log.Errorf("[ %s ] error issuing %s: %s", networkId, action, err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, &ActionResponse{Status: "Error", ErrorText: err.Error()})
		return
	}

	if response.MessageTypeId == ocpp.MsgTypeCallError {
		if response.ErrorCode == ocpp.ErrorCode_Timeout {
			_log.Errorf("[ %s ] timed out waiting for %s response", networkId, action)
			w.WriteHeader(http.StatusGatewayTimeout)
		} else {
			w.WriteHeader(http.StatusBadGateway)
		}
		render.JSON(w, r, &ActionResponse{
			Status:    "Error",
			UniqueId:  response.UniqueId,
			ErrorCode: response.ErrorCode,
			ErrorText: response.ErrorDescription,
		})
		return
	}

	_log.Infof("[ %s ] %s response: %s", networkId, action, string(response.Payload))
	render.JSON(w, r, &ActionResponse{Status: "OK", UniqueId: response.UniqueId, MessageBody: response.Payload})
}

func action_ListConnections(w http.ResponseWriter, r *http.Request, serviceState *ServiceState) {
	sessions := serviceState.Registry.ListAll()

	connections := make([]ConnectionInfo, 0, len(sessions))
	for _, sess := range sessions {
		connections = append(connections, ConnectionInfo{
			NetworkId:       sess.Identity(),
			OcppVersion:     string(sess.Version()),
			RemoteAddr:      sess.RemoteAddr(),
			State:           sess.State().String(),
			PendingCalls:    sess.PendingCount(),
			LastHeartbeatAt: sess.LastHeartbeatAt().UTC().Format(time.RFC3339),
		})
	}
	render.JSON(w, r, connections)
}

func action_ListFrames(w http.ResponseWriter, r *http.Request, serviceState *ServiceState) {
	networkId := chi.URLParam(r, "networkid")

	if serviceState.Archiver == nil {
		w.WriteHeader(http.StatusNotImplemented)
		render.JSON(w, r, &ActionResponse{Status: "Error", ErrorText: "frame archive not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	frames, err := serviceState.Archiver.ListRecent(ctx, networkId)
	if err != nil {
		_log.Errorf("[ %s ] error listing archived frames: %s", networkId, err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, &ActionResponse{Status: "Error", ErrorText: err.Error()})
		return
	}
	render.JSON(w, r, frames)
}
