// Application Insights telemetry for gateway events
package telemetry

import (
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	log "github.com/sirupsen/logrus"
	logrus_appinsights "github.com/steve-white/logrus-appinsights"
)

var client appinsights.TelemetryClient

// NewTelemetryClient returns an initialised logrus hook for Application
// Insights, or nil when no instrumentation key is configured.
func NewTelemetryClient(instrumentationKey string, roleName string) (*logrus_appinsights.AppInsightsHook, error) {
	if len(instrumentationKey) == 0 {
		return nil, nil
	}

	hook, err := logrus_appinsights.New(roleName, logrus_appinsights.Config{
		InstrumentationKey: instrumentationKey,
		MaxBatchSize:       10,
		MaxBatchInterval:   time.Second * 5,
	})
	if err != nil || hook == nil {
		return nil, err
	}

	hook.SetLevels([]log.Level{
		log.PanicLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
		log.DebugLevel,
	})
	client = hook.Client
	return hook, nil
}

func TrackConnectionRequest(url string, timeMs int) {
	if client == nil {
		return
	}
	var duration time.Duration = time.Duration(timeMs) * time.Millisecond
	client.TrackRequest("GET", url, duration, "101")
}

func TrackAuthenticationEvent(chargePointId string, clientAddress string, responseCode string) {
	if client == nil {
		return
	}

	event := appinsights.NewEventTelemetry("AuthenticationEvent")
	event.Properties["chargePointId"] = chargePointId
	event.Properties["clientAddress"] = clientAddress
	event.Properties["responseCode"] = responseCode
	client.Track(event)
}

func TrackOcppRequest(chargePointId string, clientAddress string, ocppMsgId string, action string, responseCode string, duration time.Duration) {
	if client == nil {
		return
	}

	request := appinsights.NewRequestTelemetry("WS", action, duration, responseCode)
	request.Source = clientAddress
	request.Properties["ocppMsgId"] = ocppMsgId
	request.Properties["chargePointId"] = chargePointId
	client.Track(request)
}

func TrackSessionEvicted(chargePointId string, reason string) {
	if client == nil {
		return
	}
	event := appinsights.NewEventTelemetry("SessionEvicted")
	event.Properties["chargePointId"] = chargePointId
	event.Properties["reason"] = reason
	client.Track(event)
}

func TrackTraceWarning(message string) {
	if client == nil {
		return
	}
	trace := appinsights.NewTraceTelemetry(message, appinsights.Warning)
	client.Track(trace)
}

func TrackTraceError(message string) {
	if client == nil {
		return
	}
	trace := appinsights.NewTraceTelemetry(message, appinsights.Error)
	client.Track(trace)
}
