// Downstream event publication. The gateway treats the broker as
// fire-and-forget: a publish failure is logged and never surfaced to the
// charge point.
package broker

import (
	"encoding/json"
	"time"

	conf "ev/ocpp/gateway/internal/config"
	"ev/ocpp/gateway/internal/helpers"
	log "ev/ocpp/gateway/internal/logging"
)

// Publisher is the broker-facing capability the router needs. Backends are
// selected once at startup by mq.type.
type Publisher interface {
	Connect() error
	Close() error
	Publish(topic string, json string) error
}

const (
	Publish_MaxRetries  = 3
	Publish_RetryWaitMs = 2000
)

// Event kinds published by the router.
const (
	EventKind_Boot         = "boot"
	EventKind_Status       = "status"
	EventKind_Message      = "message"
	EventKind_Connected    = "connected"
	EventKind_Disconnected = "disconnected"
)

// Event is the envelope wrapped around every published payload.
type Event struct {
	ServerNode    string `json:"serverNode"`
	ChargePointId string `json:"chargePointId"`
	EventKind     string `json:"eventKind"`
	QueuedTime    string `json:"queuedTime"`
	Body          any    `json:"body"`
}

// Topic derives the broker topic for an event: {identity}.{eventKind}.
func Topic(identity string, eventKind string) string {
	return identity + "." + eventKind
}

func Setup(config conf.MqConfig) Publisher {
	log.Logger.Info("MqType = " + config.Type)
	switch config.Type {
	case "mangos_mq":
		return &MangosPublisher{ListenUrl: config.MangosMq.GatewayListenUrl}
	case "rabbit_mq":
		return &RabbitPublisher{AmqpServerURL: config.RabbitMq.ServerUrl}
	case "redis_mq":
		return &RedisPublisher{HostIp: config.RedisMq.HostPort, DbId: config.RedisMq.DbId, Password: config.RedisMq.Password}
	case "nats":
		return &NatsPublisher{ServerUrl: config.NatsMq.ServerUrl}
	case "", "disabled":
		return &DisabledPublisher{}
	default:
		log.Logger.Errorf("Invalid mqtype: %s, broker publication disabled", config.Type)
		return &DisabledPublisher{}
	}
}

// PublishEvent wraps body in the event envelope and publishes it with retry.
func PublishEvent(p Publisher, hostName string, identity string, eventKind string, body any) error {
	event := Event{
		ServerNode:    hostName,
		ChargePointId: identity,
		EventKind:     eventKind,
		QueuedTime:    helpers.GenerateDateNowMs(),
		Body:          body,
	}
	jsonBy, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return PublishRetry(p, Topic(identity, eventKind), string(jsonBy))
}

// PublishRetry retries transient publish failures before giving up.
func PublishRetry(p Publisher, topic string, json string) error {
	var pubErr error
	retry := 0

	for {
		pubErr = p.Publish(topic, json)
		if pubErr == nil {
			return nil
		}
		if retry == Publish_MaxRetries {
			log.Logger.Errorf("MQ[%s] error, failed to send message after %d retries. Error: %s, message: %s", topic, Publish_MaxRetries, pubErr.Error(), json)
			return pubErr
		}
		retry++

		log.Logger.Warnf("MQ[%s] problem, wait: %dms, retry %d/%d, error: %s", topic, Publish_RetryWaitMs, retry, Publish_MaxRetries, pubErr.Error())
		time.Sleep(Publish_RetryWaitMs * time.Millisecond)
	}
}

// DisabledPublisher drops every event; used in standalone mode.
type DisabledPublisher struct{}

func (d *DisabledPublisher) Connect() error { return nil }
func (d *DisabledPublisher) Close() error   { return nil }

func (d *DisabledPublisher) Publish(topic string, json string) error {
	log.Logger.Debugf("MQ disabled, dropped event on topic %s", topic)
	return nil
}
