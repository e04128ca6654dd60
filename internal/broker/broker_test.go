package broker

import (
	"encoding/json"
	"errors"
	"testing"

	conf "ev/ocpp/gateway/internal/config"
	logging "ev/ocpp/gateway/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.LoggingSetup(false, "broker-test")
	m.Run()
}

type recordingPublisher struct {
	topics   []string
	payloads []string
	failures int
}

func (r *recordingPublisher) Connect() error { return nil }
func (r *recordingPublisher) Close() error   { return nil }

func (r *recordingPublisher) Publish(topic string, json string) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("transient")
	}
	r.topics = append(r.topics, topic)
	r.payloads = append(r.payloads, json)
	return nil
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "CP004.status", Topic("CP004", EventKind_Status))
	assert.Equal(t, "CP004.boot", Topic("CP004", EventKind_Boot))
}

func TestPublishEventEnvelope(t *testing.T) {
	p := &recordingPublisher{}

	err := PublishEvent(p, "gw-node-1", "CP004", EventKind_Status, map[string]any{"connectorId": 1})

	require.NoError(t, err)
	require.Len(t, p.topics, 1)
	assert.Equal(t, "CP004.status", p.topics[0])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(p.payloads[0]), &event))
	assert.Equal(t, "gw-node-1", event.ServerNode)
	assert.Equal(t, "CP004", event.ChargePointId)
	assert.Equal(t, EventKind_Status, event.EventKind)
	assert.NotEmpty(t, event.QueuedTime)
}

func TestSetupSelectsBackend(t *testing.T) {
	var config conf.MqConfig

	config.Type = "redis_mq"
	assert.IsType(t, &RedisPublisher{}, Setup(config))

	config.Type = "rabbit_mq"
	assert.IsType(t, &RabbitPublisher{}, Setup(config))

	config.Type = "mangos_mq"
	assert.IsType(t, &MangosPublisher{}, Setup(config))

	config.Type = "nats"
	assert.IsType(t, &NatsPublisher{}, Setup(config))

	config.Type = ""
	assert.IsType(t, &DisabledPublisher{}, Setup(config))
}

func TestDisabledPublisherDropsSilently(t *testing.T) {
	p := &DisabledPublisher{}

	assert.NoError(t, p.Connect())
	assert.NoError(t, p.Publish("CP004.status", "{}"))
	assert.NoError(t, p.Close())
}
