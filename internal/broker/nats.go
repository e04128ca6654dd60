package broker

import (
	log "ev/ocpp/gateway/internal/logging"

	"github.com/nats-io/nats.go"
)

type NatsPublisher struct {
	ServerUrl string

	connection *nats.Conn
}

func (n *NatsPublisher) Connect() error {
	log.Logger.Infof("Connect to NATS: %s", n.ServerUrl)

	nc, err := nats.Connect(n.ServerUrl)
	if err != nil {
		log.Logger.Errorf("Error connecting to NATS: %s %s", n.ServerUrl, err.Error())
		return err
	}
	n.connection = nc
	return nil
}

func (n *NatsPublisher) Close() error {
	log.Logger.Info("Close NATS: ", n.ServerUrl)
	n.connection.Close()
	return nil
}

func (n *NatsPublisher) Publish(topic string, json string) error {
	log.Logger.Debugf("MQ[%s] send: %s", topic, json)
	return n.connection.Publish(topic, []byte(json))
}
