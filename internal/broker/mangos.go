package broker

import (
	"fmt"

	log "ev/ocpp/gateway/internal/logging"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// register transports
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

type MangosPublisher struct {
	ListenUrl string

	sockPub mangos.Socket
}

func (m *MangosPublisher) Connect() error {
	log.Logger.Info(fmt.Sprintf("Listening on MQ URL for subscribers: %s", m.ListenUrl))

	pubSock, err := pub.NewSocket()
	if err != nil {
		log.Logger.Errorf("can't get new pub socket: %s", err)
		return err
	}

	if err = pubSock.Listen(m.ListenUrl); err != nil {
		log.Logger.Errorf("can't listen on pub socket: %s", err.Error())
		return err
	}
	m.sockPub = pubSock
	return nil
}

func (m *MangosPublisher) Close() error {
	log.Logger.Info("Close mangos_mq")
	if m.sockPub != nil {
		return m.sockPub.Close()
	}
	return nil
}

// Publish prefixes the topic so subscribers can filter with SUB options.
func (m *MangosPublisher) Publish(topic string, json string) error {
	frame := fmt.Sprintf("%s|%s", topic, json)
	log.Logger.Debugf("MQ[%s] send: %s", topic, json)
	return m.sockPub.Send([]byte(frame))
}
