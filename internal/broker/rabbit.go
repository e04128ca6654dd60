package broker

import (
	log "ev/ocpp/gateway/internal/logging"

	"github.com/streadway/amqp"
)

const rabbitExchangeName = "ocpp.events"

type RabbitPublisher struct {
	AmqpServerURL   string
	ChannelRabbitMQ *amqp.Channel
}

func (r *RabbitPublisher) Connect() error {
	log.Logger.Infof("Connect to RabbitMQ: %s", r.AmqpServerURL)

	connectRabbitMQ, err := amqp.Dial(r.AmqpServerURL)
	if err != nil {
		log.Logger.Errorf("Error connecting to RabbitMQ: %s %s", r.AmqpServerURL, error(err))
		return err
	}

	channelRabbitMQ, err := connectRabbitMQ.Channel()
	if err != nil {
		return err
	}

	// Topic exchange so consumers can bind per charge point or per event kind
	err = channelRabbitMQ.ExchangeDeclare(
		rabbitExchangeName, // name
		"topic",            // type
		false,              // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		log.Logger.Errorf("MQ[%s] Error in ExchangeDeclare: %s", rabbitExchangeName, err)
		return err
	}

	log.Logger.Debug("Connected to RabbitMQ")
	r.ChannelRabbitMQ = channelRabbitMQ
	return nil
}

func (r *RabbitPublisher) Close() error {
	log.Logger.Info("Close RabbitMQ: ", r.AmqpServerURL)
	return r.ChannelRabbitMQ.Close()
}

func (r *RabbitPublisher) Publish(topic string, json string) error {
	message := amqp.Publishing{
		ContentType: "application/json",
		Body:        []byte(json),
	}

	log.Logger.Debugf("MQ[%s] send: %s", topic, json)
	return r.ChannelRabbitMQ.Publish(
		rabbitExchangeName, // exchange
		topic,              // routing key
		false,              // mandatory
		false,              // immediate
		message,            // message to publish
	)
}
