package broker

import (
	"fmt"

	log "ev/ocpp/gateway/internal/logging"

	"github.com/go-redis/redis"
)

type RedisPublisher struct {
	HostIp   string
	Password string
	DbId     int

	clientRedis *redis.Client
}

func (r *RedisPublisher) Connect() error {
	log.Logger.Info(fmt.Sprintf("Connecting to redis MQ: %s DbId: %d", r.HostIp, r.DbId))

	client := redis.NewClient(&redis.Options{
		Addr:     r.HostIp,
		Password: r.Password,
		DB:       r.DbId,
	})

	pong, err := client.Ping().Result()
	if err != nil {
		log.Logger.Error("Error in redis connection: ", err.Error())
		return err
	}
	log.Logger.Info("Connected to redis: ", pong)
	r.clientRedis = client
	return nil
}

func (r *RedisPublisher) Close() error {
	log.Logger.Info("Close redis MQ: ", r.HostIp)
	return r.clientRedis.Close()
}

func (r *RedisPublisher) Publish(topic string, json string) error {
	log.Logger.Debugf("MQ[%s] send: %s", topic, json)
	return r.clientRedis.Publish(topic, json).Err()
}
