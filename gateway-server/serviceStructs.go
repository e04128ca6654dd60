package main

import (
	"io"

	"ev/ocpp/gateway/internal/archive"
	"ev/ocpp/gateway/internal/broker"
	conf "ev/ocpp/gateway/internal/config"
	"ev/ocpp/gateway/internal/registry"
	"ev/ocpp/gateway/internal/subscribers"
	"ev/ocpp/gateway/internal/version"

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
)

type ServiceState struct {
	Config          *conf.Configuration
	IoCloser        *io.Closer
	ApiCloser       *io.Closer
	Cache           *redis.Client
	Broker          broker.Publisher
	Registry        *registry.ConnectionRegistry
	Subscribers     *subscribers.SubscriberRegistry
	Modules         map[version.OcppVersion]version.Module
	Archiver        *archive.FrameArchiver
	LastError       error
	Context         ServiceContext
	AppInsightsHook logrus.Hook
}

type ServiceContext struct {
	HostName string
}
