package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ev/ocpp/gateway/internal/archive"
	"ev/ocpp/gateway/internal/broker"
	redisManage "ev/ocpp/gateway/internal/cache"
	conf "ev/ocpp/gateway/internal/config"
	helpers "ev/ocpp/gateway/internal/helpers"
	httplistener "ev/ocpp/gateway/internal/http"
	"ev/ocpp/gateway/internal/logging"
	"ev/ocpp/gateway/internal/registry"
	"ev/ocpp/gateway/internal/subscribers"
	"ev/ocpp/gateway/internal/telemetry"
	"ev/ocpp/gateway/internal/version"

	"github.com/go-redis/redis"
)

var (
	// Set by build LDFLAGS
	Version        = "dev"
	CommitHash     = "n/a"
	BuildTimestamp = "n/a"

	// Globals
	_exitNotification chan T
	_log              = logging.Logger
	_serviceState     *ServiceState
)

type T = struct{}

func initialise() *ServiceState {
	config := conf.ReadConfig()
	serviceContext := getServiceContext()

	telemetryHook, err := telemetry.NewTelemetryClient(config.Logging.AppInsightsInstrumentationKey, serviceContext.HostName)
	if err != nil {
		return &ServiceState{LastError: err}
	}

	// Setup auth cache
	var cacheClient *redis.Client
	cacheConfig := config.Services.WsGateway.Cache
	if len(cacheConfig.HostPort) > 0 {
		cacheClient, err = redisManage.ConnectRedis(cacheConfig.HostPort, cacheConfig.Password, cacheConfig.DbId)
		if err != nil {
			return &ServiceState{LastError: err}
		}
	} else {
		_log.Warn("Not connecting to redis auth cache")
	}

	publisher := broker.Setup(config.Mq)
	if !config.Services.WsGateway.StandaloneMode {
		if err := publisher.Connect(); err != nil {
			return &ServiceState{LastError: err}
		}
	}

	var archiver *archive.FrameArchiver
	archiveConfig := config.Services.Archive
	if archiveConfig.StoreFrames && len(archiveConfig.StorageAccountName) > 0 {
		archiver, err = archive.NewFrameArchiver(archiveConfig.StorageAccountName, archiveConfig.StorageAccountKey)
		if err != nil {
			return &ServiceState{LastError: err}
		}
	} else {
		_log.Info("Frame archive disabled")
	}

	return &ServiceState{
		Cache:           cacheClient,
		Config:          config,
		Broker:          publisher,
		Registry:        registry.New(),
		Subscribers:     subscribers.New(),
		Modules:         version.Modules(config.Services.WsGateway.Versions),
		Archiver:        archiver,
		Context:         serviceContext,
		AppInsightsHook: telemetryHook,
	}
}

func getServiceContext() ServiceContext {
	return ServiceContext{HostName: helpers.GetHostName()}
}

func main() {

	sigchnl := make(chan os.Signal, 1)
	signal.Notify(sigchnl, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	_exitNotification = make(chan T)

	go func() {
		sig := <-sigchnl
		multiSignalHandler(sig)
		_log.Debug("Caught close...")
		<-_exitNotification // send notification to unblock and exit
	}()

	_log = logging.LoggingSetup(true, "gateway-server") // start with debug enabled until overridden in config later

	_log.Infof("--- OCPP WebSocket Gateway - v%s ---", Version)

	_serviceState = initialise()
	if _serviceState.LastError != nil {
		_log.Errorf("Error in initialisation: %s", _serviceState.LastError.Error())
		os.Exit(1)
	}
	config := _serviceState.Config.Services.WsGateway

	_log = logging.LoggingSetup(config.Debug, "gateway-server")
	if len(_serviceState.Config.Logging.AppInsightsInstrumentationKey) > 0 {
		_log.AddHook(_serviceState.AppInsightsHook)
	}

	_log.Debugf("standalone_mode: %t", config.StandaloneMode)
	_log.Debugf("enable_auth: %t", config.EnableAuth)
	_log.Debugf("supported_versions: %v", config.Versions)

	monitorStop := make(chan struct{})
	go runHeartbeatMonitor(_serviceState, monitorStop)

	if err := setupRestApi(_serviceState, _serviceState.Config.Services.CommandApi.HttpConfig); err != nil {
		_log.Errorf("Error starting command API: %s", err.Error())
		os.Exit(1)
	}

	listenNetPort := fmt.Sprintf("%s:%d", config.ListenAddress, config.ListenPort)
	_log.Info("OCPP listening on: ", listenNetPort)

	ioCloser, err := httplistener.ListenAndServeWithClose(listenNetPort, HttpHandler(_serviceState))
	if err != nil {
		_log.Fatalln(err)
		os.Exit(1)
	}
	_serviceState.IoCloser = &ioCloser

	_log.Debug("block...")
	_exitNotification <- struct{}{} // block until exit notification received
	_log.Debug("Service closing...")

	close(monitorStop)
	dispose()

	os.Exit(0)
}

func dispose() {
	if _serviceState.IoCloser != nil {
		_log.Debug("Close websocket listener")
		(*_serviceState.IoCloser).Close()
	}
	if _serviceState.ApiCloser != nil {
		_log.Debug("Close command API listener")
		(*_serviceState.ApiCloser).Close()
	}
	if _serviceState.Broker != nil {
		_log.Debug("Close broker")
		_serviceState.Broker.Close()
	}
	if _serviceState.Cache != nil {
		_log.Debug("Close cache")
		_serviceState.Cache.Close()
	}
}

func multiSignalHandler(signal os.Signal) {

	switch signal {
	case syscall.SIGHUP:
		_log.Debug("Signal: ", signal.String())
	case syscall.SIGINT:
		_log.Debug("Signal: ", signal.String())
	case syscall.SIGTERM:
		_log.Debug("Signal: ", signal.String())
	case syscall.SIGQUIT:
		_log.Debug("Signal: ", signal.String())
	default:
		_log.Warnf("Unhandled/unknown signal %s", signal.String())
	}
}
