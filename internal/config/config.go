package config

import (
	"fmt"
	"os"
	"path/filepath"

	log "ev/ocpp/gateway/internal/logging"

	"github.com/spf13/viper"
)

// Defaults applied when the config file leaves gateway tuning unset.
const (
	DefaultHeartbeatIntervalSecs = 60
	DefaultHeartbeatMultiplier   = 2
	DefaultHeartbeatSweepSecs    = 30
	DefaultCallTimeoutSecs       = 30
	DefaultSendQueueSize         = 64
)

func LogCwd() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	cwd := filepath.Dir(ex)

	log.Logger.Info("CWD: " + cwd)
}

func ReadConfig() *Configuration {

	LogCwd()
	viper.SetConfigFile("../cfg/conf.yaml")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Logger.Error("No config file: ", err.Error()) //ignore, it can be either cli params, or conf file
	}

	var config Configuration
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	applyDefaults(&config)
	return &config
}

func applyDefaults(config *Configuration) {
	gw := &config.Services.WsGateway
	if gw.HeartbeatIntervalSecs <= 0 {
		gw.HeartbeatIntervalSecs = DefaultHeartbeatIntervalSecs
	}
	if gw.HeartbeatMultiplier <= 0 {
		gw.HeartbeatMultiplier = DefaultHeartbeatMultiplier
	}
	if gw.HeartbeatSweepSecs <= 0 {
		gw.HeartbeatSweepSecs = DefaultHeartbeatSweepSecs
	}
	if gw.CallTimeoutSecs <= 0 {
		gw.CallTimeoutSecs = DefaultCallTimeoutSecs
	}
	if gw.SendQueueSize <= 0 {
		gw.SendQueueSize = DefaultSendQueueSize
	}
	if len(gw.Versions) == 0 {
		gw.Versions = []string{"ocpp1.6", "ocpp2.0.1"}
	}
}
