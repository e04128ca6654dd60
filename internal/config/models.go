package config

type CacheConfig struct {
	HostPort string `mapstructure:"host_port"`
	Password string `mapstructure:"password"`
	DbId     int    `mapstructure:"db_id"`
}

type Configuration struct {
	Schema   string `mapstructure:"schema"`
	Services struct {
		WsGateway struct {
			Debug          bool     `mapstructure:"debug"`
			EnableAuth     bool     `mapstructure:"enable_auth"`
			StandaloneMode bool     `mapstructure:"standalone_mode"`
			ListenAddress  string   `mapstructure:"listen_address"`
			ListenPort     int      `mapstructure:"listen_port"`
			BasePath       string   `mapstructure:"base_path"`
			Versions       []string `mapstructure:"supported_versions"`

			HeartbeatIntervalSecs int `mapstructure:"heartbeat_interval_secs"`
			HeartbeatMultiplier   int `mapstructure:"heartbeat_multiplier"`
			HeartbeatSweepSecs    int `mapstructure:"heartbeat_sweep_secs"`
			CallTimeoutSecs       int `mapstructure:"call_timeout_secs"`
			SendQueueSize         int `mapstructure:"send_queue_size"`

			Cache CacheConfig `mapstructure:"cache"`
		} `mapstructure:"ws_gateway"`
		CommandApi struct {
			Debug      bool       `mapstructure:"debug"`
			HttpConfig HttpConfig `mapstructure:"http_config"`
		} `mapstructure:"command_api"`
		Archive struct {
			StorageAccountName string `mapstructure:"storage_account_name"`
			StorageAccountKey  string `mapstructure:"storage_account_key"`
			StoreFrames        bool   `mapstructure:"store_frames"`
		} `mapstructure:"archive"`
	} `mapstructure:"services"`
	Logging struct {
		AppInsightsInstrumentationKey string `mapstructure:"appinsights_instrumentation_key"`
	}
	Mq MqConfig `mapstructure:"mq"`
}

type HttpConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	ListenPort    int    `mapstructure:"listen_port"`
	HttpUser      string `mapstructure:"http_user"`
	HttpPassword  string `mapstructure:"http_password"`
	TimeoutMs     int    `mapstructure:"timeoutms"`
	IdleTimeoutMs int    `mapstructure:"idle_timeoutms"`
}

type MqConfig struct {
	Type     string `mapstructure:"type"`
	MangosMq struct {
		GatewayListenUrl string `mapstructure:"gateway_listen_url"`
	} `mapstructure:"mangos_mq"`
	RabbitMq struct {
		ServerUrl string `mapstructure:"server_url"`
	} `mapstructure:"rabbit_mq"`
	NatsMq struct {
		ServerUrl string `mapstructure:"server_url"`
	} `mapstructure:"nats_mq"`
	RedisMq CacheConfig `mapstructure:"redis_mq"`
}
