package config

import (
	"time"
)

// ServerConfig defines a polled SNTP server.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	SetSystemTime bool   `mapstructure:"set_system_time"`
}

// Config defines the configuration structure.
type Config struct {
	General struct {
		LogLevel    int    `mapstructure:"log_level"`
		LogToSyslog bool   `mapstructure:"log_to_syslog"`
		LogDir      string `mapstructure:"log_dir"`
	} `mapstructure:"general"`

	SNTP struct {
		Port            int           `mapstructure:"port"`
		Timeout         time.Duration `mapstructure:"timeout"`
		DisplayLocation string        `mapstructure:"display_location"`
		ReferenceLookup struct {
			Timeout  time.Duration `mapstructure:"timeout"`
			CacheTTL time.Duration `mapstructure:"cache_ttl"`
		} `mapstructure:"reference_lookup"`
	} `mapstructure:"sntp"`

	Poller struct {
		Mode        string         `mapstructure:"mode"`
		Interval    time.Duration  `mapstructure:"interval"`
		Count       int            `mapstructure:"count"`
		StressDelay time.Duration  `mapstructure:"stress_delay"`
		Servers     []ServerConfig `mapstructure:"servers"`
	} `mapstructure:"poller"`

	Integration struct {
		Type      string `mapstructure:"type"`
		Marshaler string `mapstructure:"marshaler"`

		MQTT struct {
			SampleTopicTemplate     string        `mapstructure:"sample_topic_template"`
			TerminateOnConnectError bool          `mapstructure:"terminate_on_connect_error"`
			KeepAlive               time.Duration `mapstructure:"keep_alive"`
			MaxReconnectInterval    time.Duration `mapstructure:"max_reconnect_interval"`
			MaxTokenWait            time.Duration `mapstructure:"max_token_wait"`

			Auth struct {
				Type string `mapstructure:"type"`

				Generic struct {
					Server       string   `mapstructure:"server"`
					Servers      []string `mapstructure:"servers"`
					Username     string   `mapstructure:"username"`
					Password     string   `mapstructure:"password"`
					CACert       string   `mapstructure:"ca_cert"`
					TLSCert      string   `mapstructure:"tls_cert"`
					TLSKey       string   `mapstructure:"tls_key"`
					QOS          uint8    `mapstructure:"qos"`
					CleanSession bool     `mapstructure:"clean_session"`
					ClientID     string   `mapstructure:"client_id"`
				} `mapstructure:"generic"`
			} `mapstructure:"auth"`
		} `mapstructure:"mqtt"`
	} `mapstructure:"integration"`

	LiveFeed struct {
		Enabled      bool          `mapstructure:"enabled"`
		Bind         string        `mapstructure:"bind"`
		PingInterval time.Duration `mapstructure:"ping_interval"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"live_feed"`

	Metrics struct {
		Prometheus struct {
			EndpointEnabled bool   `mapstructure:"endpoint_enabled"`
			Bind            string `mapstructure:"bind"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"metrics"`

	MetaData struct {
		Static  map[string]string `mapstructure:"static"`
		Dynamic struct {
			ExecutionInterval    time.Duration     `mapstructure:"execution_interval"`
			MaxExecutionDuration time.Duration     `mapstructure:"max_execution_duration"`
			SplitDelimiter       string            `mapstructure:"split_delimiter"`
			Commands             map[string]string `mapstructure:"commands"`
		} `mapstructure:"dynamic"`
	} `mapstructure:"meta_data"`
}

// C holds the global configuration.
var C Config
