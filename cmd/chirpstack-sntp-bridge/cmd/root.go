package cmd

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

var cfgFiles *[]string // config file
var version string

var rootCmd = &cobra.Command{
	Use:   "chirpstack-sntp-bridge",
	Short: "polls SNTP servers and publishes the clock offset over MQTT",
	Long: `ChirpStack SNTP Bridge polls SNTP servers and publishes the measured clock offset and
round-trip delay as Protobuf or JSON over MQTT
	> source & copyright information: https://github.com/brocaar/chirpstack-sntp-bridge`,
	RunE: run,
}

func init() {
	cobra.OnInitialize(initConfig)

	cfgFiles = rootCmd.PersistentFlags().StringSliceP("config", "c", []string{}, "path to configuration file (optional)")
	rootCmd.PersistentFlags().Int("log-level", 4, "debug=5, info=4, error=2, fatal=1, panic=0")

	viper.BindPFlag("general.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	// default values
	viper.SetDefault("general.log_level", 4)

	viper.SetDefault("sntp.port", 123)
	viper.SetDefault("sntp.timeout", 3*time.Second)
	viper.SetDefault("sntp.display_location", "Local")
	viper.SetDefault("sntp.reference_lookup.timeout", time.Second)
	viper.SetDefault("sntp.reference_lookup.cache_ttl", 10*time.Minute)

	viper.SetDefault("poller.mode", "count")
	viper.SetDefault("poller.interval", time.Minute)
	viper.SetDefault("poller.stress_delay", 100*time.Millisecond)

	viper.SetDefault("integration.marshaler", "json")
	viper.SetDefault("integration.mqtt.auth.type", "generic")
	viper.SetDefault("integration.mqtt.sample_topic_template", "sntp/{{ .Server }}/sample")
	viper.SetDefault("integration.mqtt.keep_alive", 30*time.Second)
	viper.SetDefault("integration.mqtt.max_reconnect_interval", time.Minute)
	viper.SetDefault("integration.mqtt.max_token_wait", time.Minute)
	viper.SetDefault("integration.mqtt.auth.generic.servers", []string{"tcp://127.0.0.1:1883"})
	viper.SetDefault("integration.mqtt.auth.generic.clean_session", true)

	viper.SetDefault("live_feed.bind", "127.0.0.1:8124")
	viper.SetDefault("live_feed.ping_interval", 30*time.Second)
	viper.SetDefault("live_feed.read_timeout", time.Minute+(5*time.Second))
	viper.SetDefault("live_feed.write_timeout", time.Second)

	viper.SetDefault("metrics.prometheus.bind", "127.0.0.1:9123")

	viper.SetDefault("meta_data.dynamic.split_delimiter", "=")
	viper.SetDefault("meta_data.dynamic.execution_interval", time.Minute)
	viper.SetDefault("meta_data.dynamic.max_execution_duration", time.Second)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(queryCmd)
}

// Execute executes the root command.
func Execute(v string) {
	version = v
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func initConfig() {
	if cfgFiles != nil && len(*cfgFiles) != 0 {
		if err := readConfigFiles(*cfgFiles); err != nil {
			log.WithError(err).WithField("config", *cfgFiles).Fatal("error loading config file")
		}
	} else {
		viper.SetConfigName("chirpstack-sntp-bridge")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/chirpstack-sntp-bridge")
		viper.AddConfigPath("/etc/chirpstack-sntp-bridge/")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				log.WithError(err).Fatal("read configuration file error")
			}
		}
	}

	migrateDottedEnvs()
	viperBindEnvs(config.C)

	if err := viper.Unmarshal(&config.C); err != nil {
		log.WithError(err).Fatal("unmarshal config error")
	}

	// migrate server to servers
	if config.C.Integration.MQTT.Auth.Generic.Server != "" {
		config.C.Integration.MQTT.Auth.Generic.Servers = []string{config.C.Integration.MQTT.Auth.Generic.Server}
	}
}

// readConfigFiles merges the given TOML files, later files overriding
// earlier ones.
func readConfigFiles(files []string) error {
	var merged [][]byte
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return errors.Wrapf(err, "read file %s error", f)
		}
		merged = append(merged, b)
	}

	viper.SetConfigType("toml")
	if err := viper.ReadConfig(bytes.NewReader(bytes.Join(merged, []byte("\n")))); err != nil {
		return errors.Wrap(err, "read config error")
	}
	return nil
}

// migrateDottedEnvs copies env variables containing dots to their double
// underscore name, unless that one is already set.
func migrateDottedEnvs() {
	for _, pair := range os.Environ() {
		d := strings.SplitN(pair, "=", 2)
		if !strings.Contains(d[0], ".") {
			continue
		}

		underscoreName := strings.ReplaceAll(d[0], ".", "__")
		log.WithField("env", d[0]).Warningf("using dots in env variable names is deprecated, use %s", underscoreName)
		if _, exists := os.LookupEnv(underscoreName); !exists {
			os.Setenv(underscoreName, d[1])
		}
	}
}

func viperBindEnvs(iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			tv = strings.ToLower(t.Name)
		}
		if tv == "-" {
			continue
		}

		switch v.Kind() {
		case reflect.Struct:
			viperBindEnvs(v.Interface(), append(parts, tv)...)
		default:
			// Bash doesn't allow env variable names with a dot so
			// bind the double underscore version.
			keyDot := strings.Join(append(parts, tv), ".")
			keyUnderscore := strings.Join(append(parts, tv), "__")
			viper.BindEnv(keyDot, strings.ToUpper(keyUnderscore))
		}
	}
}
