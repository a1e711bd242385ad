package cmd

import (
	"io"
	"text/template"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

const configTemplate = `[general]
# debug=5, info=4, warning=3, error=2, fatal=1, panic=0
log_level={{ .General.LogLevel }}

# Log to syslog.
#
# When set to true, log messages are being written to syslog.
log_to_syslog={{ .General.LogToSyslog }}

# Log directory.
#
# When set, log messages are also appended to a daily log file
# (ntpdate_YYYYMMDD.log) in this directory.
log_dir="{{ .General.LogDir }}"


# SNTP client configuration.
[sntp]
# Server port.
port={{ .SNTP.Port }}

# Exchange timeout.
#
# The maximum duration to wait for the server response.
timeout="{{ .SNTP.Timeout }}"

# Display location.
#
# The time zone (e.g. "Local", "UTC" or "Asia/Shanghai") used to display
# timestamps. All computations are performed in UTC.
display_location="{{ .SNTP.DisplayLocation }}"

  # Reference identifier lookup.
  #
  # For stratum 2-15 version 3 responses, the reference identifier holds the
  # IPv4 address of the upstream server, which is resolved using a reverse
  # DNS lookup.
  [sntp.reference_lookup]
  # Timeout of a single reverse lookup.
  timeout="{{ .SNTP.ReferenceLookup.Timeout }}"

  # Duration that lookup results are cached.
  cache_ttl="{{ .SNTP.ReferenceLookup.CacheTTL }}"


# Poller configuration.
[poller]
# Poller mode.
#
# Valid options are:
#   * count: poll every server count times with the given interval
#   * stress: poll every server with the given stress_delay until stopped
mode="{{ .Poller.Mode }}"

# Interval between two exchanges in count mode.
interval="{{ .Poller.Interval }}"

# Number of exchanges per server in count mode (0 = until stopped).
count={{ .Poller.Count }}

# Delay between two exchanges in stress mode.
stress_delay="{{ .Poller.StressDelay }}"

  # Polled servers.
  #
  # Example:
  # [[poller.servers]]
  # host="pool.ntp.org"
  # set_system_time=false
{{ range $index, $server := .Poller.Servers }}
  [[poller.servers]]
  host="{{ $server.Host }}"
  set_system_time={{ $server.SetSystemTime }}
{{ end }}

# Integration configuration.
[integration]
# Integration type.
#
# Valid options are:
#   * "": samples are not published
#   * mqtt: samples are published to a MQTT broker
type="{{ .Integration.Type }}"

# Payload marshaler.
#
# This defines how the MQTT payloads are encoded. Valid options are:
# * protobuf:  Protobuf encoding
# * json:      JSON encoding
marshaler="{{ .Integration.Marshaler }}"

  # MQTT integration configuration.
  [integration.mqtt]
  # Sample topic template.
  sample_topic_template="{{ .Integration.MQTT.SampleTopicTemplate }}"

  # Maximum interval that will be waited between reconnection attempts when connection is lost.
  # Valid units are 'ms', 's', 'm', 'h'. Note that these values can be combined, e.g. '24h30m15s'.
  max_reconnect_interval="{{ .Integration.MQTT.MaxReconnectInterval }}"

  # Terminate on connect error.
  #
  # When set to true, instead of re-trying to connect, the ChirpStack SNTP Bridge
  # process will be terminated on a connection error.
  terminate_on_connect_error={{ .Integration.MQTT.TerminateOnConnectError }}

  # Keep alive will set the amount of time (in seconds) that the client should
  # wait before sending a PING request to the broker.
  keep_alive="{{ .Integration.MQTT.KeepAlive }}"

  # Maximum duration to wait for a MQTT token to complete.
  max_token_wait="{{ .Integration.MQTT.MaxTokenWait }}"

    # MQTT authentication.
    [integration.mqtt.auth]
    # Type defines the MQTT authentication type to use.
    #
    # Set this to the name of one of the sections below.
    type="{{ .Integration.MQTT.Auth.Type }}"

      # Generic MQTT authentication.
      [integration.mqtt.auth.generic]
      # MQTT servers.
      #
      # Configure one or multiple MQTT server to connect to. Each item must be in
      # the following format: scheme://host:port where scheme is tcp, ssl or ws.
      servers=[{{ range $index, $elm := .Integration.MQTT.Auth.Generic.Servers }}
        "{{ $elm }}",{{ end }}
      ]

      # Connect with the given username (optional)
      username="{{ .Integration.MQTT.Auth.Generic.Username }}"

      # Connect with the given password (optional)
      password="{{ .Integration.MQTT.Auth.Generic.Password }}"

      # Quality of service level
      #
      # 0: at most once
      # 1: at least once
      # 2: exactly once
      #
      # Note: an increase of this value will decrease the performance.
      # For more information: https://www.hivemq.com/blog/mqtt-essentials-part-6-mqtt-quality-of-service-levels
      qos={{ .Integration.MQTT.Auth.Generic.QOS }}

      # Clean session
      #
      # Set the "clean session" flag in the connect message when this client
      # connects to an MQTT broker. By setting this flag you are indicating
      # that no messages saved by the broker for this client should be delivered.
      clean_session={{ .Integration.MQTT.Auth.Generic.CleanSession }}

      # Client ID
      #
      # Set the client id to be used by this client when connecting to the MQTT
      # broker. A client id must be no longer than 23 characters. If left blank,
      # a random id will be generated by the broker.
      client_id="{{ .Integration.MQTT.Auth.Generic.ClientID }}"

      # CA certificate file (optional)
      #
      # Use this when setting up a secure connection (when server uses ssl://...)
      # but the certificate used by the server is not trusted by any CA certificate
      # on the server (e.g. when self generated).
      ca_cert="{{ .Integration.MQTT.Auth.Generic.CACert }}"

      # mqtt TLS certificate file (optional)
      tls_cert="{{ .Integration.MQTT.Auth.Generic.TLSCert }}"

      # mqtt TLS key file (optional)
      tls_key="{{ .Integration.MQTT.Auth.Generic.TLSKey }}"


# Live feed configuration.
#
# When enabled, samples are streamed as JSON to websocket clients connected
# to /samples.
[live_feed]
enabled={{ .LiveFeed.Enabled }}

# IP:port to bind the websocket listener to.
bind="{{ .LiveFeed.Bind }}"

# Ping interval.
ping_interval="{{ .LiveFeed.PingInterval }}"

# Read timeout.
#
# This interval must be greater than the configured ping interval.
read_timeout="{{ .LiveFeed.ReadTimeout }}"

# Write timeout.
write_timeout="{{ .LiveFeed.WriteTimeout }}"


# Metrics configuration.
[metrics]

  # Metrics stored in Prometheus.
  #
  # These metrics expose information about the state of the ChirpStack SNTP Bridge
  # instance like the number of exchanges, the clock offset and the round-trip
  # delay per server.
  [metrics.prometheus]
  # Enable Prometheus metrics endpoint.
  endpoint_enabled={{ .Metrics.Prometheus.EndpointEnabled }}

  # The ip:port to bind the Prometheus metrics server to for serving the
  # metrics endpoint.
  bind="{{ .Metrics.Prometheus.Bind }}"


# Sample meta-data.
#
# The meta-data will be added to every sample published by the ChirpStack
# SNTP Bridge.
[meta_data]

  # Static.
  #
  # Static key (string) / value (string) meta-data.
  [meta_data.static]
  # Example:
  # location="datacenter-1"
{{ range $k, $v := .MetaData.Static }}
  {{ $k }}="{{ $v }}"
{{ end }}

  # Dynamic meta-data.
  #
  # Dynamic meta-data is retrieved by executing external commands.
  # This makes it possible to for example execute an external command to
  # read the status of the local time daemon.
  [meta_data.dynamic]

  # Execution interval of the commands.
  execution_interval="{{ .MetaData.Dynamic.ExecutionInterval }}"

  # Max. execution duration.
  max_execution_duration="{{ .MetaData.Dynamic.MaxExecutionDuration }}"

  # Split delimiter.
  #
  # When the output of a command returns multiple lines, ChirpStack SNTP Bridge
  # assumes multiple values are returned. In this case it will split by the given delimiter
  # to obtain the key / value of each row. The key will be prefixed with the name of the
  # configured command.
  split_delimiter="{{ .MetaData.Dynamic.SplitDelimiter }}"

  # Commands to execute.
  #
  # The value of the stdout will be used as the key value (string).
  # In case the command failed, it is ignored. In case the same key is defined
  # both as static and dynamic, the dynamic value has priority (as long as the
  # command does not fail).
  [meta_data.dynamic.commands]
  # Example:
  # chrony_tracking="/usr/bin/chronyc -c tracking"
{{ range $k, $v := .MetaData.Dynamic.Commands }}
  {{ $k }}="{{ $v }}"
{{ end }}
`

var configCmd = &cobra.Command{
	Use:   "configfile",
	Short: "Print the ChirpStack SNTP Bridge configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfigFile(cmd.OutOrStdout(), config.C)
	},
}

func writeConfigFile(w io.Writer, conf config.Config) error {
	t := template.Must(template.New("config").Parse(configTemplate))
	if err := t.Execute(w, conf); err != nil {
		return errors.Wrap(err, "execute config template error")
	}
	return nil
}
