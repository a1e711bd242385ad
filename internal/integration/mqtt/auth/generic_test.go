package auth

import (
	"os"
	"path/filepath"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

func TestGenericAuthentication(t *testing.T) {
	var conf config.Config
	conf.Integration.MQTT.Auth.Type = "generic"
	conf.Integration.MQTT.Auth.Generic.Servers = []string{"tcp://localhost:1883", "tcp://localhost:1884"}
	conf.Integration.MQTT.Auth.Generic.Username = "foo"
	conf.Integration.MQTT.Auth.Generic.Password = "bar"
	conf.Integration.MQTT.Auth.Generic.CleanSession = true
	conf.Integration.MQTT.Auth.Generic.ClientID = "sntp-bridge-01"

	t.Run("Init", func(t *testing.T) {
		assert := require.New(t)

		auth, err := NewGenericAuthentication(conf)
		assert.NoError(err)

		opts := mqtt.NewClientOptions()
		assert.NoError(auth.Init(opts))

		assert.Len(opts.Servers, 2)
		assert.Equal("localhost:1883", opts.Servers[0].Host)
		assert.Equal("foo", opts.Username)
		assert.Equal("bar", opts.Password)
		assert.True(opts.CleanSession)
		assert.Equal("sntp-bridge-01", opts.ClientID)
		assert.EqualValues(0, auth.ReconnectAfter())
	})

	t.Run("Single server", func(t *testing.T) {
		assert := require.New(t)

		c := conf
		c.Integration.MQTT.Auth.Generic.Servers = nil
		c.Integration.MQTT.Auth.Generic.Server = "tcp://broker:1883"

		auth, err := NewGenericAuthentication(c)
		assert.NoError(err)

		opts := mqtt.NewClientOptions()
		assert.NoError(auth.Init(opts))
		assert.Len(opts.Servers, 1)
		assert.Equal("broker:1883", opts.Servers[0].Host)
	})

	t.Run("No servers", func(t *testing.T) {
		assert := require.New(t)

		c := conf
		c.Integration.MQTT.Auth.Generic.Servers = nil

		_, err := NewGenericAuthentication(c)
		assert.Error(err)
	})

	t.Run("Invalid CA cert", func(t *testing.T) {
		assert := require.New(t)

		caFile := filepath.Join(t.TempDir(), "ca.pem")
		assert.NoError(os.WriteFile(caFile, []byte("not a certificate"), 0600))

		c := conf
		c.Integration.MQTT.Auth.Generic.CACert = caFile

		_, err := NewGenericAuthentication(c)
		assert.EqualError(err, "mqtt/auth: new tls config error: append ca-cert error")
	})
}
