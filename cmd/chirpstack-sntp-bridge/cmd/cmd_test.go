package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
)

type testSetter struct {
	t time.Time
}

func (s *testSetter) SetTime(t time.Time) error {
	s.t = t
	return nil
}

// serve answers every request with a stratum 1 response shifted by offset.
func serve(t *testing.T, offset time.Duration) *net.UDPAddr {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if n < packets.PacketSize {
				continue
			}

			now := time.Now().Add(offset)
			resp := packets.ResponsePacket{
				VersionNumber:      4,
				Mode:               packets.ModeServer,
				StratumRaw:         1,
				PollExponent:       6,
				PrecisionExponent:  -20,
				ReferenceID:        [4]byte{'G', 'P', 'S', 0},
				ReferenceTimestamp: packets.NewTimestamp(now.Add(-time.Minute)),
				OriginateTimestamp: packets.Timestamp(binary.BigEndian.Uint64(buf[40:48])),
				ReceiveTimestamp:   packets.NewTimestamp(now),
				TransmitTimestamp:  packets.NewTimestamp(now),
			}
			b, _ := resp.MarshalBinary()
			conn.WriteToUDP(b, addr)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr)
}

func TestQuery(t *testing.T) {
	addr := serve(t, 2*time.Second)

	var conf config.Config
	conf.SNTP.DisplayLocation = "UTC"

	t.Run("report", func(t *testing.T) {
		assert := require.New(t)

		var buf bytes.Buffer
		var setter testSetter
		err := query(context.Background(), &buf, "127.0.0.1", queryOptions{
			timeout: time.Second,
			port:    addr.Port,
		}, conf, &setter)
		assert.NoError(err)

		out := buf.String()
		assert.Contains(out, "Reference ID: GPS\n")
		assert.Contains(out, "Stratum: Primary Reference (1)")
		assert.NotContains(out, "System time set to")
		assert.NotContains(out, "Cross-check")
		assert.True(setter.t.IsZero())
	})

	t.Run("set time and cross-check", func(t *testing.T) {
		assert := require.New(t)

		var buf bytes.Buffer
		var setter testSetter
		err := query(context.Background(), &buf, "127.0.0.1", queryOptions{
			timeout:    time.Second,
			port:       addr.Port,
			setTime:    true,
			crossCheck: true,
		}, conf, &setter)
		assert.NoError(err)

		out := buf.String()
		assert.Contains(out, "System time set to")
		assert.Contains(out, "Cross-check offset")
		assert.WithinDuration(time.Now().Add(2*time.Second), setter.t, 500*time.Millisecond)
	})

	t.Run("timeout", func(t *testing.T) {
		assert := require.New(t)

		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		assert.NoError(err)
		defer conn.Close()

		var buf bytes.Buffer
		err = query(context.Background(), &buf, "127.0.0.1", queryOptions{
			timeout: 50 * time.Millisecond,
			port:    conn.LocalAddr().(*net.UDPAddr).Port,
		}, conf, &testSetter{})
		assert.Equal(sntp.KindTimeout, sntp.KindOf(err))
		assert.Empty(buf.String())
	})

	t.Run("invalid location", func(t *testing.T) {
		assert := require.New(t)

		c := conf
		c.SNTP.DisplayLocation = "Nowhere/Nothing"
		err := query(context.Background(), &bytes.Buffer{}, "127.0.0.1", queryOptions{port: addr.Port}, c, &testSetter{})
		assert.Error(err)
	})
}

func TestWriteConfigFile(t *testing.T) {
	assert := require.New(t)

	var conf config.Config
	conf.General.LogLevel = 4
	conf.SNTP.Timeout = 3 * time.Second
	conf.Poller.Mode = "count"
	conf.Poller.Servers = []config.ServerConfig{
		{Host: "pool.ntp.org", SetSystemTime: true},
	}
	conf.Integration.MQTT.SampleTopicTemplate = "sntp/{{ .Server }}/sample"
	conf.Integration.MQTT.Auth.Generic.Servers = []string{"tcp://127.0.0.1:1883"}
	conf.MetaData.Static = map[string]string{"location": "dc1"}

	var buf bytes.Buffer
	assert.NoError(writeConfigFile(&buf, conf))

	out := buf.String()
	assert.Contains(out, "log_level=4\n")
	assert.Contains(out, `timeout="3s"`)
	assert.Contains(out, `mode="count"`)
	assert.Contains(out, "[[poller.servers]]\n  host=\"pool.ntp.org\"\n  set_system_time=true\n")
	assert.Contains(out, `sample_topic_template="sntp/{{ .Server }}/sample"`)
	assert.Contains(out, `"tcp://127.0.0.1:1883",`)
	assert.Contains(out, `location="dc1"`)
}

func TestViperBindEnvs(t *testing.T) {
	assert := require.New(t)

	os.Setenv("SNTP__TIMEOUT", "5s")
	os.Setenv("POLLER__MODE", "stress")
	defer os.Unsetenv("SNTP__TIMEOUT")
	defer os.Unsetenv("POLLER__MODE")

	viperBindEnvs(config.C)

	var conf config.Config
	assert.NoError(viper.Unmarshal(&conf))
	assert.Equal(5*time.Second, conf.SNTP.Timeout)
	assert.Equal("stress", conf.Poller.Mode)
}

func TestReadConfigFiles(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")
	assert.NoError(os.WriteFile(a, []byte("[sntp]\nport=123\ndisplay_location=\"UTC\"\n"), 0644))
	assert.NoError(os.WriteFile(b, []byte("[sntp]\nport=1123\n"), 0644))

	assert.NoError(readConfigFiles([]string{a, b}))
	assert.Equal(1123, viper.GetInt("sntp.port"))
	assert.Equal("UTC", viper.GetString("sntp.display_location"))

	assert.Error(readConfigFiles([]string{filepath.Join(dir, "missing.toml")}))
}

func TestMigrateDottedEnvs(t *testing.T) {
	assert := require.New(t)

	os.Setenv("GENERAL.LOG_DIR", "/var/log/sntp")
	defer os.Unsetenv("GENERAL.LOG_DIR")
	defer os.Unsetenv("GENERAL__LOG_DIR")

	migrateDottedEnvs()
	assert.Equal("/var/log/sntp", os.Getenv("GENERAL__LOG_DIR"))
}
