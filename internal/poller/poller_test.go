package poller

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
)

type testResolver map[string]net.IP

func (r testResolver) LookupIPv4(ctx context.Context, host string) (net.IP, error) {
	ip, ok := r[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return ip, nil
}

type testReferenceResolver struct{}

func (testReferenceResolver) Resolve(ctx context.Context, stratum packets.Stratum, version uint8, id [4]byte) (string, error) {
	return string(id[:]), nil
}

type testClock struct {
	sync.Mutex
	times []time.Time
}

func (c *testClock) SetTime(t time.Time) error {
	c.Lock()
	defer c.Unlock()
	c.times = append(c.times, t)
	return nil
}

func (c *testClock) count() int {
	c.Lock()
	defer c.Unlock()
	return len(c.times)
}

type PollerTestSuite struct {
	suite.Suite

	conn *net.UDPConn
	wg   sync.WaitGroup
}

func (ts *PollerTestSuite) SetupSuite() {
	assert := require.New(ts.T())

	var err error
	ts.conn, err = net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.NoError(err)

	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()

		buf := make([]byte, 512)
		for {
			n, addr, err := ts.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}

			if n < packets.PacketSize {
				continue
			}

			resp := packets.ResponsePacket{
				VersionNumber:      3,
				Mode:               packets.ModeServer,
				StratumRaw:         1,
				ReferenceID:        [4]byte{'G', 'P', 'S', ' '},
				OriginateTimestamp: packets.Timestamp(binary.BigEndian.Uint64(buf[40:48])),
				ReceiveTimestamp:   packets.NewTimestamp(time.Now()),
				TransmitTimestamp:  packets.NewTimestamp(time.Now()),
			}
			b, _ := resp.MarshalBinary()
			ts.conn.WriteToUDP(b, addr)
		}
	}()
}

func (ts *PollerTestSuite) TearDownSuite() {
	ts.conn.Close()
	ts.wg.Wait()
}

func (ts *PollerTestSuite) config(mode Mode, servers ...Server) Config {
	return Config{
		Mode:        mode,
		Interval:    10 * time.Millisecond,
		StressDelay: time.Millisecond,
		Servers:     servers,
		Client: sntp.Config{
			Port:              ts.conn.LocalAddr().(*net.UDPAddr).Port,
			Timeout:           500 * time.Millisecond,
			ReferenceResolver: testReferenceResolver{},
		},
		Resolver: testResolver{
			"ntp.example.com": net.IPv4(127, 0, 0, 1),
		},
	}
}

func (ts *PollerTestSuite) TestCount() {
	assert := require.New(ts.T())

	conf := ts.config(ModeCount, Server{Host: "ntp.example.com"}, Server{Host: "unknown.example.com"})
	conf.Count = 3
	p := New(conf)

	var mu sync.Mutex
	var samples []sntp.Sample
	p.SetSampleFunc(func(s sntp.Sample) {
		mu.Lock()
		defer mu.Unlock()
		samples = append(samples, s)
	})

	assert.NoError(p.Start())
	p.Wait()

	mu.Lock()
	assert.Len(samples, 3)
	for _, s := range samples {
		assert.True(s.Valid)
		assert.Equal("GPS ", s.ReferenceID)
	}
	mu.Unlock()

	stats := p.Stats()
	assert.Len(stats, 2)

	assert.Equal("ntp.example.com", stats[0].Host)
	assert.Equal(3, stats[0].Success)
	assert.Equal(0, stats[0].Failure)
	assert.False(stats[0].ResolutionFailed)
	assert.Equal(ts.conn.LocalAddr().String(), stats[0].Address)

	assert.Equal("unknown.example.com", stats[1].Host)
	assert.True(stats[1].ResolutionFailed)
	assert.Equal(1, stats[1].Failure)
	assert.Contains(stats[1].LastError, "AddressResolutionFailure")
}

func (ts *PollerTestSuite) TestStress() {
	assert := require.New(ts.T())

	p := New(ts.config(ModeStress, Server{Host: "ntp.example.com"}))
	assert.NoError(p.Start())

	assert.Eventually(func() bool {
		return p.Stats()[0].Success >= 5
	}, 5*time.Second, 10*time.Millisecond)

	p.Stop()
	success := p.Stats()[0].Success

	time.Sleep(50 * time.Millisecond)
	assert.Equal(success, p.Stats()[0].Success)
}

func (ts *PollerTestSuite) TestSetSystemTime() {
	assert := require.New(ts.T())

	clk := testClock{}
	conf := ts.config(ModeCount, Server{Host: "ntp.example.com", SetSystemTime: true})
	conf.Count = 2
	conf.Clock = &clk

	p := New(conf)
	assert.NoError(p.Start())
	p.Wait()

	assert.Equal(2, clk.count())
}

func (ts *PollerTestSuite) TestTimeout() {
	assert := require.New(ts.T())

	// nothing listens on the discard port
	conf := ts.config(ModeCount, Server{Host: "ntp.example.com"})
	conf.Count = 1
	conf.Client.Port = 9
	conf.Client.Timeout = 50 * time.Millisecond

	var called bool
	p := New(conf)
	p.SetSampleFunc(func(sntp.Sample) { called = true })
	assert.NoError(p.Start())
	p.Wait()

	stats := p.Stats()
	assert.Equal(0, stats[0].Success)
	assert.Equal(1, stats[0].Failure)
	assert.NotEmpty(stats[0].LastError)
	assert.False(called)
}

func TestPoller(t *testing.T) {
	suite.Run(t, new(PollerTestSuite))
}

func TestStartWithoutServers(t *testing.T) {
	assert := require.New(t)
	p := New(Config{Mode: ModeCount})
	assert.Error(p.Start())
}

func TestConfigFromConfig(t *testing.T) {
	assert := require.New(t)

	var conf config.Config
	conf.SNTP.Port = 123
	conf.SNTP.Timeout = time.Second
	conf.SNTP.DisplayLocation = "UTC"
	conf.Poller.Interval = time.Minute
	conf.Poller.Count = 5
	conf.Poller.Servers = []config.ServerConfig{
		{Host: "pool.ntp.org", SetSystemTime: true},
	}

	c, err := ConfigFromConfig(conf)
	assert.NoError(err)
	assert.Equal(ModeCount, c.Mode)
	assert.Equal(5, c.Count)
	assert.Equal(time.Minute, c.Interval)
	assert.Equal(123, c.Client.Port)
	assert.NotNil(c.Client.ReferenceResolver)
	assert.Equal([]Server{{Host: "pool.ntp.org", SetSystemTime: true}}, c.Servers)

	conf.Poller.Mode = "burst"
	_, err = ConfigFromConfig(conf)
	assert.EqualError(err, "unknown poller mode: burst")

	conf.Poller.Mode = "stress"
	conf.SNTP.DisplayLocation = "Mars/Olympus_Mons"
	_, err = ConfigFromConfig(conf)
	assert.Error(err)
}
