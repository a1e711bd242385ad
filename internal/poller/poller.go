// Package poller repeatedly queries the configured SNTP servers.
package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/clock"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/refid"
)

// Mode defines the polling mode.
type Mode string

// Polling modes.
const (
	// ModeCount runs Count rounds with Interval in between. A Count of 0
	// polls until stopped.
	ModeCount Mode = "count"

	// ModeStress polls until stopped with StressDelay in between.
	ModeStress Mode = "stress"
)

// Server defines a polled server.
type Server struct {
	Host          string
	SetSystemTime bool
}

// Config holds the poller configuration.
type Config struct {
	Mode        Mode
	Interval    time.Duration
	Count       int
	StressDelay time.Duration
	Servers     []Server

	// Client is used for every client.
	Client sntp.Config

	// Resolver resolves the server hostnames. Defaults to sntp.NetResolver.
	Resolver sntp.AddressResolver

	// Clock is used when SetSystemTime is set for a server. Defaults to
	// clock.System.
	Clock clock.Setter
}

// ServerStats holds the per server statistics.
type ServerStats struct {
	Host             string
	Address          string
	Success          int
	Failure          int
	LastError        string
	LastOffsetMs     float64
	LastDelayMs      float64
	ResolutionFailed bool
}

// Poller polls the configured servers, each server in its own goroutine
// using its own client.
type Poller struct {
	conf Config

	mu         sync.RWMutex
	stats      map[string]*ServerStats
	sampleFunc func(sntp.Sample)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var poller *Poller

// Setup creates the poller from the configuration.
func Setup(conf config.Config) error {
	c, err := ConfigFromConfig(conf)
	if err != nil {
		return errors.Wrap(err, "poller config error")
	}

	poller = New(c)
	return nil
}

// GetPoller returns the poller.
func GetPoller() *Poller {
	return poller
}

// ConfigFromConfig returns the poller Config for the given configuration.
func ConfigFromConfig(conf config.Config) (Config, error) {
	loc := time.Local
	if conf.SNTP.DisplayLocation != "" {
		var err error
		loc, err = time.LoadLocation(conf.SNTP.DisplayLocation)
		if err != nil {
			return Config{}, errors.Wrap(err, "load display location error")
		}
	}

	c := Config{
		Mode:        Mode(conf.Poller.Mode),
		Interval:    conf.Poller.Interval,
		Count:       conf.Poller.Count,
		StressDelay: conf.Poller.StressDelay,
		Client: sntp.Config{
			Port:    conf.SNTP.Port,
			Timeout: conf.SNTP.Timeout,
			ReferenceResolver: refid.NewResolver(refid.Config{
				LookupTimeout: conf.SNTP.ReferenceLookup.Timeout,
				CacheTTL:      conf.SNTP.ReferenceLookup.CacheTTL,
				Location:      loc,
			}),
		},
	}

	switch c.Mode {
	case "":
		c.Mode = ModeCount
	case ModeCount, ModeStress:
	default:
		return Config{}, fmt.Errorf("unknown poller mode: %s", c.Mode)
	}

	for _, s := range conf.Poller.Servers {
		c.Servers = append(c.Servers, Server{
			Host:          s.Host,
			SetSystemTime: s.SetSystemTime,
		})
	}

	return c, nil
}

// New creates a new Poller.
func New(conf Config) *Poller {
	if conf.Resolver == nil {
		conf.Resolver = sntp.NetResolver{}
	}
	if conf.Clock == nil {
		conf.Clock = clock.System{}
	}

	p := Poller{
		conf:  conf,
		stats: make(map[string]*ServerStats),
	}

	for _, s := range conf.Servers {
		p.stats[s.Host] = &ServerStats{Host: s.Host}
	}

	return &p
}

// SetSampleFunc sets the function that is called for every decoded sample,
// including invalid samples.
func (p *Poller) SetSampleFunc(f func(sntp.Sample)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sampleFunc = f
}

// Start starts polling all servers.
func (p *Poller) Start() error {
	if len(p.conf.Servers) == 0 {
		return errors.New("no servers configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	log.WithFields(log.Fields{
		"mode":         p.conf.Mode,
		"interval":     p.conf.Interval,
		"count":        p.conf.Count,
		"stress_delay": p.conf.StressDelay,
		"servers":      len(p.conf.Servers),
	}).Info("poller: starting")

	for _, s := range p.conf.Servers {
		p.wg.Add(1)
		go func(s Server) {
			defer p.wg.Done()
			p.pollServer(ctx, s)
		}(s)
	}

	return nil
}

// Stop stops polling and waits until all in-flight exchanges have returned.
// In-flight exchanges are not aborted, they return within their timeout.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	log.Info("poller: stopped")
}

// Wait blocks until all servers have completed their rounds.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Stats returns the statistics of all servers in configuration order.
func (p *Poller) Stats() []ServerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ServerStats, 0, len(p.conf.Servers))
	for _, s := range p.conf.Servers {
		out = append(out, *p.stats[s.Host])
	}
	return out
}

func (p *Poller) pollServer(ctx context.Context, s Server) {
	client, err := sntp.NewClientFromHostname(ctx, s.Host, p.conf.Client, p.conf.Resolver)
	if err != nil {
		exchangeCounter(prometheus.Labels{"server": s.Host, "result": resultLabel(err)})
		p.updateStats(s.Host, func(st *ServerStats) {
			st.ResolutionFailed = true
			st.Failure++
			st.LastError = err.Error()
		})

		log.WithError(err).WithField("host", s.Host).Error("poller: resolve server error, server is skipped")
		return
	}

	p.updateStats(s.Host, func(st *ServerStats) {
		st.Address = client.Server()
	})

	delay := p.conf.Interval
	if p.conf.Mode == ModeStress {
		delay = p.conf.StressDelay
	}

	for round := 1; ; round++ {
		p.exchange(client, s)

		if p.conf.Mode == ModeCount && p.conf.Count != 0 && round >= p.conf.Count {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (p *Poller) exchange(client *sntp.Client, s Server) {
	var sample sntp.Sample

	err := exchangeTimer(prometheus.Labels{"server": s.Host}, func() error {
		var err error
		// Stop waits for the exchange, it is bounded by the client timeout
		sample, err = client.Exchange(context.Background())
		return err
	})

	exchangeCounter(prometheus.Labels{"server": s.Host, "result": resultLabel(err)})

	if sample.RawLength != 0 {
		p.mu.RLock()
		f := p.sampleFunc
		p.mu.RUnlock()

		if f != nil {
			f(sample)
		}
	}

	if err != nil {
		p.updateStats(s.Host, func(st *ServerStats) {
			st.Failure++
			st.LastError = err.Error()
		})

		log.WithError(err).WithFields(log.Fields{
			"host":   s.Host,
			"server": client.Server(),
		}).Warning("poller: exchange error")
		return
	}

	p.updateStats(s.Host, func(st *ServerStats) {
		st.Success++
		st.LastOffsetMs = sample.ClockOffsetMs
		st.LastDelayMs = sample.RoundTripDelayMs
	})

	offsetGauge(prometheus.Labels{"server": s.Host}, sample.ClockOffsetMs)
	delayGauge(prometheus.Labels{"server": s.Host}, sample.RoundTripDelayMs)

	fields := log.Fields{
		"host":         s.Host,
		"server":       sample.Server,
		"offset_ms":    sample.ClockOffsetMs,
		"delay_ms":     sample.RoundTripDelayMs,
		"stratum":      sample.Response.StratumRaw,
		"reference_id": sample.ReferenceID,
	}
	if sample.ReferenceErr != nil {
		fields["reference_error"] = sample.ReferenceErr.Error()
	}
	log.WithFields(fields).Info("poller: sample received")

	if s.SetSystemTime {
		p.setSystemTime(s, sample)
	}
}

func (p *Poller) setSystemTime(s Server, sample sntp.Sample) {
	t, err := clock.Apply(p.conf.Clock, time.Now(), sample.ClockOffsetMs)
	if err != nil {
		clockSetCounter(prometheus.Labels{"server": s.Host, "error": "true"})
		log.WithError(err).WithField("host", s.Host).Error("poller: set system time error")
		return
	}

	clockSetCounter(prometheus.Labels{"server": s.Host, "error": "false"})
	log.WithFields(log.Fields{
		"host":      s.Host,
		"time":      t,
		"offset_ms": sample.ClockOffsetMs,
	}).Info("poller: system time set")
}

func (p *Poller) updateStats(host string, f func(*ServerStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(p.stats[host])
}

// resultLabel returns the metric label for the exchange result.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(sntp.KindOf(err).String())
}
