// Package forwarder forwards poller samples to the integration and the
// live feed.
package forwarder

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/integration"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/livefeed"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/marshaler"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/metadata"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/metrics"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/poller"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
)

var forwardCounter = metrics.MustRegisterNewCounter(
	"forwarder_sample",
	"Per target and result forwarded sample counter.",
	[]string{"target", "result"},
)

// broadcaster is implemented by the live feed.
type broadcaster interface {
	Broadcast(b []byte)
}

// Setup configures the forwarder.
func Setup(conf config.Config) error {
	p := poller.GetPoller()
	if p == nil {
		return errors.New("poller is not set")
	}

	p.SetSampleFunc(forwardSample)
	return nil
}

func forwardSample(s sntp.Sample) {
	var feed broadcaster
	if f := livefeed.GetFeed(); f != nil {
		feed = f
	}

	forward(s, integration.GetIntegration(), feed)
}

// forward sends the sample to every configured target. A failing target
// does not prevent delivery to the others. It returns the number of
// targets that failed.
func forward(s sntp.Sample, i integration.Integration, feed broadcaster) int {
	if i == nil && feed == nil {
		return 0
	}

	pl, err := marshaler.SampleToStruct(s, metadata.Get())
	if err != nil {
		log.WithError(err).WithField("server", s.Server).Error("forwarder: sample to struct error")
		return 1
	}

	var failed int

	if i != nil {
		if err := i.PublishSample(s.Server, pl); err != nil {
			failed++
			forwardCounter(prometheus.Labels{"target": "integration", "result": "error"})
			log.WithError(err).WithField("server", s.Server).Error("forwarder: publish sample error")
		} else {
			forwardCounter(prometheus.Labels{"target": "integration", "result": "ok"})
		}
	}

	if feed != nil {
		b, err := protojson.Marshal(pl)
		if err != nil {
			failed++
			forwardCounter(prometheus.Labels{"target": "live_feed", "result": "error"})
			log.WithError(err).WithField("server", s.Server).Error("forwarder: marshal json error")
		} else {
			feed.Broadcast(b)
			forwardCounter(prometheus.Labels{"target": "live_feed", "result": "ok"})
		}
	}

	return failed
}
