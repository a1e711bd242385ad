package poller

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/metrics"
)

var (
	exchangeCounter func(prometheus.Labels)
	exchangeTimer   func(prometheus.Labels, func() error) error
	offsetGauge     func(prometheus.Labels, float64)
	delayGauge      func(prometheus.Labels, float64)
	clockSetCounter func(prometheus.Labels)
)

func init() {
	exchangeCounter = metrics.MustRegisterNewCounter(
		"poller_exchange",
		"Per server and result exchange counter.",
		[]string{"server", "result"},
	)

	exchangeTimer = metrics.MustRegisterNewTimerWithError(
		"poller_exchange",
		"Per server exchange duration.",
		[]string{"server"},
	)

	offsetGauge = metrics.MustRegisterNewGauge(
		"poller_clock_offset_milliseconds",
		"Per server clock offset of the last valid sample.",
		[]string{"server"},
	)

	delayGauge = metrics.MustRegisterNewGauge(
		"poller_round_trip_delay_milliseconds",
		"Per server round-trip delay of the last valid sample.",
		[]string{"server"},
	)

	clockSetCounter = metrics.MustRegisterNewCounter(
		"poller_clock_set",
		"Per server system clock update counter.",
		[]string{"server", "error"},
	)
}
