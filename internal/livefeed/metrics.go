package livefeed

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/metrics"
)

var (
	lfConnectionCounter func(prometheus.Labels)
	lfSendCounter       func(prometheus.Labels)
	lfClientsGauge      func(prometheus.Labels, float64)
)

func init() {
	lfConnectionCounter = metrics.MustRegisterNewCounter(
		"live_feed_connection",
		"Live-feed websocket (dis)connect counter.",
		[]string{"type"},
	)

	lfSendCounter = metrics.MustRegisterNewCounter(
		"live_feed_send",
		"Live-feed websocket write counter.",
		[]string{"result"},
	)

	lfClientsGauge = metrics.MustRegisterNewGauge(
		"live_feed_clients",
		"Number of connected live-feed clients.",
		[]string{},
	)
}

func connectionCounter(typ string) {
	lfConnectionCounter(prometheus.Labels{"type": typ})
}

func sendCounter(result string) {
	lfSendCounter(prometheus.Labels{"result": result})
}

func clientsGauge(n int) {
	lfClientsGauge(prometheus.Labels{}, float64(n))
}
