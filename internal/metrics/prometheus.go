package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sntp"

// MustRegisterNewTimerWithError registers and returns a function for timing
// functions.
func MustRegisterNewTimerWithError(name, help string, labels []string) func(prometheus.Labels, func() error) error {
	labels = append(labels, "error")

	timer := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name + "_duration_seconds",
		Help:      help,
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, labels)

	timer = mustRegisterOrGet(timer).(*prometheus.HistogramVec)

	return func(labels prometheus.Labels, f func() error) error {
		labels["error"] = "false"
		start := time.Now()
		err := f()
		elapsed := time.Since(start)

		if err != nil {
			labels["error"] = "true"
		}

		timer.With(labels).Observe(float64(elapsed) / float64(time.Second))
		return err
	}
}

// MustRegisterNewCounter registers and returns a function for counting.
func MustRegisterNewCounter(name string, help string, labels []string) func(prometheus.Labels) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name + "_count",
		Help:      help,
	}, labels)

	counter = mustRegisterOrGet(counter).(*prometheus.CounterVec)

	return func(labels prometheus.Labels) {
		counter.With(labels).Inc()
	}
}

// MustRegisterNewGauge registers and returns a function for setting a gauge.
func MustRegisterNewGauge(name string, help string, labels []string) func(prometheus.Labels, float64) {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)

	gauge = mustRegisterOrGet(gauge).(*prometheus.GaugeVec)

	return func(labels prometheus.Labels, v float64) {
		gauge.With(labels).Set(v)
	}
}

// mustRegisterOrGet registers the collector or returns the already
// registered collector with the same descriptor.
func mustRegisterOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
