package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/forwarder"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/integration"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/livefeed"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/logging"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/metadata"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/metrics"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/poller"
)

func run(cmd *cobra.Command, args []string) error {

	tasks := []func() error{
		setupLogging,
		printStartMessage,
		setupMetrics,
		setupMetaData,
		setupIntegration,
		setupLiveFeed,
		setupPoller,
		setupForwarder,
		startIntegration,
		startPoller,
	}

	for _, t := range tasks {
		if err := t(); err != nil {
			log.Fatal(err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	log.WithField("signal", <-sigChan).Info("signal received")
	log.Warning("shutting down server")

	poller.GetPoller().Stop()

	for _, s := range poller.GetPoller().Stats() {
		log.WithFields(log.Fields{
			"host":       s.Host,
			"success":    s.Success,
			"failure":    s.Failure,
			"last_error": s.LastError,
		}).Info("poller statistics")
	}

	if i := integration.GetIntegration(); i != nil {
		if err := i.Stop(); err != nil {
			log.WithError(err).Error("stop integration error")
		}
	}

	if f := livefeed.GetFeed(); f != nil {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("close live feed error")
		}
	}

	return nil
}

func setupLogging() error {
	if err := logging.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup logging error")
	}
	return nil
}

func printStartMessage() error {
	log.WithFields(log.Fields{
		"version": version,
		"servers": len(config.C.Poller.Servers),
	}).Info("starting ChirpStack SNTP Bridge")
	return nil
}

func setupMetrics() error {
	if err := metrics.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup metrics error")
	}
	return nil
}

func setupMetaData() error {
	if err := metadata.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup meta-data error")
	}
	return nil
}

func setupIntegration() error {
	if err := integration.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup integration error")
	}
	return nil
}

func setupLiveFeed() error {
	if err := livefeed.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup live feed error")
	}
	return nil
}

func setupPoller() error {
	if err := poller.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup poller error")
	}
	return nil
}

func setupForwarder() error {
	if err := forwarder.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup forwarder error")
	}
	return nil
}

func startIntegration() error {
	i := integration.GetIntegration()
	if i == nil {
		return nil
	}

	if err := i.Start(); err != nil {
		return errors.Wrap(err, "start integration error")
	}
	return nil
}

func startPoller() error {
	if err := poller.GetPoller().Start(); err != nil {
		return errors.Wrap(err, "start poller error")
	}
	return nil
}
