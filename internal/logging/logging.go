// Package logging configures the log level and the optional log hooks.
package logging

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

// Setup sets the log level and installs the syslog and log-file hooks
// when configured.
func Setup(conf config.Config) error {
	log.SetLevel(log.Level(uint8(conf.General.LogLevel)))

	if conf.General.LogToSyslog {
		if err := setSyslog(); err != nil {
			return errors.Wrap(err, "setup syslog error")
		}
	}

	if conf.General.LogDir != "" {
		log.AddHook(NewFileHook(conf.General.LogDir))
		log.WithField("log_dir", conf.General.LogDir).Info("logging: writing daily log files")
	}

	return nil
}
