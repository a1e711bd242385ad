// Package integration publishes samples to external systems.
package integration

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/integration/mqtt"
)

var integration Integration

// Setup configures the integration. No integration is configured when the
// type is empty.
func Setup(conf config.Config) error {
	var err error

	switch conf.Integration.Type {
	case "":
		integration = nil
	case "mqtt":
		integration, err = mqtt.NewBackend(conf)
		if err != nil {
			return errors.Wrap(err, "setup mqtt integration error")
		}
	default:
		return fmt.Errorf("unknown integration type: %s", conf.Integration.Type)
	}

	return nil
}

// GetIntegration returns the integration. It returns nil when no
// integration is configured.
func GetIntegration() Integration {
	return integration
}

// SetIntegration sets the integration.
func SetIntegration(i Integration) {
	integration = i
}

// Integration defines the interface that an integration must implement.
type Integration interface {
	// Start starts the integration.
	Start() error

	// Stop stops the integration.
	Stop() error

	// PublishSample publishes the sample payload of the given server.
	PublishSample(server string, pl proto.Message) error
}
