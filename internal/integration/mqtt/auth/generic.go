package auth

import (
	"crypto/tls"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

// GenericAuthentication implements username / password and TLS client
// certificate authentication.
type GenericAuthentication struct {
	servers      []string
	username     string
	password     string
	cleanSession bool
	clientID     string

	tlsConfig *tls.Config
}

// NewGenericAuthentication creates a GenericAuthentication.
func NewGenericAuthentication(conf config.Config) (Authentication, error) {
	c := conf.Integration.MQTT.Auth.Generic

	tlsConfig, err := newTLSConfig(c.CACert, c.TLSCert, c.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "mqtt/auth: new tls config error")
	}

	servers := c.Servers
	if len(servers) == 0 && c.Server != "" {
		servers = []string{c.Server}
	}
	if len(servers) == 0 {
		return nil, errors.New("mqtt/auth: at least one server must be configured")
	}

	return &GenericAuthentication{
		tlsConfig:    tlsConfig,
		servers:      servers,
		username:     c.Username,
		password:     c.Password,
		cleanSession: c.CleanSession,
		clientID:     c.ClientID,
	}, nil
}

// Init applies the initial configuration.
func (a *GenericAuthentication) Init(opts *mqtt.ClientOptions) error {
	for _, server := range a.servers {
		opts.AddBroker(server)
	}
	opts.SetUsername(a.username)
	opts.SetPassword(a.password)
	opts.SetCleanSession(a.cleanSession)
	opts.SetClientID(a.clientID)

	if a.tlsConfig != nil {
		opts.SetTLSConfig(a.tlsConfig)
	}

	return nil
}

// Update updates the authentication options.
func (a *GenericAuthentication) Update(opts *mqtt.ClientOptions) error {
	return nil
}

// ReconnectAfter returns 0, credentials do not expire.
func (a *GenericAuthentication) ReconnectAfter() time.Duration {
	return 0
}
