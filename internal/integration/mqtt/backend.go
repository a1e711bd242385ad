// Package mqtt implements the MQTT integration.
package mqtt

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/integration/mqtt/auth"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/marshaler"
)

// Backend implements a MQTT backend.
type Backend struct {
	auth auth.Authentication

	conn       paho.Client
	connMux    sync.RWMutex
	clientOpts *paho.ClientOptions

	closed    chan struct{}
	closeOnce sync.Once

	terminateOnConnectError bool
	maxTokenWait            time.Duration

	qos                 uint8
	sampleTopicTemplate *template.Template

	marshaler *marshaler.Marshaler
}

// NewBackend creates a new Backend.
func NewBackend(conf config.Config) (*Backend, error) {
	var err error

	b := Backend{
		qos:                     conf.Integration.MQTT.Auth.Generic.QOS,
		terminateOnConnectError: conf.Integration.MQTT.TerminateOnConnectError,
		clientOpts:              paho.NewClientOptions(),
		maxTokenWait:            conf.Integration.MQTT.MaxTokenWait,
		closed:                  make(chan struct{}),
	}

	if b.maxTokenWait == 0 {
		b.maxTokenWait = time.Minute
	}

	switch conf.Integration.MQTT.Auth.Type {
	case "", "generic":
		b.auth, err = auth.NewGenericAuthentication(conf)
		if err != nil {
			return nil, errors.Wrap(err, "integration/mqtt: new generic authentication error")
		}
	default:
		return nil, fmt.Errorf("integration/mqtt: unknown auth type: %s", conf.Integration.MQTT.Auth.Type)
	}

	b.marshaler, err = marshaler.GetMarshaler(conf.Integration.Marshaler)
	if err != nil {
		return nil, errors.Wrap(err, "integration/mqtt: get marshaler error")
	}

	b.sampleTopicTemplate, err = template.New("sample").Parse(conf.Integration.MQTT.SampleTopicTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "integration/mqtt: parse sample-topic template error")
	}

	b.clientOpts.SetProtocolVersion(4)
	b.clientOpts.SetAutoReconnect(true)
	b.clientOpts.SetOnConnectHandler(b.onConnected)
	b.clientOpts.SetConnectionLostHandler(b.onConnectionLost)
	b.clientOpts.SetKeepAlive(conf.Integration.MQTT.KeepAlive)
	b.clientOpts.SetMaxReconnectInterval(conf.Integration.MQTT.MaxReconnectInterval)

	if err = b.auth.Init(b.clientOpts); err != nil {
		return nil, errors.Wrap(err, "integration/mqtt: init authentication error")
	}

	return &b, nil
}

// Start starts the integration. It blocks until connected or stopped.
func (b *Backend) Start() error {
	if !b.connectLoop() {
		return errors.New("integration/mqtt: stopped before connected")
	}
	go b.reconnectLoop()
	return nil
}

// Stop stops the integration.
func (b *Backend) Stop() error {
	b.closeOnce.Do(func() {
		close(b.closed)
	})

	b.connMux.Lock()
	defer b.connMux.Unlock()

	if b.conn != nil {
		b.conn.Disconnect(250)
		b.conn = nil
	}
	return nil
}

// PublishSample publishes the given sample payload.
func (b *Backend) PublishSample(server string, pl proto.Message) error {
	topic, err := b.SampleTopic(server)
	if err != nil {
		return err
	}

	bb, err := b.marshaler.Marshal(pl)
	if err != nil {
		mqttSampleCounter("error").Inc()
		return errors.Wrap(err, "marshal message error")
	}

	log.WithFields(log.Fields{
		"topic":  topic,
		"qos":    b.qos,
		"server": server,
	}).Debug("integration/mqtt: publishing sample")

	b.connMux.RLock()
	conn := b.conn
	b.connMux.RUnlock()

	if conn == nil {
		mqttSampleCounter("error").Inc()
		return errors.New("integration/mqtt: not connected")
	}

	if err := tokenWrapper(conn.Publish(topic, b.qos, false, bb), b.maxTokenWait); err != nil {
		mqttSampleCounter("error").Inc()
		return errors.Wrap(err, "publish error")
	}

	mqttSampleCounter("ok").Inc()
	return nil
}

// SampleTopic returns the topic for samples of the given server.
func (b *Backend) SampleTopic(server string) (string, error) {
	topic := bytes.NewBuffer(nil)
	if err := b.sampleTopicTemplate.Execute(topic, struct {
		Server string
	}{server}); err != nil {
		return "", errors.Wrap(err, "execute sample template error")
	}
	return topic.String(), nil
}

func (b *Backend) connect() error {
	b.connMux.Lock()
	defer b.connMux.Unlock()

	if err := b.auth.Update(b.clientOpts); err != nil {
		return errors.Wrap(err, "integration/mqtt: update authentication error")
	}

	b.conn = paho.NewClient(b.clientOpts)
	if err := tokenWrapper(b.conn.Connect(), b.maxTokenWait); err != nil {
		return err
	}

	return nil
}

// connectLoop blocks until the client is connected. It returns false when
// the integration was stopped first.
func (b *Backend) connectLoop() bool {
	for {
		err := b.connect()
		if err == nil {
			return true
		}

		if b.terminateOnConnectError {
			log.Fatal(err)
		}
		log.WithError(err).Error("integration/mqtt: connection error")

		select {
		case <-b.closed:
			return false
		case <-time.After(2 * time.Second):
		}
	}
}

func (b *Backend) disconnect() {
	mqttDisconnectCounter().Inc()

	b.connMux.Lock()
	defer b.connMux.Unlock()

	if b.conn != nil {
		b.conn.Disconnect(250)
	}
}

// reconnectLoop re-connects periodically when the authentication requires
// it.
func (b *Backend) reconnectLoop() {
	interval := b.auth.ReconnectAfter()
	if interval <= 0 {
		return
	}

	for {
		select {
		case <-b.closed:
			return
		case <-time.After(interval):
		}

		log.Info("integration/mqtt: re-connect triggered")
		mqttReconnectCounter().Inc()

		b.disconnect()
		if !b.connectLoop() {
			return
		}
	}
}

func (b *Backend) onConnected(c paho.Client) {
	mqttConnectCounter().Inc()
	log.Info("integration/mqtt: connected to mqtt broker")
}

func (b *Backend) onConnectionLost(c paho.Client, err error) {
	if b.terminateOnConnectError {
		log.Fatal(err)
	}
	mqttDisconnectCounter().Inc()
	log.WithError(err).Error("integration/mqtt: connection error")
}

func tokenWrapper(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errors.New("token wait timeout error")
	}
	return token.Error()
}
