// Package livefeed streams samples to websocket clients.
package livefeed

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

// sendBufferSize is the number of messages queued per client. Messages are
// dropped for clients that can not keep up.
const sendBufferSize = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

var feed *Feed

// Setup configures the live feed. When disabled, GetFeed returns nil.
func Setup(conf config.Config) error {
	if !conf.LiveFeed.Enabled {
		feed = nil
		return nil
	}

	var err error
	feed, err = NewFeed(conf)
	if err != nil {
		return errors.Wrap(err, "new live feed error")
	}

	return nil
}

// GetFeed returns the live feed.
func GetFeed() *Feed {
	return feed
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Feed implements the websocket live feed.
type Feed struct {
	sync.RWMutex

	ln      net.Listener
	server  *http.Server
	clients map[*client]struct{}
	closed  bool

	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewFeed creates a new Feed and starts the websocket listener.
func NewFeed(conf config.Config) (*Feed, error) {
	f := Feed{
		clients:      make(map[*client]struct{}),
		pingInterval: conf.LiveFeed.PingInterval,
		readTimeout:  conf.LiveFeed.ReadTimeout,
		writeTimeout: conf.LiveFeed.WriteTimeout,
	}

	if f.pingInterval == 0 {
		f.pingInterval = 30 * time.Second
	}
	if f.readTimeout == 0 {
		f.readTimeout = f.pingInterval + 5*time.Second
	}
	if f.writeTimeout == 0 {
		f.writeTimeout = time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/samples", f.handleSamples)

	var err error
	f.ln, err = net.Listen("tcp", conf.LiveFeed.Bind)
	if err != nil {
		return nil, errors.Wrap(err, "create listener error")
	}

	f.server = &http.Server{
		Handler: mux,
	}

	go func() {
		log.WithField("bind", f.ln.Addr()).Info("livefeed: starting websocket listener")
		if err := f.server.Serve(f.ln); err != nil && !f.isClosed() {
			log.WithError(err).Error("livefeed: server error")
		}
	}()

	return &f, nil
}

// Addr returns the listener address.
func (f *Feed) Addr() net.Addr {
	return f.ln.Addr()
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.RLock()
	defer f.RUnlock()
	return len(f.clients)
}

// Broadcast queues the given JSON message for every connected client.
func (f *Feed) Broadcast(b []byte) {
	f.RLock()
	defer f.RUnlock()

	for c := range f.clients {
		select {
		case c.send <- b:
		default:
			sendCounter("dropped")
			log.WithField("remote_addr", c.conn.RemoteAddr()).Warning("livefeed: client send buffer full, dropping message")
		}
	}
}

// Close closes the listener and disconnects all clients.
func (f *Feed) Close() error {
	f.Lock()
	f.closed = true
	for c := range f.clients {
		c.close()
	}
	f.Unlock()

	return f.server.Close()
}

func (f *Feed) isClosed() bool {
	f.RLock()
	defer f.RUnlock()
	return f.closed
}

func (f *Feed) handleSamples(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("livefeed: websocket upgrade error")
		return
	}
	defer conn.Close()

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	f.Lock()
	if f.closed {
		f.Unlock()
		return
	}
	f.clients[c] = struct{}{}
	clientsGauge(len(f.clients))
	f.Unlock()

	connectionCounter("connect")
	log.WithField("remote_addr", conn.RemoteAddr()).Info("livefeed: client connected")

	defer func() {
		f.Lock()
		delete(f.clients, c)
		clientsGauge(len(f.clients))
		f.Unlock()

		connectionCounter("disconnect")
		log.WithField("remote_addr", conn.RemoteAddr()).Info("livefeed: client disconnected")
	}()

	go f.readLoop(c)
	f.writeLoop(c)
}

// readLoop handles pong and close messages. Other messages are ignored.
func (f *Feed) readLoop(c *client) {
	defer c.close()

	c.conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Error("livefeed: read message error")
			}
			return
		}
	}
}

// writeLoop is the only writer of the connection.
func (f *Feed) writeLoop(c *client) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				sendCounter("error")
				log.WithError(err).Error("livefeed: websocket send message error")
				c.close()
				return
			}
			sendCounter("ok")
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Error("livefeed: send ping message error")
				c.close()
				return
			}
		}
	}
}
