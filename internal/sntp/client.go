// Package sntp implements a single-sample SNTP (RFC 2030) client.
//
// A Client performs one request / response exchange per call to Exchange.
// A Client must not be used by more than one goroutine at a time, create
// one Client per goroutine instead.
//
// Exchange blocks on the network receive, bounded by the timeout. For
// stratum 2-15 version 3 responses it also blocks on the reverse lookup of
// the reference identifier, bounded by the ReferenceResolver (see
// refid.Config.LookupTimeout); lookups are cached.
package sntp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/refid"
)

// DefaultPort is the SNTP server port.
const DefaultPort = 123

// DefaultTimeout is the default exchange timeout.
const DefaultTimeout = 3 * time.Second

// readBufferSize is larger than the header so that oversized responses
// can be detected.
const readBufferSize = 512

// ReferenceResolver interprets the reference identifier of a response.
type ReferenceResolver interface {
	Resolve(ctx context.Context, stratum packets.Stratum, version uint8, id [4]byte) (string, error)
}

// Config holds the client configuration.
type Config struct {
	// Port defaults to DefaultPort.
	Port int

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// ReferenceResolver defaults to a refid.Resolver with default settings.
	ReferenceResolver ReferenceResolver

	// Now returns the local time used for T1 and T4. Defaults to time.Now.
	Now func() time.Time
}

// Client implements the SNTP client.
type Client struct {
	addr        *net.UDPAddr
	timeout     time.Duration
	refResolver ReferenceResolver
	now         func() time.Time

	state     State
	stateFunc func(State)
	last      *Sample
}

// NewClient creates a new client for the given IPv4 address.
func NewClient(ip net.IP, conf Config) (*Client, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, newError(KindAddressResolutionFailure, errors.Errorf("%s is not an ipv4 address", ip))
	}

	c := Client{
		addr: &net.UDPAddr{
			IP:   ip4,
			Port: conf.Port,
		},
		timeout:     conf.Timeout,
		refResolver: conf.ReferenceResolver,
		now:         conf.Now,
	}

	if c.addr.Port == 0 {
		c.addr.Port = DefaultPort
	}
	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	if c.refResolver == nil {
		c.refResolver = refid.NewResolver(refid.Config{})
	}
	if c.now == nil {
		c.now = time.Now
	}

	return &c, nil
}

// NewClientFromHostname resolves the first IPv4 address of the given host
// and creates a new client for it. When resolver is nil, NetResolver is used.
func NewClientFromHostname(ctx context.Context, host string, conf Config, resolver AddressResolver) (*Client, error) {
	if resolver == nil {
		resolver = NetResolver{}
	}

	ip, err := resolver.LookupIPv4(ctx, host)
	if err != nil {
		return nil, newError(KindAddressResolutionFailure, errors.Wrapf(err, "resolve %s error", host))
	}

	return NewClient(ip, conf)
}

// Server returns the server address as ip:port.
func (c *Client) Server() string {
	return net.JoinHostPort(c.addr.IP.String(), strconv.Itoa(c.addr.Port))
}

// SetStateFunc sets the function that is called on every state transition.
func (c *Client) SetStateFunc(f func(State)) {
	c.stateFunc = f
}

// State returns the current state.
func (c *Client) State() State {
	return c.state
}

// Last returns the most recently decoded sample. After a failed exchange
// the previous sample is returned. The second return value is false when
// nothing has been decoded yet.
func (c *Client) Last() (Sample, bool) {
	if c.last == nil {
		return Sample{}, false
	}
	return *c.last, true
}

// Exchange sends a single request to the server and waits for the response
// until the timeout expires or ctx is done.
//
// On a decoded response the sample is always returned. When the response is
// not valid, the sample is returned together with an InvalidResponse error.
// A failure to interpret the reference identifier is not returned as error,
// see Sample.ReferenceErr.
func (c *Client) Exchange(ctx context.Context) (Sample, error) {
	defer c.setState(StateIdle)

	if err := ctx.Err(); err != nil {
		c.setState(StateTransportError)
		return Sample{}, newError(KindTransportError, err)
	}

	c.setState(StateSending)

	conn, err := net.DialUDP("udp4", nil, c.addr)
	if err != nil {
		c.setState(StateTransportError)
		return Sample{}, newError(KindTransportError, errors.Wrap(err, "dial udp error"))
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		c.setState(StateTransportError)
		return Sample{}, newError(KindTransportError, errors.Wrap(err, "set read deadline error"))
	}

	// unblock the read when ctx is done
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	t1 := c.now()
	b, err := packets.RequestPacket{TransmitTime: t1}.MarshalBinary()
	if err != nil {
		c.setState(StateTransportError)
		return Sample{}, newError(KindTransportError, errors.Wrap(err, "marshal request error"))
	}

	if _, err := conn.Write(b); err != nil {
		c.setState(StateTransportError)
		return Sample{}, newError(KindTransportError, errors.Wrap(err, "write udp error"))
	}

	c.setState(StateAwaitingResponse)

	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	t4 := c.now()
	if err != nil {
		return Sample{}, c.readError(ctx, err)
	}

	var resp packets.ResponsePacket
	if err := resp.UnmarshalBinary(buf[:n]); err != nil {
		c.setState(StateTransportError)
		return Sample{}, newError(KindMalformedPacket, errors.Wrapf(err, "received %d bytes", n))
	}

	c.setState(StateDecoded)

	sample := c.newSample(ctx, resp, n, t1, t4)
	c.last = &sample

	if !sample.Valid {
		return sample, newError(KindInvalidResponse, errors.New(sample.ErrorMessage))
	}

	return sample, nil
}

// newSample builds the sample. T1 is the local transmit time, the echoed
// originate timestamp is only compared against it.
func (c *Client) newSample(ctx context.Context, resp packets.ResponsePacket, n int, t1, t4 time.Time) Sample {
	originateOK := resp.OriginateTimestamp == packets.NewTimestamp(t1)

	s := Sample{
		Server:          c.Server(),
		Response:        resp,
		RawLength:       n,
		DestinationTime: t4.UTC(),
		Valid:           IsValid(resp, n) && originateOK,
	}

	s.RoundTripDelayMs, s.ClockOffsetMs = ComputeOffset(
		packets.TimeToMilliseconds(t1),
		float64(resp.ReceiveTimestamp.Milliseconds()),
		float64(resp.TransmitTimestamp.Milliseconds()),
		packets.TimeToMilliseconds(t4),
	)

	ref, err := c.refResolver.Resolve(ctx, resp.Stratum(), resp.VersionNumber, resp.ReferenceID)
	s.ReferenceID = ref
	if err != nil {
		s.ReferenceErr = newError(KindReferenceResolutionFailure, err)
	}

	if !s.Valid {
		switch {
		case n != packets.PacketSize:
			s.ErrorMessage = fmt.Sprintf("expected %d bytes, received %d", packets.PacketSize, n)
		case resp.Mode != packets.ModeServer:
			s.ErrorMessage = fmt.Sprintf("expected mode %s, received %s", packets.ModeServer, resp.Mode)
		default:
			s.ErrorMessage = "originate timestamp does not match the request transmit timestamp"
		}
	}

	return s
}

func (c *Client) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			c.setState(StateTimedOut)
			return newError(KindTimeout, ctxErr)
		}
		c.setState(StateTransportError)
		return newError(KindTransportError, ctxErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.setState(StateTimedOut)
		return newError(KindTimeout, errors.Errorf("no response within %s", c.timeout))
	}

	c.setState(StateTransportError)
	return newError(KindTransportError, errors.Wrap(err, "read udp error"))
}

func (c *Client) setState(s State) {
	c.state = s
	if c.stateFunc != nil {
		c.stateFunc(s)
	}
}
