// Package crosscheck queries a server through an independent NTP client
// implementation and compares the result with a sample.
package crosscheck

import (
	"net"
	"strconv"
	"time"

	"github.com/beevik/ntp"
	"github.com/pkg/errors"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
)

// Result holds the reference query result.
type Result struct {
	Server      string
	Time        time.Time
	ClockOffset time.Duration
	RTT         time.Duration
	Stratum     uint8
	ReferenceID uint32
	Leap        ntp.LeapIndicator
}

// Comparison holds the difference between a sample and a reference result.
type Comparison struct {
	OffsetDiffMs float64
	DelayDiffMs  float64
}

// Query performs a single reference query against host:port.
func Query(host string, port int, timeout time.Duration) (Result, error) {
	server := net.JoinHostPort(host, strconv.Itoa(port))

	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{
		Timeout: timeout,
		Version: 4,
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "ntp query error")
	}

	if err := resp.Validate(); err != nil {
		return Result{}, errors.Wrap(err, "validate response error")
	}

	return Result{
		Server:      server,
		Time:        resp.Time,
		ClockOffset: resp.ClockOffset,
		RTT:         resp.RTT,
		Stratum:     resp.Stratum,
		ReferenceID: resp.ReferenceID,
		Leap:        resp.Leap,
	}, nil
}

// Compare returns the offset and delay differences, sample minus reference.
func Compare(s sntp.Sample, r Result) Comparison {
	return Comparison{
		OffsetDiffMs: s.ClockOffsetMs - durationToMs(r.ClockOffset),
		DelayDiffMs:  s.RoundTripDelayMs - durationToMs(r.RTT),
	}
}

func durationToMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
