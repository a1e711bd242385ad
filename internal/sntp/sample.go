package sntp

import (
	"fmt"
	"strings"
	"time"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
)

// ReportTimeFormat is the time format used by Sample.Format.
const ReportTimeFormat = "2006-01-02 15:04:05.000"

// Sample holds the result of a single exchange.
type Sample struct {
	// Server is the address the request was sent to.
	Server string

	// Response holds the decoded response header.
	Response packets.ResponsePacket

	// RawLength is the number of bytes received.
	RawLength int

	// DestinationTime (T4) is the local time the response was received.
	DestinationTime time.Time

	RoundTripDelayMs float64
	ClockOffsetMs    float64

	// ReferenceID holds the interpreted reference identifier.
	ReferenceID string

	// ReferenceErr is set when the reference identifier could not be
	// fully resolved. It does not affect Valid.
	ReferenceErr error

	Valid        bool
	ErrorMessage string
}

// ClockOffset returns the clock offset as duration.
func (s Sample) ClockOffset() time.Duration {
	return time.Duration(s.ClockOffsetMs * float64(time.Millisecond))
}

// RoundTripDelay returns the round-trip delay as duration.
func (s Sample) RoundTripDelay() time.Duration {
	return time.Duration(s.RoundTripDelayMs * float64(time.Millisecond))
}

// NTPTime returns the given local time corrected by the clock offset.
func (s Sample) NTPTime(now time.Time) time.Time {
	return now.Add(s.ClockOffset())
}

// String returns the report using the local time zone.
func (s Sample) String() string {
	return s.Format(time.Local)
}

// Format returns a multi-line report of the sample, with all timestamps
// displayed in the given location.
func (s Sample) Format(loc *time.Location) string {
	var sb strings.Builder
	r := s.Response

	fmt.Fprintf(&sb, "Server: %s\n", s.Server)
	fmt.Fprintf(&sb, "Leap Indicator: %s\n", r.LeapIndicator)
	fmt.Fprintf(&sb, "Version number: %d\n", r.VersionNumber)
	fmt.Fprintf(&sb, "Mode: %s\n", r.Mode)
	fmt.Fprintf(&sb, "Stratum: %s (%d)\n", r.Stratum(), r.StratumRaw)
	fmt.Fprintf(&sb, "Originate Time T1: %s\n", r.OriginateTime().In(loc).Format(ReportTimeFormat))
	fmt.Fprintf(&sb, "Receive Time T2: %s\n", r.ReceiveTime().In(loc).Format(ReportTimeFormat))
	fmt.Fprintf(&sb, "Transmit Time T3: %s\n", r.TransmitTime().In(loc).Format(ReportTimeFormat))
	fmt.Fprintf(&sb, "Destination Time T4: %s\n", s.DestinationTime.In(loc).Format(ReportTimeFormat))
	fmt.Fprintf(&sb, "Precision: %g s\n", r.Precision())
	fmt.Fprintf(&sb, "Poll Interval: %g s\n", r.PollInterval())
	fmt.Fprintf(&sb, "Reference ID: %s\n", s.ReferenceID)
	fmt.Fprintf(&sb, "Root Delay: %g ms\n", r.RootDelayMs())
	fmt.Fprintf(&sb, "Root Dispersion: %g ms\n", r.RootDispersionMs())
	fmt.Fprintf(&sb, "Round Trip Delay: %g ms\n", s.RoundTripDelayMs)
	fmt.Fprintf(&sb, "Local Clock Offset: %g ms\n", s.ClockOffsetMs)
	fmt.Fprintf(&sb, "Reference Time: %s\n", r.ReferenceTime().In(loc).Format(ReportTimeFormat))
	fmt.Fprintf(&sb, "Valid: %t\n", s.Valid)
	if s.ErrorMessage != "" {
		fmt.Fprintf(&sb, "Error: %s\n", s.ErrorMessage)
	}

	return sb.String()
}
