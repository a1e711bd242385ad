package packets

import (
	"encoding/binary"
	"time"
)

// ntpEpoch is the start of NTP era 0.
var ntpEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// eraMilliseconds is the length of a single NTP era (2^32 seconds) in
// milliseconds.
const eraMilliseconds = uint64(1<<32) * 1000

// Timestamp implements the 64 bit NTP fixed-point timestamp. The upper
// 32 bits contain the seconds since 1900-01-01, the lower 32 bits the
// fraction of a second.
type Timestamp uint64

// NewTimestamp returns the Timestamp for the given time. The fraction is
// rounded to the nearest 1/2^32 second.
func NewTimestamp(t time.Time) Timestamp {
	d := t.UTC().Sub(ntpEpoch)
	sec := uint64(d / time.Second)
	nsec := uint64(d % time.Second)

	frac := ((nsec << 32) + 500000000) / 1000000000

	return Timestamp((sec&0xffffffff)<<32 | frac)
}

// Seconds returns the integer part of the timestamp.
func (ts Timestamp) Seconds() uint32 {
	return uint32(ts >> 32)
}

// Fraction returns the fractional part of the timestamp.
func (ts Timestamp) Fraction() uint32 {
	return uint32(ts)
}

// IsZero returns true when the timestamp is not set.
func (ts Timestamp) IsZero() bool {
	return ts == 0
}

// Milliseconds returns the number of milliseconds since the NTP epoch.
// Sub-millisecond fractions are truncated.
//
// A non-zero timestamp with the most significant bit cleared is reckoned
// from era 1 (2036-02-07T06:28:16Z), see RFC 4330 section 3.
func (ts Timestamp) Milliseconds() uint64 {
	sec := uint64(ts.Seconds())
	frac := uint64(ts.Fraction())

	ms := sec*1000 + (frac*1000)>>32
	if !ts.IsZero() && sec&0x80000000 == 0 {
		ms += eraMilliseconds
	}
	return ms
}

// Time returns the timestamp as UTC time, truncated to milliseconds.
func (ts Timestamp) Time() time.Time {
	return MillisecondsToTime(ts.Milliseconds())
}

// MarshalBinary encodes the timestamp in network byte order.
func (ts Timestamp) MarshalBinary() ([]byte, error) {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(ts))
	return out, nil
}

// EncodeTimestamp writes the NTP timestamp of t into the first 8 bytes of b.
func EncodeTimestamp(b []byte, t time.Time) {
	binary.BigEndian.PutUint64(b[:8], uint64(NewTimestamp(t)))
}

// DecodeTimestamp reads the NTP timestamp from the first 8 bytes of b and
// returns it as milliseconds since the NTP epoch.
func DecodeTimestamp(b []byte) uint64 {
	return Timestamp(binary.BigEndian.Uint64(b[:8])).Milliseconds()
}

// MillisecondsToTime converts milliseconds since the NTP epoch into time.
func MillisecondsToTime(ms uint64) time.Time {
	return ntpEpoch.Add(time.Duration(ms) * time.Millisecond)
}

// TimeToMilliseconds converts the given time to (fractional) milliseconds
// since the NTP epoch.
func TimeToMilliseconds(t time.Time) float64 {
	return float64(t.UTC().Sub(ntpEpoch)) / float64(time.Millisecond)
}

// ShortTimestampToTime decodes the first 4 bytes of b as the integer seconds
// of an NTP timestamp. No fraction is used.
func ShortTimestampToTime(b []byte) time.Time {
	sec := binary.BigEndian.Uint32(b[:4])
	return Timestamp(uint64(sec) << 32).Time()
}
