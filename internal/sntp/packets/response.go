package packets

import (
	"encoding/binary"
	"math"
	"time"
)

// ResponsePacket contains the decoded header as sent by the server.
type ResponsePacket struct {
	LeapIndicator      LeapIndicator
	VersionNumber      uint8
	Mode               Mode
	StratumRaw         uint8
	PollExponent       int8
	PrecisionExponent  int8
	RootDelay          int32 // 16.16 fixed-point seconds
	RootDispersion     int32 // 16.16 fixed-point seconds
	ReferenceID        [4]byte
	ReferenceTimestamp Timestamp
	OriginateTimestamp Timestamp
	ReceiveTimestamp   Timestamp
	TransmitTimestamp  Timestamp
}

// UnmarshalBinary decodes the object from binary form. Only the first
// PacketSize bytes are used.
func (p *ResponsePacket) UnmarshalBinary(data []byte) error {
	if len(data) < PacketSize {
		return ErrMalformedPacket
	}

	p.LeapIndicator = LeapIndicator(data[0] >> 6)
	p.VersionNumber = (data[0] & 0x38) >> 3
	p.Mode = modeFromRaw(data[0] & 0x07)
	p.StratumRaw = data[1]
	p.PollExponent = int8(data[2])
	p.PrecisionExponent = int8(data[3])
	p.RootDelay = int32(binary.BigEndian.Uint32(data[offsetRootDelay:]))
	p.RootDispersion = int32(binary.BigEndian.Uint32(data[offsetRootDispersion:]))
	copy(p.ReferenceID[:], data[offsetReferenceID:offsetReferenceID+4])
	p.ReferenceTimestamp = Timestamp(binary.BigEndian.Uint64(data[offsetReferenceTimestamp:]))
	p.OriginateTimestamp = Timestamp(binary.BigEndian.Uint64(data[offsetOriginateTimestamp:]))
	p.ReceiveTimestamp = Timestamp(binary.BigEndian.Uint64(data[offsetReceiveTimestamp:]))
	p.TransmitTimestamp = Timestamp(binary.BigEndian.Uint64(data[offsetTransmitTimestamp:]))

	return nil
}

// MarshalBinary marshals the object in binary form.
func (p ResponsePacket) MarshalBinary() ([]byte, error) {
	out := make([]byte, PacketSize)
	out[0] = byte(p.LeapIndicator&0x03)<<6 | (p.VersionNumber&0x07)<<3 | byte(p.Mode&0x07)
	out[1] = p.StratumRaw
	out[2] = byte(p.PollExponent)
	out[3] = byte(p.PrecisionExponent)
	binary.BigEndian.PutUint32(out[offsetRootDelay:], uint32(p.RootDelay))
	binary.BigEndian.PutUint32(out[offsetRootDispersion:], uint32(p.RootDispersion))
	copy(out[offsetReferenceID:], p.ReferenceID[:])
	binary.BigEndian.PutUint64(out[offsetReferenceTimestamp:], uint64(p.ReferenceTimestamp))
	binary.BigEndian.PutUint64(out[offsetOriginateTimestamp:], uint64(p.OriginateTimestamp))
	binary.BigEndian.PutUint64(out[offsetReceiveTimestamp:], uint64(p.ReceiveTimestamp))
	binary.BigEndian.PutUint64(out[offsetTransmitTimestamp:], uint64(p.TransmitTimestamp))
	return out, nil
}

// Stratum returns the stratum class.
func (p ResponsePacket) Stratum() Stratum {
	return StratumFromRaw(p.StratumRaw)
}

// PollInterval returns the maximum interval between successive messages
// in seconds.
func (p ResponsePacket) PollInterval() float64 {
	return math.Pow(2, float64(p.PollExponent))
}

// Precision returns the precision of the server clock in seconds.
func (p ResponsePacket) Precision() float64 {
	return math.Pow(2, float64(p.PrecisionExponent))
}

// RootDelayMs returns the total round-trip delay to the primary reference
// source in milliseconds.
func (p ResponsePacket) RootDelayMs() float64 {
	return fixedPointToMs(p.RootDelay)
}

// RootDispersionMs returns the nominal error relative to the primary
// reference source in milliseconds.
func (p ResponsePacket) RootDispersionMs() float64 {
	return fixedPointToMs(p.RootDispersion)
}

// ReferenceTime returns the time the server clock was last set.
func (p ResponsePacket) ReferenceTime() time.Time {
	return p.ReferenceTimestamp.Time()
}

// OriginateTime returns T1, the client transmit time echoed by the server.
func (p ResponsePacket) OriginateTime() time.Time {
	return p.OriginateTimestamp.Time()
}

// ReceiveTime returns T2, the time the request arrived at the server.
func (p ResponsePacket) ReceiveTime() time.Time {
	return p.ReceiveTimestamp.Time()
}

// TransmitTime returns T3, the time the response departed the server.
func (p ResponsePacket) TransmitTime() time.Time {
	return p.TransmitTimestamp.Time()
}

func fixedPointToMs(v int32) float64 {
	return 1000 * (float64(v) / 0x10000)
}
