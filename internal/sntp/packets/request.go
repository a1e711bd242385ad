package packets

import (
	"encoding/binary"
	"time"
)

// requestHeader is the first byte of a request (0x1B).
const requestHeader = byte(LeapNoWarning)<<6 | RequestVersion<<3 | byte(ModeClient)

// RequestPacket is sent by the client to request the server time. All
// header fields are zero except for the transmit timestamp.
type RequestPacket struct {
	TransmitTime time.Time
}

// MarshalBinary marshals the object in binary form.
func (p RequestPacket) MarshalBinary() ([]byte, error) {
	out := make([]byte, PacketSize)
	out[0] = requestHeader
	EncodeTimestamp(out[offsetTransmitTimestamp:], p.TransmitTime)
	return out, nil
}

// UnmarshalBinary decodes the object from binary form.
func (p *RequestPacket) UnmarshalBinary(data []byte) error {
	if len(data) < PacketSize {
		return ErrMalformedPacket
	}
	ts := Timestamp(binary.BigEndian.Uint64(data[offsetTransmitTimestamp:]))
	p.TransmitTime = ts.Time()
	return nil
}
