// Package packets implements the SNTP (RFC 2030) wire format.
//
//	                     1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|LI | VN  |Mode |    Stratum    |     Poll      |   Precision   |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                          Root Delay                           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                       Root Dispersion                         |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                     Reference Identifier                      |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                   Reference Timestamp (64)                    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                   Originate Timestamp (64)                    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Receive Timestamp (64)                     |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Transmit Timestamp (64)                    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
package packets

import (
	"errors"
)

// PacketSize defines the size of the SNTP header in bytes.
const PacketSize = 48

// Field offsets.
const (
	offsetRootDelay          = 4
	offsetRootDispersion     = 8
	offsetReferenceID        = 12
	offsetReferenceTimestamp = 16
	offsetOriginateTimestamp = 24
	offsetReceiveTimestamp   = 32
	offsetTransmitTimestamp  = 40
)

// RequestVersion is the version number set in requests. Together with
// LI=0 and Mode=3 this results in the header byte 0x1B.
const RequestVersion uint8 = 3

// Errors
var (
	ErrMalformedPacket = errors.New("sntp: at least 48 bytes of data are expected")
)

// LeapIndicator defines the leap-second warning.
type LeapIndicator uint8

// Available leap indicators.
const (
	LeapNoWarning LeapIndicator = iota
	LeapLastMinute61
	LeapLastMinute59
	LeapAlarm
)

func (l LeapIndicator) String() string {
	switch l {
	case LeapNoWarning:
		return "No warning"
	case LeapLastMinute61:
		return "Last minute has 61 seconds"
	case LeapLastMinute59:
		return "Last minute has 59 seconds"
	default:
		return "Alarm Condition (clock not synchronized)"
	}
}

// Mode defines the association mode.
type Mode uint8

// Available modes. The reserved values 0, 6 and 7 are all decoded as
// ModeUnknown.
const (
	ModeUnknown Mode = iota
	ModeSymmetricActive
	ModeSymmetricPassive
	ModeClient
	ModeServer
	ModeBroadcast
)

// modeFromRaw maps the 3 mode bits to a Mode.
func modeFromRaw(b uint8) Mode {
	switch b {
	case 1, 2, 3, 4, 5:
		return Mode(b)
	default:
		return ModeUnknown
	}
}

func (m Mode) String() string {
	switch m {
	case ModeSymmetricActive:
		return "Symmetric Active"
	case ModeSymmetricPassive:
		return "Symmetric Passive"
	case ModeClient:
		return "Client"
	case ModeServer:
		return "Server"
	case ModeBroadcast:
		return "Broadcast"
	default:
		return "Unknown"
	}
}

// Stratum defines the stratum class of the server.
type Stratum uint8

// Available stratum classes.
const (
	StratumUnspecified Stratum = iota
	StratumPrimaryReference
	StratumSecondaryReference
	StratumReserved
)

// StratumFromRaw maps the raw stratum byte to its class.
func StratumFromRaw(b uint8) Stratum {
	switch {
	case b == 0:
		return StratumUnspecified
	case b == 1:
		return StratumPrimaryReference
	case b <= 15:
		return StratumSecondaryReference
	default:
		return StratumReserved
	}
}

func (s Stratum) String() string {
	switch s {
	case StratumPrimaryReference:
		return "Primary Reference"
	case StratumSecondaryReference:
		return "Secondary Reference"
	case StratumReserved:
		return "Reserved"
	default:
		return "Unspecified"
	}
}
