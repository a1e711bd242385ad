package sntp

import "github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"

// IsValid returns true when exactly one full header was received and it was
// sent by a server.
func IsValid(resp packets.ResponsePacket, rawLength int) bool {
	return rawLength == packets.PacketSize && resp.Mode == packets.ModeServer
}
