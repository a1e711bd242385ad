package sntp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
)

func TestIsValid(t *testing.T) {
	testTable := []struct {
		Name      string
		Mode      packets.Mode
		RawLength int
		Expected  bool
	}{
		{"server", packets.ModeServer, 48, true},
		{"client", packets.ModeClient, 48, false},
		{"broadcast", packets.ModeBroadcast, 48, false},
		{"symmetric active", packets.ModeSymmetricActive, 48, false},
		{"unknown", packets.ModeUnknown, 48, false},
		{"server short", packets.ModeServer, 47, false},
		{"server long", packets.ModeServer, 68, false},
	}

	for _, tst := range testTable {
		t.Run(tst.Name, func(t *testing.T) {
			resp := packets.ResponsePacket{
				Mode:       tst.Mode,
				StratumRaw: 1,
			}
			assert.Equal(t, tst.Expected, IsValid(resp, tst.RawLength))
		})
	}
}
