package sntp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/refid"
)

func TestDecodePipeline(t *testing.T) {
	assert := require.New(t)

	b := []byte{
		0x24, 0x01, 0x04, 0xfa, // LI=0, VN=4, Mode=4, stratum 1, poll 4, precision -6
		0x00, 0x00, 0x00, 0x00, // root delay
		0x00, 0x00, 0x80, 0x00, // root dispersion 0.5s
		'G', 'P', 'S', ' ', // reference id
		0xbc, 0x17, 0xc2, 0x00, 0x00, 0x00, 0x00, 0x00, // reference 2000-01-01 00:00:00
		0xbc, 0x17, 0xc2, 0x00, 0x00, 0x00, 0x00, 0x00, // originate 2000-01-01 00:00:00
		0xbc, 0x17, 0xc2, 0x00, 0x80, 0x00, 0x00, 0x00, // receive 2000-01-01 00:00:00.5
		0xbc, 0x17, 0xc2, 0x01, 0x00, 0x00, 0x00, 0x00, // transmit 2000-01-01 00:00:01
	}
	t4 := time.Date(2000, time.January, 1, 0, 0, 1, 200000000, time.UTC)

	var resp packets.ResponsePacket
	assert.NoError(resp.UnmarshalBinary(b))
	assert.True(IsValid(resp, len(b)))

	assert.Equal(packets.LeapNoWarning, resp.LeapIndicator)
	assert.EqualValues(4, resp.VersionNumber)
	assert.Equal(packets.ModeServer, resp.Mode)
	assert.Equal("Primary Reference", resp.Stratum().String())
	assert.Equal(16.0, resp.PollInterval())
	assert.Equal(0.015625, resp.Precision())
	assert.Equal(0.0, resp.RootDelayMs())
	assert.Equal(500.0, resp.RootDispersionMs())

	delay, offset := ComputeOffset(
		float64(resp.OriginateTimestamp.Milliseconds()),
		float64(resp.ReceiveTimestamp.Milliseconds()),
		float64(resp.TransmitTimestamp.Milliseconds()),
		packets.TimeToMilliseconds(t4),
	)
	assert.InDelta(700, delay, 0.001)
	assert.InDelta(150, offset, 0.001)

	ref, err := refid.NewResolver(refid.Config{}).Resolve(context.Background(), resp.Stratum(), resp.VersionNumber, resp.ReferenceID)
	assert.NoError(err)
	assert.Equal("GPS ", ref)

	assert.Equal(time.Date(2000, time.January, 1, 0, 0, 0, 500000000, time.UTC), resp.ReceiveTime())
}
