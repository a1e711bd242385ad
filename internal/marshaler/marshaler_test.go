package marshaler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
)

func testSample() sntp.Sample {
	base := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

	return sntp.Sample{
		Server: "192.0.2.1:123",
		Response: packets.ResponsePacket{
			VersionNumber:      4,
			Mode:               packets.ModeServer,
			StratumRaw:         2,
			PollExponent:       6,
			PrecisionExponent:  -20,
			RootDelay:          0x8000,
			ReferenceTimestamp: packets.NewTimestamp(base.Add(-time.Minute)),
			OriginateTimestamp: packets.NewTimestamp(base),
			ReceiveTimestamp:   packets.NewTimestamp(base.Add(100 * time.Millisecond)),
			TransmitTimestamp:  packets.NewTimestamp(base.Add(110 * time.Millisecond)),
		},
		RawLength:        48,
		DestinationTime:  base.Add(50 * time.Millisecond),
		RoundTripDelayMs: 40,
		ClockOffsetMs:    80,
		ReferenceID:      "2026-10-19 11:59:00",
		Valid:            true,
	}
}

func TestSampleToStruct(t *testing.T) {
	assert := require.New(t)

	pl, err := SampleToStruct(testSample(), map[string]string{"site": "lab"})
	assert.NoError(err)

	f := pl.GetFields()
	assert.Equal("192.0.2.1:123", f["server"].GetStringValue())
	assert.True(f["valid"].GetBoolValue())
	assert.Equal("Server", f["mode"].GetStringValue())
	assert.Equal(2.0, f["stratum"].GetNumberValue())
	assert.Equal("Secondary Reference", f["stratumClass"].GetStringValue())
	assert.Equal(64.0, f["pollInterval"].GetNumberValue())
	assert.Equal(500.0, f["rootDelayMs"].GetNumberValue())
	assert.Equal(40.0, f["roundTripDelayMs"].GetNumberValue())
	assert.Equal(80.0, f["clockOffsetMs"].GetNumberValue())
	assert.Equal("2026-10-19T12:00:00.05Z", f["destinationTime"].GetStringValue())
	assert.Equal("2026-10-19T12:00:00.1Z", f["receiveTime"].GetStringValue())
	assert.Equal("lab", f["metaData"].GetStructValue().GetFields()["site"].GetStringValue())
}

func TestSampleToStructInvalidUTF8(t *testing.T) {
	assert := require.New(t)

	s := testSample()
	s.ReferenceID = "G\xc0S\xff"
	s.ErrorMessage = "bad \xfe"

	pl, err := SampleToStruct(s, map[string]string{"raw": "\xff"})
	assert.NoError(err)

	f := pl.GetFields()
	assert.Equal("G\uFFFDS\uFFFD", f["referenceId"].GetStringValue())
	assert.Equal("bad \uFFFD", f["error"].GetStringValue())
	assert.Equal("\uFFFD", f["metaData"].GetStructValue().GetFields()["raw"].GetStringValue())
}

func TestGetMarshaler(t *testing.T) {
	pl, err := SampleToStruct(testSample(), nil)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		assert := require.New(t)

		m, err := GetMarshaler("json")
		assert.NoError(err)

		b, err := m.Marshal(pl)
		assert.NoError(err)

		var out map[string]interface{}
		assert.NoError(json.Unmarshal(b, &out))
		assert.Equal("192.0.2.1:123", out["server"])
		assert.Equal(80.0, out["clockOffsetMs"])

		var pl2 structpb.Struct
		assert.NoError(m.Unmarshal(b, &pl2))
		assert.True(proto.Equal(pl, &pl2))
	})

	t.Run("protobuf", func(t *testing.T) {
		assert := require.New(t)

		m, err := GetMarshaler("protobuf")
		assert.NoError(err)

		b, err := m.Marshal(pl)
		assert.NoError(err)

		var pl2 structpb.Struct
		assert.NoError(m.Unmarshal(b, &pl2))
		assert.True(proto.Equal(pl, &pl2))
	})

	t.Run("unknown", func(t *testing.T) {
		assert := require.New(t)

		_, err := GetMarshaler("xml")
		assert.EqualError(err, "unknown marshaler: xml")
	})
}
