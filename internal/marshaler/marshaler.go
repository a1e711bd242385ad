// Package marshaler encodes samples for publication.
package marshaler

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
)

// Marshaler holds the marshal and unmarshal functions.
type Marshaler struct {
	Marshal   func(proto.Message) ([]byte, error)
	Unmarshal func([]byte, proto.Message) error
}

// GetMarshaler returns the marshaler by its name (json or protobuf).
func GetMarshaler(marshaler string) (*Marshaler, error) {
	switch marshaler {
	case "json":
		return &Marshaler{
			Marshal: func(msg proto.Message) ([]byte, error) {
				return protojson.MarshalOptions{
					EmitUnpopulated: true,
				}.Marshal(msg)
			},
			Unmarshal: func(b []byte, msg proto.Message) error {
				return protojson.UnmarshalOptions{
					DiscardUnknown: true,
				}.Unmarshal(b, msg)
			},
		}, nil
	case "protobuf":
		return &Marshaler{
			Marshal:   proto.Marshal,
			Unmarshal: proto.Unmarshal,
		}, nil
	default:
		return nil, fmt.Errorf("unknown marshaler: %s", marshaler)
	}
}

// SampleToStruct converts the sample and meta-data into a Struct message.
func SampleToStruct(s sntp.Sample, metaData map[string]string) (*structpb.Struct, error) {
	r := s.Response

	md := make(map[string]interface{}, len(metaData))
	for k, v := range metaData {
		md[k] = validString(v)
	}

	m := map[string]interface{}{
		"server":           s.Server,
		"valid":            s.Valid,
		"error":            validString(s.ErrorMessage),
		"rawLength":        s.RawLength,
		"leapIndicator":    r.LeapIndicator.String(),
		"versionNumber":    int(r.VersionNumber),
		"mode":             r.Mode.String(),
		"stratum":          int(r.StratumRaw),
		"stratumClass":     r.Stratum().String(),
		"pollInterval":     r.PollInterval(),
		"precision":        r.Precision(),
		"rootDelayMs":      r.RootDelayMs(),
		"rootDispersionMs": r.RootDispersionMs(),
		"referenceId":      validString(s.ReferenceID),
		"referenceTime":    formatTime(r.ReferenceTime()),
		"originateTime":    formatTime(r.OriginateTime()),
		"receiveTime":      formatTime(r.ReceiveTime()),
		"transmitTime":     formatTime(r.TransmitTime()),
		"destinationTime":  formatTime(s.DestinationTime),
		"roundTripDelayMs": s.RoundTripDelayMs,
		"clockOffsetMs":    s.ClockOffsetMs,
		"metaData":         md,
	}

	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errors.Wrap(err, "new struct error")
	}
	return out, nil
}

// validString replaces invalid UTF-8 sequences, which structpb rejects.
func validString(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
