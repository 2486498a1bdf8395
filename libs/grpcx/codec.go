package grpcx

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is negotiated via the content-subtype, so requests travel as
// application/grpc+json. Service messages are plain Go structs.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallJSON forces the JSON codec on a client call.
func CallJSON() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
