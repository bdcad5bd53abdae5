package grpcserver

import (
	"sequencer/infra/codec"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype the gateway speaks. Requests and
// responses travel in the same JSON encoding the logs use.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return codec.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return codec.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
