package transport

import (
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc/encoding"
)

// dynamicCodecName is registered with grpc's encoding package so both
// Server and Client can select it per-call (grpc.CallContentSubtype),
// instead of grpc's default codec, which only knows how to marshal the
// generated, protoreflect.ProtoMessage-shaped types a protoc run would
// have produced — exactly the thing this package has neither (no
// compiled .proto, schema.go builds descriptors at runtime instead).
const dynamicCodecName = "funcps-dynamic"

// dynamicCodec implements grpc/encoding.Codec by delegating straight to
// *dynamic.Message's own Marshal/Unmarshal, which already know how to
// serialise against an arbitrary runtime-built descriptor without
// needing the generated Go struct protoc normally emits.
type dynamicCodec struct{}

func (dynamicCodec) Name() string { return dynamicCodecName }

func (dynamicCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*dynamic.Message)
	if !ok {
		return nil, fmt.Errorf("transport: dynamicCodec.Marshal: %T is not a *dynamic.Message", v)
	}
	return m.Marshal()
}

func (dynamicCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*dynamic.Message)
	if !ok {
		return fmt.Errorf("transport: dynamicCodec.Unmarshal: %T is not a *dynamic.Message", v)
	}
	return m.Unmarshal(data)
}

func init() {
	encoding.RegisterCodec(dynamicCodec{})
}
