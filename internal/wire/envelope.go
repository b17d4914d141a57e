package wire

import (
	"bytes"
	"fmt"

	"github.com/funvibe/funbit/pkg/funbit"

	"github.com/funvibe/funcps/internal/value"
)

// EnvelopeVersion is the only wire version this package currently emits.
const EnvelopeVersion = 1

// Flag bits carried in the envelope header.
const (
	FlagNone      uint8 = 0
	FlagGenerator uint8 = 1 << 0
)

// Suspension is a paused continuation invocation in wire form: the name
// of the continuation to resume and the arguments to resume it with,
// exactly what internal/runtime.Call holds in memory, made safe to ship
// across a stream.
type Suspension struct {
	Flags          uint8
	ContinuationID string
	Args           []value.Object
}

// Encode writes s as a bit-packed header (version:4, flags:4,
// continuation-id length:16, in that order) followed by the raw
// continuation-id bytes and the EncodeArgs-encoded argument blob.
// The header is the one part of the envelope funbit actually packs;
// the id and blob that follow are plain length-implied byte runs, since
// funbit's bit-level packing buys nothing once a field is already
// byte-aligned and variable-length.
func Encode(s Suspension) ([]byte, error) {
	id := []byte(s.ContinuationID)
	if len(id) > 0xFFFF {
		return nil, fmt.Errorf("wire: continuation id too long (%d bytes)", len(id))
	}

	builder := funbit.NewBuilder()
	funbit.AddInteger(builder, uint8(EnvelopeVersion), funbit.WithSize(4))
	funbit.AddInteger(builder, s.Flags, funbit.WithSize(4))
	funbit.AddInteger(builder, uint16(len(id)), funbit.WithSize(16))
	header, err := funbit.Build(builder)
	if err != nil {
		return nil, fmt.Errorf("wire: packing envelope header: %w", err)
	}

	argsBlob, err := EncodeArgs(s.Args)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding envelope args: %w", err)
	}

	var out bytes.Buffer
	out.Write(header.Bytes())
	out.Write(id)
	out.Write(argsBlob)
	return out.Bytes(), nil
}

// Decode is Encode's inverse.
func Decode(data []byte) (Suspension, error) {
	headerBits := funbit.NewBitStringFromBytes(data)

	var version, flags uint8
	var idLen uint16
	_, err := funbit.Match(headerBits,
		funbit.NewInteger(&version, funbit.WithSize(4)),
		funbit.NewInteger(&flags, funbit.WithSize(4)),
		funbit.NewInteger(&idLen, funbit.WithSize(16)),
	)
	if err != nil {
		return Suspension{}, fmt.Errorf("wire: unpacking envelope header: %w", err)
	}
	if version != EnvelopeVersion {
		return Suspension{}, fmt.Errorf("wire: unsupported envelope version %d", version)
	}

	rest := data[3:] // 4+4+16 bits == 3 header bytes
	if len(rest) < int(idLen) {
		return Suspension{}, fmt.Errorf("wire: envelope truncated before continuation id")
	}
	id := string(rest[:idLen])
	args, err := DecodeArgs(rest[idLen:])
	if err != nil {
		return Suspension{}, fmt.Errorf("wire: decoding envelope args: %w", err)
	}
	return Suspension{Flags: flags, ContinuationID: id, Args: args}, nil
}
