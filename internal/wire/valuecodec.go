// Package wire implements the serialisation format a suspended
// computation crosses process boundaries in: a self-describing binary
// encoding for the value.Object arguments a Suspension carries (the
// payload of internal/checkpoint.Store's SQLite blob and of
// internal/transport's gRPC messages), and a compact bit-packed envelope
// wrapping them with enough header metadata to route and version a
// resume request sent over a raw stream.
//
// Grounded on SPEC_FULL.md's domain-stack mandate to give
// github.com/funvibe/funbit (the teacher's bit-string construction/
// matching library, present in its go.mod but not exercised by any
// retrieved teacher source file) a concrete home: the envelope header
// (version, flags, continuation-id length) is exactly the kind of
// fixed-width bit-packed record funbit exists to build and parse.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/funvibe/funcps/internal/value"
)

// Value tags, one byte each, identifying how the following payload in an
// encoded value.Object stream is shaped.
const (
	tagNil byte = iota
	tagBool
	tagInt
	tagFloat
	tagStr
	tagList
	tagException
	tagStop
)

// EncodeArgs serialises a slice of value.Object (a Suspension's pending
// call arguments) into a self-describing byte stream: a 4-byte count
// followed by each value's tagged encoding in order.
func EncodeArgs(args []value.Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(args))); err != nil {
		return nil, err
	}
	for _, a := range args {
		if err := encodeValue(&buf, a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeArgs is EncodeArgs's inverse.
func DecodeArgs(data []byte) ([]value.Object, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("wire: reading arg count: %w", err)
	}
	args := make([]value.Object, count)
	for i := range args {
		v, err := decodeValue(r)
		if err != nil {
			return nil, fmt.Errorf("wire: decoding arg %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func encodeValue(buf *bytes.Buffer, v value.Object) error {
	switch x := v.(type) {
	case nil, *value.Nil:
		buf.WriteByte(tagNil)
		return nil
	case *value.Bool:
		buf.WriteByte(tagBool)
		if x.Value {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	case *value.Int:
		buf.WriteByte(tagInt)
		return binary.Write(buf, binary.BigEndian, x.Value)
	case *value.Float:
		buf.WriteByte(tagFloat)
		return binary.Write(buf, binary.BigEndian, math.Float64bits(x.Value))
	case *value.Str:
		buf.WriteByte(tagStr)
		return writeString(buf, x.Value)
	case *value.List:
		buf.WriteByte(tagList)
		if err := binary.Write(buf, binary.BigEndian, uint32(len(x.Elements))); err != nil {
			return err
		}
		for _, el := range x.Elements {
			if err := encodeValue(buf, el); err != nil {
				return err
			}
		}
		return nil
	case *value.Exception:
		buf.WriteByte(tagException)
		if err := writeString(buf, x.Kind); err != nil {
			return err
		}
		return writeString(buf, x.Message)
	case *value.Stop:
		buf.WriteByte(tagStop)
		return nil
	default:
		return fmt.Errorf("wire: %s has no wire encoding", v.Type())
	}
}

func decodeValue(r *bytes.Reader) (value.Object, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNil:
		return value.NilValue, nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return value.BoolOf(b != 0), nil
	case tagInt:
		var n int64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		return &value.Int{Value: n}, nil
	case tagFloat:
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return nil, err
		}
		return &value.Float{Value: math.Float64frombits(bits)}, nil
	case tagStr:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &value.Str{Value: s}, nil
	case tagList:
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, err
		}
		elems := make([]value.Object, count)
		for i := range elems {
			v, err := decodeValue(r)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &value.List{Elements: elems}, nil
	case tagException:
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		msg, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.NewException(kind, msg), nil
	case tagStop:
		return value.StopValue, nil
	default:
		return nil, fmt.Errorf("wire: unknown value tag %d", tag)
	}
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}
