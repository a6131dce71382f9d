// Package pbwire has small helpers over protowire for the handful of
// TensorFlow and TensorBoard messages this tool reads and writes without
// generated code.
package pbwire

import (
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one decoded protobuf field. Only the member matching Type is set.
type Field struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Fixed64 uint64
	Bytes   []byte
}

func (f Field) Float64() float64 { return math.Float64frombits(f.Fixed64) }
func (f Field) Float32() float32 { return math.Float32frombits(f.Fixed32) }
func (f Field) Int64() int64 { return int64(f.Varint) }
func (f Field) Text() string { return string(f.Bytes) }

// Fields splits a serialized message into its fields in wire order.
func Fields(b []byte) ([]Field, error) {
	var fields []Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.Fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.Fixed64Type:
			f.Fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		fields = append(fields, f)
	}
	return fields, nil
}

func AppendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// AppendMessage writes an embedded message. Empty messages are still written
// so that presence survives the round trip.
func AppendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func AppendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func AppendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func AppendPackedFloats(b []byte, num protowire.Number, vs []float32) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	return AppendMessage(b, num, packed)
}

// Floats decodes a repeated float field that may be packed or not.
func (f Field) Floats() []float32 {
	switch f.Type {
	case protowire.Fixed32Type:
		return []float32{f.Float32()}
	case protowire.BytesType:
		out := make([]float32, 0, len(f.Bytes)/4)
		for i := 0; i+4 <= len(f.Bytes); i += 4 {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(f.Bytes[i:])))
		}
		return out
	}
	return nil
}

// Doubles decodes a repeated double field that may be packed or not.
func (f Field) Doubles() []float64 {
	switch f.Type {
	case protowire.Fixed64Type:
		return []float64{f.Float64()}
	case protowire.BytesType:
		out := make([]float64, 0, len(f.Bytes)/8)
		for i := 0; i+8 <= len(f.Bytes); i += 8 {
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(f.Bytes[i:])))
		}
		return out
	}
	return nil
}
