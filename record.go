package liteql

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueKind tags the five possible variants of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInteger
	KindFloat
	KindBlob
	KindText
)

// Value is the tagged union every decoded column value materialises to.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind    ValueKind
	Integer int64
	Float   float64
	Blob    []byte
	Text    string
}

// NullValue is the shared Null value.
var NullValue = Value{Kind: KindNull}

// IntegerValue builds an Integer value.
func IntegerValue(n int64) Value { return Value{Kind: KindInteger, Integer: n} }

// FloatValue builds a Float value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// TextValue builds a Text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// BlobValue builds a Blob value.
func BlobValue(b []byte) Value { return Value{Kind: KindBlob, Blob: b} }

// String renders a Value the way the core's minimal output formatting
// does: Null as empty, numbers in decimal, text verbatim, blobs as a
// debug hex dump.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindInteger:
		return fmt.Sprintf("%d", v.Integer)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindText:
		return v.Text
	case KindBlob:
		return fmt.Sprintf("%x", v.Blob)
	default:
		return ""
	}
}

// compare orders two values: first by variant (Null < Integer < Float <
// Blob < Text), then within a
// variant by the natural ordering of the inner value. It returns -1, 0,
// or 1.
func (v Value) compare(other Value) int {
	if v.Kind != other.Kind {
		if v.Kind < other.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindNull:
		return 0
	case KindInteger:
		switch {
		case v.Integer < other.Integer:
			return -1
		case v.Integer > other.Integer:
			return 1
		default:
			return 0
		}
	case KindFloat:
		switch {
		case v.Float < other.Float:
			return -1
		case v.Float > other.Float:
			return 1
		default:
			return 0
		}
	case KindText:
		switch {
		case v.Text < other.Text:
			return -1
		case v.Text > other.Text:
			return 1
		default:
			return 0
		}
	case KindBlob:
		n := len(v.Blob)
		if len(other.Blob) < n {
			n = len(other.Blob)
		}
		for i := 0; i < n; i++ {
			if v.Blob[i] != other.Blob[i] {
				if v.Blob[i] < other.Blob[i] {
					return -1
				}
				return 1
			}
		}
		switch {
		case len(v.Blob) < len(other.Blob):
			return -1
		case len(v.Blob) > len(other.Blob):
			return 1
		default:
			return 0
		}
	}
	return 0
}

// serialTypeBodySize returns the number of body bytes a serial type
// occupies, and whether the type is legal (10 and 11 are reserved).
func serialTypeBodySize(serialType uint64) (size int, ok bool) {
	switch serialType {
	case 0, 8, 9:
		return 0, true
	case 1:
		return 1, true
	case 2:
		return 2, true
	case 3:
		return 3, true
	case 4:
		return 4, true
	case 5:
		return 6, true
	case 6, 7:
		return 8, true
	case 10, 11:
		return 0, false
	default:
		if serialType >= 12 && serialType%2 == 0 {
			return int((serialType - 12) / 2), true
		}
		if serialType >= 13 && serialType%2 == 1 {
			return int((serialType - 13) / 2), true
		}
		return 0, false
	}
}

// decodeValue interprets body (exactly serialTypeBodySize(serialType)
// bytes) according to serialType.
func decodeValue(serialType uint64, body []byte) (Value, error) {
	switch serialType {
	case 0:
		return NullValue, nil
	case 8:
		return IntegerValue(0), nil
	case 9:
		return IntegerValue(1), nil
	case 1:
		return IntegerValue(int64(int8(body[0]))), nil
	case 2:
		return IntegerValue(int64(int16(binary.BigEndian.Uint16(body)))), nil
	case 3:
		v := int32(body[0])<<16 | int32(body[1])<<8 | int32(body[2])
		if body[0]&0x80 != 0 {
			v |= ^int32(0xffffff)
		}
		return IntegerValue(int64(v)), nil
	case 4:
		return IntegerValue(int64(int32(binary.BigEndian.Uint32(body)))), nil
	case 5:
		v := int64(body[0])<<40 | int64(body[1])<<32 | int64(body[2])<<24 |
			int64(body[3])<<16 | int64(body[4])<<8 | int64(body[5])
		if body[0]&0x80 != 0 {
			v |= ^int64(0xffffffffffff)
		}
		return IntegerValue(v), nil
	case 6:
		return IntegerValue(int64(binary.BigEndian.Uint64(body))), nil
	case 7:
		return FloatValue(math.Float64frombits(binary.BigEndian.Uint64(body))), nil
	default:
		size, ok := serialTypeBodySize(serialType)
		if !ok {
			return Value{}, wrapErr("decode_value", &UnknownSerialTypeError{SerialType: serialType}, nil)
		}
		if serialType%2 == 0 {
			return BlobValue(append([]byte(nil), body[:size]...)), nil
		}
		return TextValue(string(body[:size])), nil
	}
}

// Record is a decoded payload: a record header's serial-type codes plus
// the body values they describe, in column order.
type Record struct {
	SerialTypes []uint64
	Values      []Value
}

// decodeRecord parses a record payload: a varint header length, followed
// by one serial-type varint per column, followed by the body bytes
// concatenated in header order.
func decodeRecord(payload []byte) (Record, error) {
	headerSize, n, err := readVarint(payload, 0)
	if err != nil {
		return Record{}, wrapErr("decode_record_header_size", err, nil)
	}
	if int(headerSize) > len(payload) {
		return Record{}, wrapErr("decode_record_header_size", ErrMalformedRecord, map[string]any{
			"header_size":  headerSize,
			"payload_size": len(payload),
		})
	}

	var serialTypes []uint64
	offset := n
	for offset < int(headerSize) {
		st, read, err := readVarint(payload, offset)
		if err != nil {
			return Record{}, wrapErr("decode_record_serial_type", err, nil)
		}
		serialTypes = append(serialTypes, st)
		offset += read
	}

	values := make([]Value, len(serialTypes))
	bodyOffset := int(headerSize)
	for i, st := range serialTypes {
		size, ok := serialTypeBodySize(st)
		if !ok {
			return Record{}, wrapErr("decode_record_value", &UnknownSerialTypeError{SerialType: st}, map[string]any{
				"column": i,
			})
		}
		if bodyOffset+size > len(payload) {
			return Record{}, wrapErr("decode_record_value", ErrMalformedRecord, map[string]any{
				"column":       i,
				"needed_bytes": bodyOffset + size,
				"have_bytes":   len(payload),
			})
		}
		val, err := decodeValue(st, payload[bodyOffset:bodyOffset+size])
		if err != nil {
			return Record{}, err
		}
		values[i] = val
		bodyOffset += size
	}

	return Record{SerialTypes: serialTypes, Values: values}, nil
}
