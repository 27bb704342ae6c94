// Package types contains the shared wire types and constants used on both
// sides of the host/guest boundary. Every value that crosses the boundary
// is encoded with the bytesrepr codec defined here: little-endian integers,
// u32 length prefixes for variable-sized data, deterministic ordering for
// maps. Host and guest must use these definitions rather than redefining
// them locally, otherwise the two sides silently disagree on the wire.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrEarlyEnd indicates the input ended before the declared payload.
	ErrEarlyEnd = errors.New("bytesrepr: unexpected end of input")
	// ErrLeftoverBytes indicates trailing bytes after a complete decode.
	ErrLeftoverBytes = errors.New("bytesrepr: leftover bytes after decode")
	// ErrFormat indicates a malformed tag or out-of-range value.
	ErrFormat = errors.New("bytesrepr: invalid format")
)

// AppendBool appends a bool as a single 0/1 byte.
func AppendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

// AppendU8 appends a single byte.
func AppendU8(b []byte, v uint8) []byte {
	return append(b, v)
}

// AppendU32 appends a little-endian uint32.
func AppendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendI32 appends a little-endian int32.
func AppendI32(b []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

// AppendU64 appends a little-endian uint64.
func AppendU64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

// AppendI64 appends a little-endian int64.
func AppendI64(b []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(b, uint64(v))
}

// AppendBytes appends a u32 length prefix followed by the raw bytes.
func AppendBytes(b []byte, v []byte) []byte {
	b = AppendU32(b, uint32(len(v)))
	return append(b, v...)
}

// AppendString appends a u32 length prefix followed by the UTF-8 bytes.
func AppendString(b []byte, v string) []byte {
	b = AppendU32(b, uint32(len(v)))
	return append(b, v...)
}

// TakeBool consumes a bool and returns the remainder.
func TakeBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, nil, ErrEarlyEnd
	}
	switch b[0] {
	case 0:
		return false, b[1:], nil
	case 1:
		return true, b[1:], nil
	default:
		return false, nil, fmt.Errorf("%w: bool byte %d", ErrFormat, b[0])
	}
}

// TakeU8 consumes a single byte and returns the remainder.
func TakeU8(b []byte) (uint8, []byte, error) {
	if len(b) < 1 {
		return 0, nil, ErrEarlyEnd
	}
	return b[0], b[1:], nil
}

// TakeU32 consumes a little-endian uint32 and returns the remainder.
func TakeU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrEarlyEnd
	}
	return binary.LittleEndian.Uint32(b), b[4:], nil
}

// TakeI32 consumes a little-endian int32 and returns the remainder.
func TakeI32(b []byte) (int32, []byte, error) {
	v, rest, err := TakeU32(b)
	return int32(v), rest, err
}

// TakeU64 consumes a little-endian uint64 and returns the remainder.
func TakeU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrEarlyEnd
	}
	return binary.LittleEndian.Uint64(b), b[8:], nil
}

// TakeI64 consumes a little-endian int64 and returns the remainder.
func TakeI64(b []byte) (int64, []byte, error) {
	v, rest, err := TakeU64(b)
	return int64(v), rest, err
}

// TakeBytes consumes a u32-length-prefixed byte slice. The returned slice
// is a copy, so callers may retain it without aliasing the input buffer.
// A zero-length payload decodes to nil, so an encode/decode round trip of
// an empty value is byte-identical and compares equal.
func TakeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := TakeU32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, ErrEarlyEnd
	}
	if n == 0 {
		return nil, rest, nil
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}

// TakeString consumes a u32-length-prefixed UTF-8 string.
func TakeString(b []byte) (string, []byte, error) {
	v, rest, err := TakeBytes(b)
	if err != nil {
		return "", nil, err
	}
	return string(v), rest, nil
}

// TakeFixed consumes exactly n bytes.
func TakeFixed(b []byte, n int) ([]byte, []byte, error) {
	if len(b) < n {
		return nil, nil, ErrEarlyEnd
	}
	out := make([]byte, n)
	copy(out, b[:n])
	return out, b[n:], nil
}

// expectEmpty converts trailing bytes into ErrLeftoverBytes. Decoders for
// complete wire values use it so that a valid prefix with garbage appended
// never decodes successfully.
func expectEmpty(rest []byte) error {
	if len(rest) != 0 {
		return ErrLeftoverBytes
	}
	return nil
}
