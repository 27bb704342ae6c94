package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerEncodingIsLittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, AppendU32(nil, 0x12345678))
	assert.Equal(t, []byte{0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01},
		AppendU64(nil, 0x0123456789ABCDEF))
}

func TestAppendTakeRoundTrip(t *testing.T) {
	b := AppendBool(nil, true)
	b = AppendU8(b, 0x7F)
	b = AppendI32(b, -42)
	b = AppendU32(b, 42)
	b = AppendI64(b, -1)
	b = AppendU64(b, 1<<63)
	b = AppendString(b, "named-key")
	b = AppendBytes(b, []byte{1, 2, 3})

	v1, rest, err := TakeBool(b)
	require.NoError(t, err)
	assert.True(t, v1)

	v2, rest, err := TakeU8(rest)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7F), v2)

	v3, rest, err := TakeI32(rest)
	require.NoError(t, err)
	assert.Equal(t, int32(-42), v3)

	v4, rest, err := TakeU32(rest)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v4)

	v5, rest, err := TakeI64(rest)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v5)

	v6, rest, err := TakeU64(rest)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<63, v6)

	v7, rest, err := TakeString(rest)
	require.NoError(t, err)
	assert.Equal(t, "named-key", v7)

	v8, rest, err := TakeBytes(rest)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v8)
	assert.Empty(t, rest)
}

func TestTakeReportsEarlyEnd(t *testing.T) {
	_, _, err := TakeU32([]byte{1, 2})
	assert.ErrorIs(t, err, ErrEarlyEnd)

	_, _, err = TakeU64([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrEarlyEnd)

	// Length prefix claims more payload than the input carries.
	_, _, err = TakeBytes(AppendU32(nil, 10))
	assert.ErrorIs(t, err, ErrEarlyEnd)

	_, _, err = TakeFixed([]byte{1}, 2)
	assert.ErrorIs(t, err, ErrEarlyEnd)
}

func TestTakeBoolRejectsNonBinaryByte(t *testing.T) {
	_, _, err := TakeBool([]byte{2})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestTakeBytesEmptyPayloadIsNil(t *testing.T) {
	out, rest, err := TakeBytes(AppendBytes(nil, nil))
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, rest)

	// A unit envelope carries no payload; decoding it must reproduce the
	// original value exactly, nil bytes included.
	decoded, err := CLValueFromBytes(UnitValue().ToBytes())
	require.NoError(t, err)
	assert.Equal(t, UnitValue(), decoded)
}

func TestTakeBytesCopiesPayload(t *testing.T) {
	src := AppendBytes(nil, []byte{9, 9, 9})
	out, _, err := TakeBytes(src)
	require.NoError(t, err)

	src[4] = 0
	assert.Equal(t, []byte{9, 9, 9}, out)
}
