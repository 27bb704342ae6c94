package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLValueRoundTrip(t *testing.T) {
	uref := IssueURef([URefAddrLength]byte{1, 2, 3}, AccessReadWrite)
	cases := []struct {
		name string
		in   any
		out  func() any
	}{
		{"bool", true, func() any { return new(bool) }},
		{"i32", int32(-7), func() any { return new(int32) }},
		{"i64", int64(-1 << 40), func() any { return new(int64) }},
		{"u8", uint8(255), func() any { return new(uint8) }},
		{"u32", uint32(0xDEADBEEF), func() any { return new(uint32) }},
		{"u64", uint64(1) << 60, func() any { return new(uint64) }},
		{"string", "token-balance", func() any { return new(string) }},
		{"bytes", []byte{0, 1, 2}, func() any { return new([]byte) }},
		{"key", AccountKey(AccountHash{0xAB}), func() any { return new(Key) }},
		{"uref", uref, func() any { return new(URef) }},
		{"key list", []Key{HashKey(HashAddr{1}), URefKey(uref)}, func() any { return new([]Key) }},
		{"uref list", []URef{uref}, func() any { return new([]URef) }},
		{"named keys", NamedKeys{"a": AccountKey(AccountHash{1}), "b": URefKey(uref)}, func() any { return new(NamedKeys) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewCLValue(tc.in)
			require.NoError(t, err)

			decoded, err := CLValueFromBytes(v.ToBytes())
			require.NoError(t, err)
			assert.True(t, decoded.Type.Equal(v.Type))

			out := tc.out()
			require.NoError(t, decoded.Into(out))
		})
	}
}

func TestCLValueRoundTripValues(t *testing.T) {
	v := MustCLValue(uint64(42))
	decoded, err := CLValueFromBytes(v.ToBytes())
	require.NoError(t, err)

	var got uint64
	require.NoError(t, decoded.Into(&got))
	assert.Equal(t, uint64(42), got)

	nk := NamedKeys{"counter": AccountKey(AccountHash{7})}
	var gotNK NamedKeys
	require.NoError(t, MustCLValue(nk).Into(&gotNK))
	assert.Equal(t, nk, gotNK)
}

func TestIntoTypeMismatchIsRecoverable(t *testing.T) {
	v := MustCLValue("not a number")

	var n uint64
	err := v.Into(&n)
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))

	// The envelope is intact and the right question still works.
	var s string
	require.NoError(t, v.Into(&s))
	assert.Equal(t, "not a number", s)
}

func TestIntoRejectsMalformedPayload(t *testing.T) {
	// Declared u32 with a truncated payload is a codec error, not a
	// mismatch.
	v := CLValue{Type: CLTypeU32(), Bytes: []byte{1, 2}}
	var n uint32
	err := v.Into(&n)
	require.Error(t, err)
	assert.False(t, IsTypeMismatch(err))

	// Trailing garbage after a complete value must not decode.
	v = CLValue{Type: CLTypeU32(), Bytes: []byte{1, 2, 3, 4, 5}}
	err = v.Into(&n)
	assert.ErrorIs(t, err, ErrLeftoverBytes)
}

func TestCLValueEnvelopePassThrough(t *testing.T) {
	v := MustCLValue(uint32(9))
	var env CLValue
	require.NoError(t, v.Into(&env))
	assert.Equal(t, v, env)
}

func TestOptionEncoding(t *testing.T) {
	some := OptionSome(MustCLValue(uint64(5)))
	assert.True(t, some.Type.Equal(CLTypeOption(CLTypeU64())))

	var got uint64
	present, err := some.IntoOption(&got)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, uint64(5), got)

	none := OptionNone(CLTypeU64())
	present, err = none.IntoOption(&got)
	require.NoError(t, err)
	assert.False(t, present)

	// Optionals survive the wire.
	decoded, err := CLValueFromBytes(some.ToBytes())
	require.NoError(t, err)
	present, err = decoded.IntoOption(&got)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, uint64(5), got)
}

func TestIntoOptionRejectsNonOption(t *testing.T) {
	var got uint64
	_, err := MustCLValue(uint64(5)).IntoOption(&got)
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
}

func TestCLTypeCompositeRoundTrip(t *testing.T) {
	typ := CLTypeMap(CLTypeString(), CLTypeList(CLTypeOption(CLTypeKey())))
	decoded, rest, err := TakeCLType(typ.ToBytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, typ.Equal(decoded))
	assert.Equal(t, "Map(String,List(Option(Key)))", typ.String())
}

func TestTakeCLTypeRejectsUnknownTag(t *testing.T) {
	_, _, err := TakeCLType([]byte{0xFF})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestEncodeDecodeCLValues(t *testing.T) {
	args := []CLValue{MustCLValue(uint64(1)), MustCLValue("two"), UnitValue()}
	decoded, err := DecodeCLValues(EncodeCLValues(args))
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	for i := range args {
		assert.True(t, decoded[i].Type.Equal(args[i].Type))
		assert.Equal(t, args[i].Bytes, decoded[i].Bytes)
	}

	empty, err := DecodeCLValues(EncodeCLValues(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
