package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyVariantsAreDistinct(t *testing.T) {
	// Same 32 bytes under different tags are different keys.
	raw := [32]byte{0xAA, 0xBB}
	account := AccountKey(AccountHash(raw))
	hash := HashKey(HashAddr(raw))

	assert.NotEqual(t, account.ToBytes(), hash.ToBytes())

	_, ok := account.AsHash()
	assert.False(t, ok)
	_, ok = hash.AsAccount()
	assert.False(t, ok)

	a, ok := account.AsAccount()
	assert.True(t, ok)
	assert.Equal(t, AccountHash(raw), a)
}

func TestKeyRoundTrip(t *testing.T) {
	uref := IssueURef([URefAddrLength]byte{9, 8, 7}, AccessReadAdd)
	for _, key := range []Key{
		AccountKey(AccountHash{1}),
		HashKey(HashAddr{2}),
		URefKey(uref),
	} {
		decoded, err := KeyFromBytes(key.ToBytes())
		require.NoError(t, err)
		assert.Equal(t, key, decoded)
	}
}

func TestKeyFromBytesRejectsBadInput(t *testing.T) {
	_, err := KeyFromBytes([]byte{99})
	assert.ErrorIs(t, err, ErrFormat)

	_, err = KeyFromBytes([]byte{0, 1, 2})
	assert.ErrorIs(t, err, ErrEarlyEnd)

	valid := AccountKey(AccountHash{1}).ToBytes()
	_, err = KeyFromBytes(append(valid, 0))
	assert.ErrorIs(t, err, ErrLeftoverBytes)
}

func TestParseKeyRoundTrip(t *testing.T) {
	uref := IssueURef([URefAddrLength]byte{3, 1, 4}, AccessReadAddWrite)
	for _, key := range []Key{
		AccountKey(AccountHash{0xCC}),
		HashKey(HashAddr{0xDD}),
		URefKey(uref),
	} {
		parsed, err := ParseKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	}

	_, err := ParseKey("balance-0011")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseAccountHash(t *testing.T) {
	a := AccountHash{0xEE, 0x01}
	parsed, err := ParseAccountHash(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseAccountHash("account-zz")
	assert.ErrorIs(t, err, ErrFormat)
	_, err = ParseAccountHash("account-0011")
	assert.ErrorIs(t, err, ErrFormat)
}
