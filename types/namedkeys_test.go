package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedKeysNamesAreSorted(t *testing.T) {
	nk := NamedKeys{
		"zeta":  AccountKey(AccountHash{1}),
		"alpha": AccountKey(AccountHash{2}),
		"mid":   AccountKey(AccountHash{3}),
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, nk.Names())
}

func TestNamedKeysEncodingIsDeterministic(t *testing.T) {
	nk := NamedKeys{
		"b": AccountKey(AccountHash{1}),
		"a": HashKey(HashAddr{2}),
		"c": URefKey(IssueURef([URefAddrLength]byte{3}, AccessRead)),
	}
	first := nk.ToBytes()
	for i := 0; i < 16; i++ {
		assert.Equal(t, first, nk.ToBytes())
	}

	decoded, err := NamedKeysFromBytes(first)
	require.NoError(t, err)
	assert.Equal(t, nk, decoded)
}

func TestNamedKeysCloneIsIndependent(t *testing.T) {
	nk := NamedKeys{"a": AccountKey(AccountHash{1})}
	clone := nk.Clone()
	clone["b"] = AccountKey(AccountHash{2})

	assert.Len(t, nk, 1)
	assert.Len(t, clone, 2)
}

func TestNamedKeysURefs(t *testing.T) {
	u1 := IssueURef([URefAddrLength]byte{1}, AccessRead)
	u2 := IssueURef([URefAddrLength]byte{2}, AccessReadWrite)
	nk := NamedKeys{
		"b-cap":  URefKey(u2),
		"a-cap":  URefKey(u1),
		"record": HashKey(HashAddr{9}),
	}

	// Enumeration order, uref variants only.
	assert.Equal(t, []URef{u1, u2}, nk.URefs())
}
