package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntryPoints() EntryPoints {
	return EntryPoints{
		{
			Name: "transfer",
			Params: []Parameter{
				{Name: "recipient", Type: CLTypeKey()},
				{Name: "amount", Type: CLTypeU64()},
			},
			Ret:    CLTypeBool(),
			Access: AccessPublic,
			Kind:   KindContract,
		},
		{
			Name:   "mint",
			Params: []Parameter{{Name: "amount", Type: CLTypeU64()}},
			Ret:    CLTypeUnit(),
			Access: AccessRestricted,
			Kind:   KindContract,
			Groups: []string{"minters", "admins"},
		},
		{
			Name: "install",
			Ret:  CLTypeURef(),
			Kind: KindSession,
		},
	}
}

func TestEntryPointsGet(t *testing.T) {
	eps := sampleEntryPoints()

	ep, ok := eps.Get("mint")
	require.True(t, ok)
	assert.Equal(t, AccessRestricted, ep.Access)
	assert.Equal(t, []string{"minters", "admins"}, ep.Groups)

	_, ok = eps.Get("burn")
	assert.False(t, ok)
}

func TestEntryPointsRoundTrip(t *testing.T) {
	eps := sampleEntryPoints()
	decoded, err := EntryPointsFromBytes(eps.ToBytes())
	require.NoError(t, err)
	require.Len(t, decoded, len(eps))

	// Declaration order is part of the wire format.
	for i := range eps {
		assert.Equal(t, eps[i].Name, decoded[i].Name)
		assert.Equal(t, eps[i].Access, decoded[i].Access)
		assert.Equal(t, eps[i].Kind, decoded[i].Kind)
		assert.Equal(t, eps[i].Groups, decoded[i].Groups)
		assert.True(t, eps[i].Ret.Equal(decoded[i].Ret))
		require.Len(t, decoded[i].Params, len(eps[i].Params))
		for j := range eps[i].Params {
			assert.Equal(t, eps[i].Params[j].Name, decoded[i].Params[j].Name)
			assert.True(t, eps[i].Params[j].Type.Equal(decoded[i].Params[j].Type))
		}
	}
}

func TestEntryPointsRejectBadEnums(t *testing.T) {
	eps := EntryPoints{{Name: "x", Ret: CLTypeUnit()}}
	b := eps.ToBytes()

	// The access byte follows name, empty params, and the unit ret tag.
	accessAt := len(b) - 6
	b[accessAt] = 9
	_, err := EntryPointsFromBytes(b)
	assert.ErrorIs(t, err, ErrFormat)

	b = eps.ToBytes()
	b[accessAt+1] = 9
	_, err = EntryPointsFromBytes(b)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestContractRecordRoundTrip(t *testing.T) {
	rec := ContractRecord{
		PackageName:     "token",
		EntryPoints:     sampleEntryPoints(),
		ProtocolVersion: 3,
	}
	decoded, err := ContractRecordFromBytes(rec.ToBytes())
	require.NoError(t, err)
	assert.Equal(t, "token", decoded.PackageName)
	assert.Equal(t, uint32(3), decoded.ProtocolVersion)
	assert.Len(t, decoded.EntryPoints, 3)

	_, err = ContractRecordFromBytes(append(rec.ToBytes(), 1))
	assert.ErrorIs(t, err, ErrLeftoverBytes)
}
