package abi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgervm/vm/types"
)

func TestExportName(t *testing.T) {
	assert.Equal(t, "Transfer", ExportName("transfer"))
	assert.Equal(t, "GetCount", ExportName("get_count"))
	assert.Equal(t, "UpgradeContractAtUref", ExportName("upgrade_contract_at_uref"))
}

func TestGoType(t *testing.T) {
	assert.Equal(t, "uint64", GoType(types.CLTypeU64()))
	assert.Equal(t, "string", GoType(types.CLTypeString()))
	assert.Equal(t, "types.Key", GoType(types.CLTypeKey()))
	assert.Equal(t, "[]types.URef", GoType(types.CLTypeList(types.CLTypeURef())))
	assert.Equal(t, "types.NamedKeys", GoType(types.CLTypeMap(types.CLTypeString(), types.CLTypeKey())))
	// No native decoding for nested options; the shim passes the envelope through.
	assert.Equal(t, "types.CLValue", GoType(types.CLTypeOption(types.CLTypeU64())))
}

func TestGenerateStubs(t *testing.T) {
	prev := EnableFormatAfterGenerate
	EnableFormatAfterGenerate = false
	defer func() { EnableFormatAfterGenerate = prev }()

	eps := types.EntryPoints{
		{
			Name: "transfer",
			Params: []types.Parameter{
				{Name: "recipient", Type: types.CLTypeKey()},
				{Name: "amount", Type: types.CLTypeU64()},
			},
			Ret:  types.CLTypeBool(),
			Kind: types.KindContract,
		},
		{
			Name: "reset_state",
			Ret:  types.CLTypeUnit(),
			Kind: types.KindSession,
		},
	}

	code, err := GenerateStubFile("token", eps)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "package token\n"))

	assert.Contains(t, code, "//export transfer")
	assert.Contains(t, code, "func Transfer() {")
	assert.Contains(t, code, "var recipient types.Key")
	assert.Contains(t, code, "var amount uint64")
	assert.Contains(t, code, "runtime.GetArg(0, &recipient)")
	assert.Contains(t, code, "runtime.GetArg(1, &amount)")
	assert.Contains(t, code, "result := transfer(recipient, amount)")
	assert.Contains(t, code, "runtime.Ret(types.MustCLValue(result), nil)")

	// A unit entry point returns nothing and the shim rets unit.
	assert.Contains(t, code, "func ResetState() {")
	assert.Contains(t, code, "resetState()")
	assert.Contains(t, code, "runtime.Ret(types.UnitValue(), nil)")
}

func TestGenerateStubsMissingArgumentGuard(t *testing.T) {
	prev := EnableFormatAfterGenerate
	EnableFormatAfterGenerate = false
	defer func() { EnableFormatAfterGenerate = prev }()

	eps := types.EntryPoints{
		{
			Name:   "burn",
			Params: []types.Parameter{{Name: "amount", Type: types.CLTypeU64()}},
			Ret:    types.CLTypeUnit(),
			Kind:   types.KindContract,
		},
	}

	code, err := GenerateStubFile("token", eps)
	require.NoError(t, err)
	assert.Contains(t, code, "if !found0 {")
	assert.Contains(t, code, "runtime.OrRevert(types.ErrMissingArgument)")
}
