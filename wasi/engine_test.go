package wasi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgervm/vm/context"
	"github.com/ledgervm/vm/context/memstore"
	"github.com/ledgervm/vm/hostenv"
	"github.com/ledgervm/vm/runtime"
	"github.com/ledgervm/vm/types"
)

func newTestEngine(t *testing.T) (*Engine, *hostenv.Env, string) {
	t.Helper()
	dir := t.TempDir()
	env := hostenv.New(memstore.NewStore())
	engine, err := NewEngine(env, dir)
	require.NoError(t, err)
	return engine, env, dir
}

func testEntryPoints() types.EntryPoints {
	return types.EntryPoints{{
		Name:   "echo",
		Params: []types.Parameter{{Name: "value", Type: types.CLTypeU64()}},
		Ret:    types.CLTypeU64(),
		Access: types.AccessPublic,
		Kind:   types.KindContract,
	}}
}

func TestDeployPersistsCodeAndRecord(t *testing.T) {
	engine, env, dir := newTestEngine(t)

	initKeys := types.NamedKeys{"state": types.HashKey(types.HashAddr{1})}
	uref, err := engine.Deploy([]byte{0x00, 0x61, 0x73, 0x6D}, testEntryPoints(), "echoer", initKeys, types.AccountHash{7}, "")
	require.NoError(t, err)

	key := types.URefKey(uref)
	code, err := os.ReadFile(filepath.Join(dir, context.StorageID(key)+".wasm"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, code)

	rec, found, err := env.Store().GetContract(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "echoer", rec.PackageName)
	assert.Equal(t, uint32(1), rec.ProtocolVersion)

	nk, err := env.Store().NamedKeys(key)
	require.NoError(t, err)
	assert.Equal(t, types.HashKey(types.HashAddr{1}), nk["state"])
}

func TestDeployRejectsEmptyCode(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.Deploy(nil, testEntryPoints(), "empty", nil, types.AccountHash{7}, "")
	assert.Error(t, err)
}

func TestAttach(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	err := engine.Attach(types.HashKey(types.HashAddr{0xFF}))
	assert.ErrorIs(t, err, types.ErrNoSuchContract)

	uref, err := engine.Deploy([]byte{1}, testEntryPoints(), "echoer", nil, types.AccountHash{7}, "")
	require.NoError(t, err)
	assert.NoError(t, engine.Attach(types.URefKey(uref)))
}

func TestExecuteDispatchesToEntryPoint(t *testing.T) {
	engine, env, _ := newTestEngine(t)

	// Register the contract natively: Execute's dispatch path is identical
	// for WASM-backed and native entry points.
	uref, err := env.RegisterOrReplace(testEntryPoints(), nil, "echoer", nil, types.Key{}, "")
	require.NoError(t, err)
	key := types.URefKey(uref)
	env.RegisterNative(key, "echo", func() {
		var v uint64
		found, err := runtime.GetArg(0, &v)
		runtime.OrRevert(err)
		if !found {
			runtime.OrRevert(types.ErrMissingArgument)
		}
		runtime.Ret(types.MustCLValue(v*2), nil)
	})

	signer := types.AccountHash{7}
	result, err := engine.Execute(signer, types.PhaseSession, key, "echo",
		[]types.CLValue{types.MustCLValue(uint64(21))})
	require.NoError(t, err)

	var got uint64
	require.NoError(t, result.Into(&got))
	assert.Equal(t, uint64(42), got)
}

func TestExecuteSurfacesRevert(t *testing.T) {
	engine, env, _ := newTestEngine(t)

	uref, err := env.RegisterOrReplace(testEntryPoints(), nil, "echoer", nil, types.Key{}, "")
	require.NoError(t, err)
	key := types.URefKey(uref)
	env.RegisterNative(key, "echo", func() {
		runtime.Revert(13)
	})

	_, err = engine.Execute(types.AccountHash{7}, types.PhaseSession, key, "echo", nil)
	assert.ErrorIs(t, err, types.UserError(13))
}

// The helpers below assemble a small module by hand so the tests can drive
// real guest code through the wazero boundary without a compiler in the
// loop. The module imports four host functions and publishes two entry
// points: echo_arg sizes argument 0, fetches it with read_host_buffer and
// hands the envelope back through ret; fail reverts with user error 13.

func wasmULEB(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func wasmSLEB(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func wasmSection(id byte, payload []byte) []byte {
	out := append([]byte{id}, wasmULEB(uint32(len(payload)))...)
	return append(out, payload...)
}

func wasmString(s string) []byte {
	return append(wasmULEB(uint32(len(s))), s...)
}

func guestModule() []byte {
	// Function indices: imports revert=0, load_arg=1, read_host_buffer=2,
	// ret=3; local functions fail=4, echo_arg=5.
	const (
		fnRevert = 0x00
		fnLoad   = 0x01
		fnRead   = 0x02
		fnRet    = 0x03
	)
	// The no-urefs envelope ret expects lives in a data segment at offset 0;
	// the fetched argument envelope is written at offset 1024.
	urefs := types.MustCLValue([]types.URef(nil)).ToBytes()
	const argBuf = 1024

	typeSec := []byte{0x05,
		0x60, 0x01, 0x7F, 0x00, // t0 (i32) -> ():     revert
		0x60, 0x01, 0x7F, 0x01, 0x7F, // t1 (i32) -> (i32):  load_arg
		0x60, 0x02, 0x7F, 0x7F, 0x01, 0x7F, // t2 (i32,i32) -> (i32): read_host_buffer
		0x60, 0x04, 0x7F, 0x7F, 0x7F, 0x7F, 0x00, // t3 (i32 x4) -> ():  ret
		0x60, 0x00, 0x00, // t4 () -> ():        entry points
	}

	var imports []byte
	imports = append(imports, 0x04)
	for i, name := range []string{"revert", "load_arg", "read_host_buffer", "ret"} {
		imports = append(imports, wasmString("env")...)
		imports = append(imports, wasmString(name)...)
		imports = append(imports, 0x00, byte(i))
	}

	funcs := []byte{0x02, 0x04, 0x04}
	memory := []byte{0x01, 0x00, 0x01}

	var exports []byte
	exports = append(exports, 0x03)
	exports = append(exports, wasmString("memory")...)
	exports = append(exports, 0x02, 0x00)
	exports = append(exports, wasmString("fail")...)
	exports = append(exports, 0x00, 0x04)
	exports = append(exports, wasmString("echo_arg")...)
	exports = append(exports, 0x00, 0x05)

	failBody := []byte{0x00} // no locals
	failBody = append(failBody, 0x41)
	failBody = append(failBody, wasmSLEB(int32(types.UserError(13)))...)
	failBody = append(failBody, 0x10, fnRevert, 0x0B)

	echoBody := []byte{0x01, 0x01, 0x7F} // one i32 local: the staged size
	echoBody = append(echoBody, 0x41, 0x00) // i32.const 0
	echoBody = append(echoBody, 0x10, fnLoad)
	echoBody = append(echoBody, 0x21, 0x00) // local.set 0
	echoBody = append(echoBody, 0x41)
	echoBody = append(echoBody, wasmSLEB(argBuf)...)
	echoBody = append(echoBody, 0x20, 0x00) // local.get 0
	echoBody = append(echoBody, 0x10, fnRead, 0x1A)
	echoBody = append(echoBody, 0x41)
	echoBody = append(echoBody, wasmSLEB(argBuf)...)
	echoBody = append(echoBody, 0x20, 0x00)
	echoBody = append(echoBody, 0x41, 0x00) // urefs envelope offset
	echoBody = append(echoBody, 0x41)
	echoBody = append(echoBody, wasmSLEB(int32(len(urefs)))...)
	echoBody = append(echoBody, 0x10, fnRet, 0x0B)

	code := []byte{0x02}
	code = append(code, wasmULEB(uint32(len(failBody)))...)
	code = append(code, failBody...)
	code = append(code, wasmULEB(uint32(len(echoBody)))...)
	code = append(code, echoBody...)

	data := []byte{0x01, 0x00, 0x41, 0x00, 0x0B}
	data = append(data, wasmULEB(uint32(len(urefs)))...)
	data = append(data, urefs...)

	module := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	module = append(module, wasmSection(1, typeSec)...)
	module = append(module, wasmSection(2, imports)...)
	module = append(module, wasmSection(3, funcs)...)
	module = append(module, wasmSection(5, memory)...)
	module = append(module, wasmSection(7, exports)...)
	module = append(module, wasmSection(10, code)...)
	module = append(module, wasmSection(11, data)...)
	return module
}

func guestEntryPoints() types.EntryPoints {
	return types.EntryPoints{
		{
			Name:   "echo_arg",
			Params: []types.Parameter{{Name: "value", Type: types.CLTypeU64()}},
			Ret:    types.CLTypeU64(),
			Access: types.AccessPublic,
			Kind:   types.KindContract,
		},
		{Name: "fail", Ret: types.CLTypeUnit(), Access: types.AccessPublic, Kind: types.KindContract},
	}
}

func TestExecuteRunsCompiledModule(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	signer := types.AccountHash{7}
	uref, err := engine.Deploy(guestModule(), guestEntryPoints(), "guest", nil, signer, "")
	require.NoError(t, err)
	key := types.URefKey(uref)

	result, err := engine.Execute(signer, types.PhaseSession, key, "echo_arg",
		[]types.CLValue{types.MustCLValue(uint64(21))})
	require.NoError(t, err)

	var got uint64
	require.NoError(t, result.Into(&got))
	assert.Equal(t, uint64(21), got)
}

func TestCompiledModuleRevertRollsBack(t *testing.T) {
	engine, env, _ := newTestEngine(t)

	signer := types.AccountHash{7}
	uref, err := engine.Deploy(guestModule(), guestEntryPoints(), "guest", nil, signer, "")
	require.NoError(t, err)
	key := types.URefKey(uref)

	_, err = engine.Execute(signer, types.PhaseSession, key, "fail", nil)
	assert.ErrorIs(t, err, types.UserError(13))

	events, err := env.Store().Events()
	require.NoError(t, err)
	assert.Empty(t, events)
}
