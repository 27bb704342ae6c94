// Package wasi runs compiled WASM contracts against the host environment
// using wazero. It exports the host call boundary as the "env" module and
// registers each deployed contract's entry points with the environment, so
// WASM guests and natively executed guests share one dispatch path and one
// state store.
package wasi

import (
	gocontext "context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/ledgervm/vm/context"
	"github.com/ledgervm/vm/hostenv"
	"github.com/ledgervm/vm/runtime"
	"github.com/ledgervm/vm/types"
)

// Engine deploys and executes WASM contracts.
type Engine struct {
	env         *hostenv.Env
	contractDir string
	ctx         gocontext.Context

	// pending carries a guest termination across the wazero call
	// boundary: host functions cannot unwind through guest frames with a
	// Go panic, so ret/revert park the termination here and the engine
	// re-raises it once wazero returns.
	pending *hostenv.Termination
}

// NewEngine creates an engine storing contract code under contractDir.
func NewEngine(env *hostenv.Env, contractDir string) (*Engine, error) {
	if contractDir != "" {
		if err := os.MkdirAll(contractDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create contract directory: %w", err)
		}
	}
	return &Engine{
		env:         env,
		contractDir: contractDir,
		ctx:         gocontext.Background(),
	}, nil
}

// Deploy registers a new contract: mints its capability reference, stores
// the record and initial named keys, writes the module bytes to disk, and
// wires every published entry point to a WASM invocation. A non-empty
// accessName binds the minted reference into the deployer's account
// namespace so the deployer can upgrade the contract later.
func (e *Engine) Deploy(wasmCode []byte, eps types.EntryPoints, packageName string, initialKeys types.NamedKeys, deployer types.AccountHash, accessName string) (types.URef, error) {
	if len(wasmCode) == 0 {
		return types.URef{}, errors.New("contract code cannot be empty")
	}
	uref, err := e.env.RegisterOrReplace(eps, nil, packageName, initialKeys, types.AccountKey(deployer), accessName)
	if err != nil {
		return types.URef{}, err
	}
	key := types.URefKey(uref)
	if err := os.WriteFile(e.codePath(key), wasmCode, 0644); err != nil {
		return types.URef{}, fmt.Errorf("failed to store contract code: %w", err)
	}
	e.wireEntryPoints(key, eps)
	slog.Info("deployed contract", "package", packageName, "key", key.String(), "entry_points", len(eps))
	return uref, nil
}

// Attach wires an already stored contract's entry points to WASM
// execution, used after process restart when records exist but natives
// were not registered yet.
func (e *Engine) Attach(key types.Key) error {
	rec, found, err := e.env.Store().GetContract(key)
	if err != nil {
		return err
	}
	if !found {
		return types.ErrNoSuchContract
	}
	if _, err := os.Stat(e.codePath(key)); err != nil {
		return fmt.Errorf("contract code missing: %w", err)
	}
	e.wireEntryPoints(key, rec.EntryPoints)
	return nil
}

func (e *Engine) wireEntryPoints(key types.Key, eps types.EntryPoints) {
	for _, ep := range eps {
		name := ep.Name
		e.env.RegisterNative(key, name, func() {
			e.invoke(key, name)
		})
	}
}

func (e *Engine) codePath(key types.Key) string {
	return filepath.Join(e.contractDir, context.StorageID(key)+".wasm")
}

// Execute runs one deploy: the signer invokes the target's entry point
// with the given arguments inside a fresh journaled session. The root
// frame forwards no capabilities; the callee starts from its own
// persisted namespace only.
func (e *Engine) Execute(signer types.AccountHash, phase types.Phase, target types.Key, entryPoint string, args []types.CLValue) (types.CLValue, error) {
	return e.env.RunSession(signer, phase, nil, func() {
		result := runtime.CallContract(target, entryPoint, args, nil)
		runtime.Ret(result, nil)
	})
}

// invoke instantiates the module and calls the exported entry-point
// function. It runs inside an execution context the environment has
// already pushed, so every host function the guest imports dispatches
// against that context.
func (e *Engine) invoke(key types.Key, entryPoint string) {
	wasmCode, err := os.ReadFile(e.codePath(key))
	if err != nil {
		slog.Error("failed to read contract code", "key", key.String(), "err", err)
		panic(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrNoSuchContract)})
	}

	rt := wazero.NewRuntime(e.ctx)
	defer rt.Close(e.ctx)

	compiled, err := rt.CompileModule(e.ctx, wasmCode)
	if err != nil {
		slog.Error("failed to compile module", "key", key.String(), "err", err)
		panic(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrNoSuchContract)})
	}

	if err := e.instantiateHostModule(rt); err != nil {
		slog.Error("failed to instantiate host module", "err", err)
		panic(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrNoSuchContract)})
	}
	wasi_snapshot_preview1.MustInstantiate(e.ctx, rt)

	config := wazero.NewModuleConfig().
		WithName("contract").
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithStartFunctions("_initialize")
	module, err := rt.InstantiateModule(e.ctx, compiled, config)
	if err != nil {
		slog.Error("failed to instantiate module", "err", err)
		panic(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrNoSuchContract)})
	}

	fn := module.ExportedFunction(entryPoint)
	if fn == nil {
		panic(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrNoSuchEntryPoint)})
	}

	e.pending = nil
	_, err = fn.Call(e.ctx)
	if e.pending != nil {
		// ret or revert fired inside a host function; hand the parked
		// termination to the environment's dispatcher.
		term := e.pending
		e.pending = nil
		panic(term)
	}
	if err != nil {
		slog.Error("guest trapped", "entry_point", entryPoint, "err", err)
		panic(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrInternal)})
	}
	// Falling off the entry point without ret stands for returning unit.
}

// terminate parks a termination and traps the guest. The panic unwinds
// guest frames under wazero's control; invoke re-raises the parked value.
func (e *Engine) terminate(t *hostenv.Termination) {
	e.pending = t
	panic(t.String())
}

func readMem(m api.Module, ptr, length uint32) ([]byte, bool) {
	if length == 0 {
		return nil, true
	}
	return m.Memory().Read(ptr, length)
}

// instantiateHostModule exports the host call boundary to the guest. Each
// export reads its byte arguments out of guest linear memory, delegates
// to the host environment, and writes results only into buffers the guest
// passed in.
func (e *Engine) instantiateHostModule(rt wazero.Runtime) error {
	builder := rt.NewHostModuleBuilder("env")

	builder.NewFunctionBuilder().
		WithParameterNames("val_ptr", "val_len", "urefs_ptr", "urefs_len").
		WithFunc(func(_ gocontext.Context, m api.Module, valPtr, valLen, urefsPtr, urefsLen uint32) {
			value, ok1 := readMem(m, valPtr, valLen)
			urefs, ok2 := readMem(m, urefsPtr, urefsLen)
			if !ok1 || !ok2 {
				e.terminate(&hostenv.Termination{Reverted: true, Code: uint32(types.ErrDeserialize)})
			}
			defer func() {
				if t, ok := recover().(*hostenv.Termination); ok {
					e.terminate(t)
				}
			}()
			e.env.Ret(value, urefs)
		}).
		Export("ret")

	builder.NewFunctionBuilder().
		WithParameterNames("code").
		WithFunc(func(_ gocontext.Context, _ api.Module, code uint32) {
			e.terminate(&hostenv.Termination{Reverted: true, Code: code})
		}).
		Export("revert")

	builder.NewFunctionBuilder().
		WithParameterNames("key_ptr", "key_len", "name_ptr", "name_len", "args_ptr", "args_len", "fwd_ptr", "fwd_len").
		WithResultNames("size").
		WithFunc(func(_ gocontext.Context, m api.Module, keyPtr, keyLen, namePtr, nameLen, argsPtr, argsLen, fwdPtr, fwdLen uint32) int32 {
			key, ok1 := readMem(m, keyPtr, keyLen)
			name, ok2 := readMem(m, namePtr, nameLen)
			args, ok3 := readMem(m, argsPtr, argsLen)
			fwd, ok4 := readMem(m, fwdPtr, fwdLen)
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return -int32(types.ErrDeserialize)
			}
			// A revert inside the callee unwinds this frame too.
			defer func() {
				if t, ok := recover().(*hostenv.Termination); ok {
					e.terminate(t)
				}
			}()
			return e.env.CallContract(key, name, args, fwd)
		}).
		Export("call_contract")

	builder.NewFunctionBuilder().
		WithParameterNames("dst_ptr", "dst_len").
		WithResultNames("count").
		WithFunc(func(_ gocontext.Context, m api.Module, dstPtr, dstLen uint32) int32 {
			buf := make([]byte, dstLen)
			n := e.env.ReadHostBuffer(buf)
			if n > 0 && !m.Memory().Write(dstPtr, buf[:n]) {
				return -int32(types.ErrBufferEmpty)
			}
			return n
		}).
		Export("read_host_buffer")

	builder.NewFunctionBuilder().
		WithParameterNames("name_ptr", "name_len", "key_ptr", "key_len").
		WithResultNames("status").
		WithFunc(func(_ gocontext.Context, m api.Module, namePtr, nameLen, keyPtr, keyLen uint32) uint32 {
			name, ok1 := readMem(m, namePtr, nameLen)
			key, ok2 := readMem(m, keyPtr, keyLen)
			if !ok1 || !ok2 {
				return uint32(types.ErrDeserialize)
			}
			return e.env.UpgradeContract(name, key)
		}).
		Export("upgrade_contract_at_uref")

	builder.NewFunctionBuilder().
		WithParameterNames("index").
		WithResultNames("size").
		WithFunc(func(_ gocontext.Context, _ api.Module, index uint32) int32 {
			return e.env.LoadArg(index)
		}).
		Export("load_arg")

	writeBack := func(m api.Module, dstPtr uint32, fill func(dst []byte) int32, size int) int32 {
		buf := make([]byte, size)
		n := fill(buf)
		if n > 0 && !m.Memory().Write(dstPtr, buf[:n]) {
			return -int32(types.ErrBufferEmpty)
		}
		return n
	}

	builder.NewFunctionBuilder().
		WithParameterNames("dst_ptr").
		WithResultNames("count").
		WithFunc(func(_ gocontext.Context, m api.Module, dstPtr uint32) int32 {
			return writeBack(m, dstPtr, e.env.GetCaller, types.AccountHashLength)
		}).
		Export("get_caller")

	builder.NewFunctionBuilder().
		WithParameterNames("dst_ptr").
		WithResultNames("count").
		WithFunc(func(_ gocontext.Context, m api.Module, dstPtr uint32) int32 {
			return writeBack(m, dstPtr, e.env.GetBlockTime, types.BlockTimeSerializedLength)
		}).
		Export("get_blocktime")

	builder.NewFunctionBuilder().
		WithParameterNames("dst_ptr").
		WithResultNames("count").
		WithFunc(func(_ gocontext.Context, m api.Module, dstPtr uint32) int32 {
			return writeBack(m, dstPtr, e.env.GetPhase, types.PhaseSerializedLength)
		}).
		Export("get_phase")

	builder.NewFunctionBuilder().
		WithParameterNames("name_ptr", "name_len").
		WithResultNames("size").
		WithFunc(func(_ gocontext.Context, m api.Module, namePtr, nameLen uint32) int32 {
			name, ok := readMem(m, namePtr, nameLen)
			if !ok {
				return -int32(types.ErrDeserialize)
			}
			return e.env.GetKey(name)
		}).
		Export("get_key")

	builder.NewFunctionBuilder().
		WithParameterNames("name_ptr", "name_len").
		WithResultNames("status").
		WithFunc(func(_ gocontext.Context, m api.Module, namePtr, nameLen uint32) int32 {
			name, ok := readMem(m, namePtr, nameLen)
			if !ok {
				return types.HasKeyAbsent
			}
			return e.env.HasKey(name)
		}).
		Export("has_key")

	builder.NewFunctionBuilder().
		WithParameterNames("name_ptr", "name_len", "key_ptr", "key_len").
		WithResultNames("status").
		WithFunc(func(_ gocontext.Context, m api.Module, namePtr, nameLen, keyPtr, keyLen uint32) uint32 {
			name, ok1 := readMem(m, namePtr, nameLen)
			key, ok2 := readMem(m, keyPtr, keyLen)
			if !ok1 || !ok2 {
				return uint32(types.ErrDeserialize)
			}
			return e.env.PutKey(name, key)
		}).
		Export("put_key")

	builder.NewFunctionBuilder().
		WithParameterNames("name_ptr", "name_len").
		WithResultNames("status").
		WithFunc(func(_ gocontext.Context, m api.Module, namePtr, nameLen uint32) uint32 {
			name, ok := readMem(m, namePtr, nameLen)
			if !ok {
				return uint32(types.ErrDeserialize)
			}
			return e.env.RemoveKey(name)
		}).
		Export("remove_key")

	builder.NewFunctionBuilder().
		WithResultNames("size").
		WithFunc(func(_ gocontext.Context, _ api.Module) int32 {
			return e.env.LoadNamedKeys()
		}).
		Export("load_named_keys")

	builder.NewFunctionBuilder().
		WithParameterNames("uref_ptr", "uref_len").
		WithResultNames("valid").
		WithFunc(func(_ gocontext.Context, m api.Module, urefPtr, urefLen uint32) int32 {
			uref, ok := readMem(m, urefPtr, urefLen)
			if !ok {
				return 0
			}
			return e.env.IsValidURef(uref)
		}).
		Export("is_valid_uref")

	_, err := builder.Instantiate(e.ctx)
	return err
}
