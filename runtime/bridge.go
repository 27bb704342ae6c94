// Package runtime is the guest-side API of the host call boundary. Guest
// code written against it observes and mutates ledger state only through
// the fixed operation set the host exports: positional arguments, the
// named-key namespace, capability validity checks, nested invocation, and
// the terminal return/revert pair.
//
// All operations go through a Bridge. WASM builds bind the bridge to the
// host module's imports; everywhere else a host environment is injected
// with SetBridge, which is how tests and natively executed contracts run.
package runtime

// Bridge is the host call boundary, one method per wire operation. Data
// crosses only as byte slices the guest owns: sizing calls stage bytes on
// the host side and return their length (or types.SizeAbsent), and
// ReadHostBuffer copies the staged bytes into a buffer the guest has
// already allocated at exactly that length. The host never resizes or
// retains guest memory.
type Bridge interface {
	// Ret hands back a serialized CLValue and a serialized []URef of extra
	// capabilities, terminating the current module. It must not return.
	Ret(value, extraURefs []byte)
	// Revert terminates the current module and discards all effects since
	// the enclosing context began. It must not return.
	Revert(code uint32)
	// CallContract invokes entry point name on the contract addressed by
	// the serialized key, with a serialized argument list and a serialized
	// []Key of forwarded capabilities. It stages the callee's result and
	// returns its size.
	CallContract(key, name, args, forwardedKeys []byte) int32
	// ReadHostBuffer copies the staged bytes into dst and returns the
	// count written.
	ReadHostBuffer(dst []byte) int32
	// UpgradeContract replaces the entry-point table at the serialized
	// uref-key with the table registered under name. Returns a status.
	UpgradeContract(name, key []byte) uint32
	// LoadArg stages argument i and returns its size, or types.SizeAbsent.
	LoadArg(i uint32) int32
	// GetCaller writes the original deploy signer's account hash into dst.
	GetCaller(dst []byte) int32
	// GetBlockTime writes the serialized block time into dst.
	GetBlockTime(dst []byte) int32
	// GetPhase writes the phase byte into dst.
	GetPhase(dst []byte) int32
	// GetKey stages the serialized key bound to name and returns its size,
	// or types.SizeAbsent.
	GetKey(name []byte) int32
	// HasKey returns types.HasKeyPresent or types.HasKeyAbsent.
	HasKey(name []byte) int32
	// PutKey binds name to the serialized key. Returns a status.
	PutKey(name, key []byte) uint32
	// RemoveKey unbinds name. Returns a status.
	RemoveKey(name []byte) uint32
	// LoadNamedKeys stages the namespace snapshot and returns its size.
	LoadNamedKeys() int32
	// IsValidURef returns nonzero when the serialized reference is live in
	// the current context.
	IsValidURef(uref []byte) int32
}

var bridge Bridge

// SetBridge installs the host binding the package-level operations use.
// It returns the previous binding so callers can restore it.
func SetBridge(b Bridge) Bridge {
	prev := bridge
	bridge = b
	return prev
}

func hostBridge() Bridge {
	if bridge == nil {
		panic("runtime: no host bridge installed")
	}
	return bridge
}
