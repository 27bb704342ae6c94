package runtime

import (
	"errors"

	"github.com/ledgervm/vm/types"
)

// Ret hands value and any extra capability references back to the host,
// terminating the current module. Execution never resumes after it; the
// panic is a safeguard against a bridge that returns in violation of its
// contract.
func Ret(value types.CLValue, extraURefs []types.URef) {
	urefsBytes := types.MustCLValue(extraURefs).ToBytes()
	hostBridge().Ret(value.ToBytes(), urefsBytes)
	panic("runtime: host returned from ret")
}

// Revert terminates the current module and discards every effect since
// the enclosing context began. Reason codes are contract-defined and land
// in the user error space.
func Revert(code uint16) {
	hostBridge().Revert(uint32(types.UserError(code)))
	panic("runtime: host returned from revert")
}

// revertWith aborts with a host-level error code. Internal failures that
// contract logic cannot meaningfully continue past funnel through here.
func revertWith(err types.ApiError) {
	hostBridge().Revert(uint32(err))
	panic("runtime: host returned from revert")
}

// OrRevert aborts the invocation when err is non-nil. Most call sites
// convert host-rejected operations straight into an abort, since contract
// logic has nothing sensible to do after one.
func OrRevert(err error) {
	if err == nil {
		return
	}
	var api types.ApiError
	if errors.As(err, &api) {
		revertWith(api)
	}
	if types.IsTypeMismatch(err) {
		revertWith(types.ErrInvalidArgument)
	}
	revertWith(types.ErrDeserialize)
}

// readStaged allocates exactly size bytes and issues the fetch half of a
// two-phase transfer.
func readStaged(size int32) []byte {
	buf := make([]byte, size)
	if size == 0 {
		return buf
	}
	n := hostBridge().ReadHostBuffer(buf)
	if n < 0 || int32(len(buf)) != n {
		revertWith(types.ErrBufferEmpty)
	}
	return buf
}

// CallContract invokes the named entry point of the contract addressed by
// target. The callee sees exactly the given arguments and the explicitly
// forwarded capabilities, nothing else: ambient authority is never
// inherited. The callee's terminal value is returned; a revert anywhere in
// the callee aborts this invocation chain as a whole, so this function
// only returns on success.
func CallContract(target types.Key, entryPoint string, args []types.CLValue, forwarded []types.Key) types.CLValue {
	keyBytes := target.ToBytes()
	argBytes := types.EncodeCLValues(args)
	fwdBytes := types.MustCLValue(forwarded).ToBytes()
	size := hostBridge().CallContract(keyBytes, []byte(entryPoint), argBytes, fwdBytes)
	if size < 0 {
		revertWith(types.ApiError(-size))
	}
	result, err := types.CLValueFromBytes(readStaged(size))
	OrRevert(err)
	return result
}

// UpgradeContractAtURef overwrites the contract record stored under uref
// with the entry-point table registered under name, preserving the named
// keys already bound to the record and bumping its version marker. The
// atomicity of the swap is the host's guarantee.
func UpgradeContractAtURef(name string, uref types.URef) error {
	keyBytes := types.URefKey(uref).ToBytes()
	status := hostBridge().UpgradeContract([]byte(name), keyBytes)
	return types.ResultFrom(status)
}

// GetArg decodes invocation argument i into out. It reports false when the
// argument was not supplied, which is not an error. An envelope that is
// present but does not decode into out's type returns an error, distinct
// from absence.
func GetArg(i uint32, out any) (bool, error) {
	size := hostBridge().LoadArg(i)
	if size == types.SizeAbsent {
		return false, nil
	}
	arg, err := types.CLValueFromBytes(readStaged(size))
	if err != nil {
		return true, err
	}
	return true, arg.Into(out)
}

// GetCaller returns the account that signed the enclosing deploy. The
// identity is deliberately flattened across nesting: inside a sub-call the
// caller is still the original signer, not the invoking contract.
func GetCaller() types.AccountHash {
	buf := make([]byte, types.AccountHashLength)
	n := hostBridge().GetCaller(buf)
	if n != types.AccountHashLength {
		revertWith(types.ErrBufferEmpty)
	}
	var a types.AccountHash
	copy(a[:], buf)
	return a
}

// GetBlockTime returns the host clock reading for the current block.
func GetBlockTime() types.BlockTime {
	buf := make([]byte, types.BlockTimeSerializedLength)
	n := hostBridge().GetBlockTime(buf)
	if n != types.BlockTimeSerializedLength {
		revertWith(types.ErrBufferEmpty)
	}
	bt, err := types.BlockTimeFromBytes(buf)
	OrRevert(err)
	return bt
}

// GetPhase returns the transaction sub-step currently executing.
func GetPhase() types.Phase {
	buf := make([]byte, types.PhaseSerializedLength)
	n := hostBridge().GetPhase(buf)
	if n != types.PhaseSerializedLength {
		revertWith(types.ErrBufferEmpty)
	}
	return types.Phase(buf[0])
}

// GetKey resolves name in the current namespace. Absence is reported, not
// an error.
func GetKey(name string) (types.Key, bool) {
	size := hostBridge().GetKey([]byte(name))
	if size == types.SizeAbsent {
		return types.Key{}, false
	}
	env, err := types.CLValueFromBytes(readStaged(size))
	OrRevert(err)
	var key types.Key
	OrRevert(env.Into(&key))
	return key, true
}

// HasKey probes name without resolving it.
func HasKey(name string) bool {
	return hostBridge().HasKey([]byte(name)) == types.HasKeyPresent
}

// PutKey binds name to key in the current namespace, overwriting any
// previous binding. The binding grants no authority beyond what key
// already carries.
func PutKey(name string, key types.Key) {
	status := hostBridge().PutKey([]byte(name), key.ToBytes())
	OrRevert(types.ResultFrom(status))
}

// RemoveKey unbinds name. Authority already derived from the previously
// bound key elsewhere is untouched.
func RemoveKey(name string) {
	status := hostBridge().RemoveKey([]byte(name))
	OrRevert(types.ResultFrom(status))
}

// ListNamedKeys returns a snapshot of the current namespace. Enumeration
// through the snapshot's Names method is lexicographic, so independently
// executing validators observe the same order.
func ListNamedKeys() types.NamedKeys {
	size := hostBridge().LoadNamedKeys()
	if size == types.SizeAbsent {
		return types.NamedKeys{}
	}
	env, err := types.CLValueFromBytes(readStaged(size))
	OrRevert(err)
	var nk types.NamedKeys
	OrRevert(env.Into(&nk))
	return nk
}

// IsValidURef asks the host whether the reference is live in the current
// context. Well-formed bytes are not enough: a reference the host never
// issued, or one this context cannot reach, reports false.
func IsValidURef(uref types.URef) bool {
	return hostBridge().IsValidURef(uref.ToBytes()) != 0
}
