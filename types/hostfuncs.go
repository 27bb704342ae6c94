package types

import "fmt"

// HostFunctionID identifies one operation of the host call boundary.
// The host environment and every guest binding must agree on these values;
// a mismatch produces undefined behavior, so both sides import this
// package rather than redefining the constants.
type HostFunctionID int32

const (
	// FuncRet terminates the current module, handing a value and optional
	// extra capability references back to the caller. Never returns.
	FuncRet HostFunctionID = iota + 1
	// FuncRevert terminates the current module and discards every effect
	// since the enclosing context began. Never returns.
	FuncRevert
	// FuncCallContract invokes another contract's entry point. Sizing
	// call: returns the byte length of the staged result.
	FuncCallContract
	// FuncReadHostBuffer copies the bytes staged by the last sizing call
	// into a guest-owned buffer. The single fetch half of every two-phase
	// transfer.
	FuncReadHostBuffer
	// FuncUpgradeContract replaces the entry-point table stored at a
	// capability reference. Returns a status code.
	FuncUpgradeContract
	// FuncLoadArg stages the i-th invocation argument. Sizing call.
	FuncLoadArg
	// FuncGetCaller writes the original deploy signer's account hash.
	FuncGetCaller
	// FuncGetBlockTime writes the current block time.
	FuncGetBlockTime
	// FuncGetPhase writes the current phase byte.
	FuncGetPhase
	// FuncGetKey stages the key bound to a name. Sizing call.
	FuncGetKey
	// FuncHasKey probes a name without staging anything.
	FuncHasKey
	// FuncPutKey binds a name to a key in the current namespace.
	FuncPutKey
	// FuncRemoveKey unbinds a name from the current namespace.
	FuncRemoveKey
	// FuncLoadNamedKeys stages the full namespace snapshot. Sizing call.
	FuncLoadNamedKeys
	// FuncIsValidURef asks whether a capability reference is live in the
	// current context.
	FuncIsValidURef
)

// SizeAbsent is the sentinel a sizing call returns when the requested
// value does not exist. It is not an error: callers surface it as an
// absent optional and must not issue the fetch call.
const SizeAbsent int32 = -1

// HasKeyPresent and HasKeyAbsent are the status values FuncHasKey returns.
const (
	HasKeyPresent int32 = 0
	HasKeyAbsent  int32 = 1
)

// ApiError is a host-rejected operation, identified by a nonzero status
// code on the wire. Code 0 means success and never materializes as an
// ApiError.
type ApiError uint32

const (
	// ErrNone is the success status. Not an error.
	ErrNone ApiError = 0
	// ErrMissingKey means a named-key lookup the operation required found
	// nothing.
	ErrMissingKey ApiError = 1
	// ErrInvalidAccess means a capability was presented without the rights
	// the operation needs, or outside the context that may use it.
	ErrInvalidAccess ApiError = 2
	// ErrDeserialize means bytes crossing the boundary did not parse.
	ErrDeserialize ApiError = 3
	// ErrUpgradeTargetNotFound means no contract record exists at the
	// reference given to the upgrade operation.
	ErrUpgradeTargetNotFound ApiError = 4
	// ErrMissingArgument means a required invocation argument was absent.
	ErrMissingArgument ApiError = 5
	// ErrInvalidArgument means an argument decoded into the wrong type.
	ErrInvalidArgument ApiError = 6
	// ErrNoSuchContract means the invocation target resolves to nothing
	// executable.
	ErrNoSuchContract ApiError = 7
	// ErrNoSuchEntryPoint means the target contract publishes no entry
	// point with the requested name.
	ErrNoSuchEntryPoint ApiError = 8
	// ErrUnexpectedKeyVariant means a key's tag does not permit the
	// attempted operation.
	ErrUnexpectedKeyVariant ApiError = 9
	// ErrForgedReference means a capability reference was presented that
	// the host never issued.
	ErrForgedReference ApiError = 10
	// ErrBufferEmpty means a fetch call arrived with nothing staged.
	ErrBufferEmpty ApiError = 11
	// ErrInternal means the host itself failed while executing the
	// operation: a store write error or a crashed entry point. Contract
	// inputs were not necessarily at fault.
	ErrInternal ApiError = 12
)

// UserErrorOffset is where contract-defined revert codes begin. Codes
// below it belong to the host; contracts revert with UserError values.
const UserErrorOffset uint32 = 1 << 16

// UserError maps a contract-defined reason code into the user error space.
func UserError(code uint16) ApiError {
	return ApiError(UserErrorOffset + uint32(code))
}

func (e ApiError) Error() string {
	switch e {
	case ErrNone:
		return "ok"
	case ErrMissingKey:
		return "missing named key"
	case ErrInvalidAccess:
		return "invalid access rights"
	case ErrDeserialize:
		return "deserialization failure"
	case ErrUpgradeTargetNotFound:
		return "upgrade target not found"
	case ErrMissingArgument:
		return "missing argument"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrNoSuchContract:
		return "no such contract"
	case ErrNoSuchEntryPoint:
		return "no such entry point"
	case ErrUnexpectedKeyVariant:
		return "unexpected key variant"
	case ErrForgedReference:
		return "forged capability reference"
	case ErrBufferEmpty:
		return "host buffer empty"
	case ErrInternal:
		return "internal host failure"
	}
	if uint32(e) >= UserErrorOffset {
		return fmt.Sprintf("user error %d", uint32(e)-UserErrorOffset)
	}
	return fmt.Sprintf("api error %d", uint32(e))
}

// ResultFrom converts a wire status code into an error, nil for success.
func ResultFrom(status uint32) error {
	if status == 0 {
		return nil
	}
	return ApiError(status)
}
