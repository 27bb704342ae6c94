//go:build wasip1

package runtime

import "unsafe"

// Imports provided by the host's "env" module. Every pointer/length pair
// refers to guest linear memory; the host only writes into buffers the
// guest passed in.

//go:wasmimport env ret
func hostRet(valPtr, valLen, urefsPtr, urefsLen uint32)

//go:wasmimport env revert
func hostRevert(code uint32)

//go:wasmimport env call_contract
func hostCallContract(keyPtr, keyLen, namePtr, nameLen, argsPtr, argsLen, fwdPtr, fwdLen uint32) int32

//go:wasmimport env read_host_buffer
func hostReadHostBuffer(dstPtr, dstLen uint32) int32

//go:wasmimport env upgrade_contract_at_uref
func hostUpgradeContract(namePtr, nameLen, keyPtr, keyLen uint32) uint32

//go:wasmimport env load_arg
func hostLoadArg(i uint32) int32

//go:wasmimport env get_caller
func hostGetCaller(dstPtr uint32) int32

//go:wasmimport env get_blocktime
func hostGetBlockTime(dstPtr uint32) int32

//go:wasmimport env get_phase
func hostGetPhase(dstPtr uint32) int32

//go:wasmimport env get_key
func hostGetKey(namePtr, nameLen uint32) int32

//go:wasmimport env has_key
func hostHasKey(namePtr, nameLen uint32) int32

//go:wasmimport env put_key
func hostPutKey(namePtr, nameLen, keyPtr, keyLen uint32) uint32

//go:wasmimport env remove_key
func hostRemoveKey(namePtr, nameLen uint32) uint32

//go:wasmimport env load_named_keys
func hostLoadNamedKeys() int32

//go:wasmimport env is_valid_uref
func hostIsValidURef(urefPtr, urefLen uint32) int32

func init() {
	SetBridge(wasmBridge{})
}

// ptrLen returns the linear-memory address and length of b. The byte slice
// must stay reachable for the duration of the host call.
func ptrLen(b []byte) (uint32, uint32) {
	if len(b) == 0 {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0]))), uint32(len(b))
}

// wasmBridge binds the Bridge to the host module imports.
type wasmBridge struct{}

func (wasmBridge) Ret(value, extraURefs []byte) {
	vp, vl := ptrLen(value)
	up, ul := ptrLen(extraURefs)
	hostRet(vp, vl, up, ul)
}

func (wasmBridge) Revert(code uint32) {
	hostRevert(code)
}

func (wasmBridge) CallContract(key, name, args, forwardedKeys []byte) int32 {
	kp, kl := ptrLen(key)
	np, nl := ptrLen(name)
	ap, al := ptrLen(args)
	fp, fl := ptrLen(forwardedKeys)
	return hostCallContract(kp, kl, np, nl, ap, al, fp, fl)
}

func (wasmBridge) ReadHostBuffer(dst []byte) int32 {
	dp, dl := ptrLen(dst)
	return hostReadHostBuffer(dp, dl)
}

func (wasmBridge) UpgradeContract(name, key []byte) uint32 {
	np, nl := ptrLen(name)
	kp, kl := ptrLen(key)
	return hostUpgradeContract(np, nl, kp, kl)
}

func (wasmBridge) LoadArg(i uint32) int32 {
	return hostLoadArg(i)
}

func (wasmBridge) GetCaller(dst []byte) int32 {
	dp, _ := ptrLen(dst)
	return hostGetCaller(dp)
}

func (wasmBridge) GetBlockTime(dst []byte) int32 {
	dp, _ := ptrLen(dst)
	return hostGetBlockTime(dp)
}

func (wasmBridge) GetPhase(dst []byte) int32 {
	dp, _ := ptrLen(dst)
	return hostGetPhase(dp)
}

func (wasmBridge) GetKey(name []byte) int32 {
	np, nl := ptrLen(name)
	return hostGetKey(np, nl)
}

func (wasmBridge) HasKey(name []byte) int32 {
	np, nl := ptrLen(name)
	return hostHasKey(np, nl)
}

func (wasmBridge) PutKey(name, key []byte) uint32 {
	np, nl := ptrLen(name)
	kp, kl := ptrLen(key)
	return hostPutKey(np, nl, kp, kl)
}

func (wasmBridge) RemoveKey(name []byte) uint32 {
	np, nl := ptrLen(name)
	return hostRemoveKey(np, nl)
}

func (wasmBridge) LoadNamedKeys() int32 {
	return hostLoadNamedKeys()
}

func (wasmBridge) IsValidURef(uref []byte) int32 {
	up, ul := ptrLen(uref)
	return hostIsValidURef(up, ul)
}
