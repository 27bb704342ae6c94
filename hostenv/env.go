// Package hostenv is the in-process host environment: the reference
// implementation of the call boundary the runtime package binds to. It
// owns the execution-context stack, dispatches every host operation
// against a journaled store session, and enforces the capability rules:
// no ambient authority, rights checked on every use, and aborts discard
// all staged effects. Natively registered entry points let contracts written
// against the runtime package execute without a WASM build, which is how
// the protocol is tested end to end.
package hostenv

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgervm/vm/context"
	"github.com/ledgervm/vm/runtime"
	"github.com/ledgervm/vm/types"
)

// NativeFn is a natively executed entry point. It runs with the host
// environment installed as the runtime bridge, so it reads arguments and
// named keys exactly the way a WASM guest would.
type NativeFn func()

// Termination is the non-local exit a guest triggers through ret or
// revert. It travels as a panic value from the bridge call back to the
// dispatcher that pushed the context.
type Termination struct {
	Reverted   bool
	Code       uint32
	Value      types.CLValue
	ExtraURefs []types.URef
}

func (t *Termination) String() string {
	if t.Reverted {
		return fmt.Sprintf("revert(%s)", types.ApiError(t.Code))
	}
	return "ret"
}

// execContext is one frame of the invocation stack. callerIdentity is the
// original deploy signer at every depth: nested calls deliberately do not
// rebind it to the invoking contract.
type execContext struct {
	phase          types.Phase
	callerIdentity types.AccountHash
	depth          int
	// selfKey addresses the namespace this context reads and writes.
	selfKey   types.Key
	namedKeys types.NamedKeys
	args      []types.CLValue
	// access is the set of capability addresses this context may use,
	// with the widest rights it holds for each. Seeded from the context's
	// own namespace plus explicitly forwarded keys, never inherited.
	access map[[types.URefAddrLength]byte]types.AccessRights
	// staged holds the bytes of the last sizing call until the guest
	// fetches them with read_host_buffer.
	staged []byte
}

func (c *execContext) addAccess(u types.URef) {
	c.access[u.Addr()] |= u.AccessRights()
}

func (c *execContext) seedAccess(forwarded []types.Key) {
	for _, u := range c.namedKeys.URefs() {
		c.addAccess(u)
	}
	for _, k := range forwarded {
		if u, ok := k.AsURef(); ok {
			c.addAccess(u)
		}
	}
}

// holds reports whether the context may exercise u: the address must be
// reachable and the rights asked for must not exceed the rights held.
func (c *execContext) holds(u types.URef) bool {
	held, ok := c.access[u.Addr()]
	return ok && u.AccessRights().IsSubsetOf(held)
}

// Env is the host environment. One Env executes one transaction at a
// time; execution is single-threaded and cooperative, so no locking is
// needed on the stack.
type Env struct {
	store   context.Store
	logger  *slog.Logger
	session context.Session
	stack   []*execContext

	// natives maps a contract's storage id to its executable entry points.
	natives map[string]map[string]NativeFn
	// upgrades maps a registered table name to the entry points an
	// upgrade call installs.
	upgrades map[string]types.EntryPoints
}

// New creates a host environment over the given store.
func New(store context.Store) *Env {
	return &Env{
		store:    store,
		logger:   slog.Default(),
		natives:  make(map[string]map[string]NativeFn),
		upgrades: make(map[string]types.EntryPoints),
	}
}

// Store returns the underlying state store.
func (e *Env) Store() context.Store { return e.store }

// ops returns the active journaled session, or the bare store outside of
// execution (registration and inspection paths).
func (e *Env) ops() context.Ops {
	if e.session != nil {
		return e.session
	}
	return e.store
}

func (e *Env) current() *execContext {
	if len(e.stack) == 0 {
		panic("hostenv: host call outside execution context")
	}
	return e.stack[len(e.stack)-1]
}

// RegisterNative attaches an executable function to an entry point of the
// contract addressed by key. The engine equivalent is a WASM export; this
// is the in-process form.
func (e *Env) RegisterNative(key types.Key, entryPoint string, fn NativeFn) {
	id := context.StorageID(key)
	if e.natives[id] == nil {
		e.natives[id] = make(map[string]NativeFn)
	}
	e.natives[id][entryPoint] = fn
}

// RegisterUpgrade makes an entry-point table available to the guest
// upgrade operation under the given name, the way newly shipped code is
// staged before a stored contract is pointed at it.
func (e *Env) RegisterUpgrade(name string, eps types.EntryPoints) {
	e.upgrades[name] = eps
}

// RegisterOrReplace installs a contract record. With existing nil it
// mints a fresh capability, stores a version-1 record under it with the
// given initial namespace, and returns the new reference; with existing
// set it replaces the entry points at that reference, leaving the
// namespace already bound there untouched and bumping the version. The
// swap is atomic from the guest's point of view: no invocation ever
// observes a partial table.
//
// A non-empty accessName additionally binds the minted reference under
// that name in creator's namespace, which is how a deployer comes to
// hold upgrade authority over the record.
func (e *Env) RegisterOrReplace(eps types.EntryPoints, existing *types.URef, packageName string, initialKeys types.NamedKeys, creator types.Key, accessName string) (types.URef, error) {
	ops := e.ops()
	if existing != nil {
		key := types.URefKey(*existing)
		rec, found, err := ops.GetContract(key)
		if err != nil {
			return types.URef{}, err
		}
		if !found {
			return types.URef{}, types.ErrUpgradeTargetNotFound
		}
		rec.EntryPoints = eps
		rec.ProtocolVersion++
		if err := ops.PutContract(key, rec); err != nil {
			return types.URef{}, err
		}
		return *existing, nil
	}
	uref, err := ops.IssueURef(types.AccessReadAddWrite)
	if err != nil {
		return types.URef{}, err
	}
	key := types.URefKey(uref)
	rec := types.ContractRecord{
		PackageName:     packageName,
		EntryPoints:     eps,
		ProtocolVersion: 1,
	}
	if err := ops.PutContract(key, rec); err != nil {
		return types.URef{}, err
	}
	for _, name := range initialKeys.Names() {
		if err := ops.PutNamedKey(key, name, initialKeys[name]); err != nil {
			return types.URef{}, err
		}
	}
	if accessName != "" {
		if err := ops.PutNamedKey(creator, accessName, key); err != nil {
			return types.URef{}, err
		}
	}
	return uref, nil
}

// IssueNamedURef mints a capability and binds it into an owner's
// persisted namespace, the host-side way accounts come to hold authority
// before any execution starts.
func (e *Env) IssueNamedURef(owner types.Key, name string, rights types.AccessRights) (types.URef, error) {
	uref, err := e.ops().IssueURef(rights)
	if err != nil {
		return types.URef{}, err
	}
	if err := e.ops().PutNamedKey(owner, name, types.URefKey(uref)); err != nil {
		return types.URef{}, err
	}
	return uref, nil
}

// RunSession executes fn as the outermost context of one deploy: the
// signer's account namespace, the given phase and arguments. All effects
// accumulate in one journaled session; fn terminating through Ret (or
// returning normally) commits them, a Revert anywhere in the invocation
// chain rolls every one of them back. The returned value is the terminal
// CLValue, unit if fn returned without one.
func (e *Env) RunSession(signer types.AccountHash, phase types.Phase, args []types.CLValue, fn NativeFn) (result types.CLValue, err error) {
	if len(e.stack) != 0 {
		return types.CLValue{}, fmt.Errorf("hostenv: execution already in progress")
	}
	session, err := e.store.Begin()
	if err != nil {
		return types.CLValue{}, fmt.Errorf("failed to begin session: %w", err)
	}
	e.session = session

	accountKey := types.AccountKey(signer)
	namedKeys, err := session.NamedKeys(accountKey)
	if err != nil {
		_ = session.Rollback()
		e.session = nil
		return types.CLValue{}, err
	}
	root := &execContext{
		phase:          phase,
		callerIdentity: signer,
		depth:          0,
		selfKey:        accountKey,
		namedKeys:      namedKeys,
		args:           args,
		access:         make(map[[types.URefAddrLength]byte]types.AccessRights),
	}
	root.seedAccess(nil)
	e.stack = []*execContext{root}

	prev := runtime.SetBridge(e)
	defer func() {
		runtime.SetBridge(prev)
		e.stack = nil
		e.session = nil
	}()

	term := e.runGuest(fn)
	if term.Reverted {
		if rbErr := session.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "err", rbErr)
		}
		e.logger.Info("deploy reverted", "signer", signer, "code", types.ApiError(term.Code))
		return types.CLValue{}, types.ApiError(term.Code)
	}
	if err := session.Commit(); err != nil {
		return types.CLValue{}, fmt.Errorf("failed to commit session: %w", err)
	}
	return term.Value, nil
}

// runGuest executes fn and normalizes its exit into a Termination. A
// plain return stands for returning unit; a panic that is not a
// Termination is an internal failure and unwinds as a revert, matching
// the rule that uncaught failures translate to an abort.
func (e *Env) runGuest(fn NativeFn) (term *Termination) {
	defer func() {
		if r := recover(); r != nil {
			if t, ok := r.(*Termination); ok {
				term = t
				return
			}
			e.logger.Error("guest panic", "panic", r)
			term = &Termination{Reverted: true, Code: uint32(types.ErrInternal)}
		}
	}()
	fn()
	return &Termination{Value: types.UnitValue()}
}

// Bridge implementation. Every method runs against the current context
// and the active session.

func (e *Env) Ret(value, extraURefs []byte) {
	v, err := types.CLValueFromBytes(value)
	if err != nil {
		panic(&Termination{Reverted: true, Code: uint32(types.ErrDeserialize)})
	}
	env, err := types.CLValueFromBytes(extraURefs)
	if err != nil {
		panic(&Termination{Reverted: true, Code: uint32(types.ErrDeserialize)})
	}
	var urefs []types.URef
	if err := env.Into(&urefs); err != nil {
		panic(&Termination{Reverted: true, Code: uint32(types.ErrDeserialize)})
	}
	// Exposing a reference through ret requires actually holding it.
	ctx := e.current()
	for _, u := range urefs {
		if !ctx.holds(u) {
			panic(&Termination{Reverted: true, Code: uint32(types.ErrForgedReference)})
		}
	}
	panic(&Termination{Value: v, ExtraURefs: urefs})
}

func (e *Env) Revert(code uint32) {
	panic(&Termination{Reverted: true, Code: code})
}

func (e *Env) CallContract(keyBytes, nameBytes, argsBytes, fwdBytes []byte) int32 {
	caller := e.current()

	target, err := types.KeyFromBytes(keyBytes)
	if err != nil {
		return -int32(types.ErrDeserialize)
	}
	entryName := string(nameBytes)
	args, err := types.DecodeCLValues(argsBytes)
	if err != nil {
		return -int32(types.ErrDeserialize)
	}
	fwdEnv, err := types.CLValueFromBytes(fwdBytes)
	if err != nil {
		return -int32(types.ErrDeserialize)
	}
	var forwarded []types.Key
	if err := fwdEnv.Into(&forwarded); err != nil {
		return -int32(types.ErrDeserialize)
	}

	// A capability can only be forwarded by a context that holds it.
	for _, k := range forwarded {
		if u, ok := k.AsURef(); ok && !caller.holds(u) {
			return -int32(types.ErrForgedReference)
		}
	}

	rec, found, err := e.ops().GetContract(target)
	if err != nil {
		e.logger.Error("contract lookup failed", "target", target, "err", err)
		return -int32(types.ErrNoSuchContract)
	}
	if !found {
		return -int32(types.ErrNoSuchContract)
	}
	ep, ok := rec.EntryPoints.Get(entryName)
	if !ok {
		return -int32(types.ErrNoSuchEntryPoint)
	}

	contractKeys, err := e.ops().NamedKeys(target)
	if err != nil {
		e.logger.Error("namespace load failed", "owner", target, "err", err)
		return -int32(types.ErrNoSuchContract)
	}
	if ep.Access == types.AccessRestricted && !callerInGroups(caller, contractKeys, ep.Groups) {
		return -int32(types.ErrInvalidAccess)
	}

	fn := e.lookupNative(target, entryName)
	if fn == nil {
		return -int32(types.ErrNoSuchContract)
	}

	// Session entry points run in the invoking account's namespace; the
	// root frame is always account-level.
	selfKey := target
	namedKeys := contractKeys
	if ep.Kind == types.KindSession {
		selfKey = e.stack[0].selfKey
		namedKeys, err = e.ops().NamedKeys(selfKey)
		if err != nil {
			e.logger.Error("namespace load failed", "owner", selfKey, "err", err)
			return -int32(types.ErrNoSuchContract)
		}
	}

	callee := &execContext{
		phase:          caller.phase,
		callerIdentity: caller.callerIdentity,
		depth:          caller.depth + 1,
		selfKey:        selfKey,
		namedKeys:      namedKeys,
		args:           args,
		access:         make(map[[types.URefAddrLength]byte]types.AccessRights),
	}
	callee.seedAccess(forwarded)
	e.stack = append(e.stack, callee)

	if err := e.ops().LogEvent(target, "invoke:"+entryName, nil); err != nil {
		e.logger.Error("event log failed", "err", err)
	}

	term := e.runGuest(fn)
	e.stack = e.stack[:len(e.stack)-1]

	if term.Reverted {
		// A revert unwinds the entire invocation chain; there is no
		// recoverable sub-call failure.
		panic(term)
	}
	for _, u := range term.ExtraURefs {
		caller.addAccess(u)
	}
	caller.staged = term.Value.ToBytes()
	return int32(len(caller.staged))
}

// callerInGroups reports whether the calling context holds any of the
// group references bound in the contract's namespace.
func callerInGroups(caller *execContext, contractKeys types.NamedKeys, groups []string) bool {
	for _, g := range groups {
		key, ok := contractKeys[g]
		if !ok {
			continue
		}
		if u, ok := key.AsURef(); ok && caller.holds(u) {
			return true
		}
	}
	return false
}

func (e *Env) lookupNative(target types.Key, entryPoint string) NativeFn {
	if fns, ok := e.natives[context.StorageID(target)]; ok {
		return fns[entryPoint]
	}
	return nil
}

func (e *Env) ReadHostBuffer(dst []byte) int32 {
	ctx := e.current()
	if ctx.staged == nil {
		return -int32(types.ErrBufferEmpty)
	}
	n := copy(dst, ctx.staged)
	ctx.staged = nil
	return int32(n)
}

func (e *Env) UpgradeContract(nameBytes, keyBytes []byte) uint32 {
	eps, ok := e.upgrades[string(nameBytes)]
	if !ok {
		return uint32(types.ErrMissingKey)
	}
	key, err := types.KeyFromBytes(keyBytes)
	if err != nil {
		return uint32(types.ErrDeserialize)
	}
	uref, ok := key.AsURef()
	if !ok {
		return uint32(types.ErrUnexpectedKeyVariant)
	}
	// Replacing stored code is a write through the capability.
	if !uref.AccessRights().CanWrite() || !e.current().holds(uref) {
		return uint32(types.ErrInvalidAccess)
	}
	if _, err := e.RegisterOrReplace(eps, &uref, "", nil, types.Key{}, ""); err != nil {
		var api types.ApiError
		if errors.As(err, &api) {
			return uint32(api)
		}
		e.logger.Error("upgrade failed", "err", err)
		return uint32(types.ErrInternal)
	}
	return uint32(types.ErrNone)
}

func (e *Env) LoadArg(i uint32) int32 {
	ctx := e.current()
	if i >= uint32(len(ctx.args)) {
		return types.SizeAbsent
	}
	ctx.staged = ctx.args[i].ToBytes()
	return int32(len(ctx.staged))
}

func (e *Env) GetCaller(dst []byte) int32 {
	ctx := e.current()
	return int32(copy(dst, ctx.callerIdentity[:]))
}

func (e *Env) GetBlockTime(dst []byte) int32 {
	return int32(copy(dst, e.ops().BlockTime().ToBytes()))
}

func (e *Env) GetPhase(dst []byte) int32 {
	return int32(copy(dst, []byte{uint8(e.current().phase)}))
}

func (e *Env) GetKey(name []byte) int32 {
	ctx := e.current()
	key, ok := ctx.namedKeys[string(name)]
	if !ok {
		return types.SizeAbsent
	}
	ctx.staged = types.MustCLValue(key).ToBytes()
	return int32(len(ctx.staged))
}

func (e *Env) HasKey(name []byte) int32 {
	if _, ok := e.current().namedKeys[string(name)]; ok {
		return types.HasKeyPresent
	}
	return types.HasKeyAbsent
}

func (e *Env) PutKey(name, keyBytes []byte) uint32 {
	key, err := types.KeyFromBytes(keyBytes)
	if err != nil {
		return uint32(types.ErrDeserialize)
	}
	ctx := e.current()
	ctx.namedKeys[string(name)] = key
	if u, ok := key.AsURef(); ok {
		ctx.addAccess(u)
	}
	if err := e.ops().PutNamedKey(ctx.selfKey, string(name), key); err != nil {
		e.logger.Error("put key failed", "name", string(name), "err", err)
		return uint32(types.ErrInternal)
	}
	return uint32(types.ErrNone)
}

func (e *Env) RemoveKey(name []byte) uint32 {
	ctx := e.current()
	delete(ctx.namedKeys, string(name))
	if err := e.ops().RemoveNamedKey(ctx.selfKey, string(name)); err != nil {
		e.logger.Error("remove key failed", "name", string(name), "err", err)
		return uint32(types.ErrInternal)
	}
	return uint32(types.ErrNone)
}

func (e *Env) LoadNamedKeys() int32 {
	ctx := e.current()
	ctx.staged = types.MustCLValue(ctx.namedKeys).ToBytes()
	return int32(len(ctx.staged))
}

func (e *Env) IsValidURef(urefBytes []byte) int32 {
	uref, err := types.URefFromBytes(urefBytes)
	if err != nil {
		return 0
	}
	issued, err := e.ops().IsIssued(uref)
	if err != nil || !issued {
		return 0
	}
	if !e.current().holds(uref) {
		return 0
	}
	return 1
}

var _ runtime.Bridge = (*Env)(nil)
