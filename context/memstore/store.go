// Package memstore is the in-memory state store. It backs tests and
// native execution; nothing survives the process.
package memstore

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/ledgervm/vm/context"
	"github.com/ledgervm/vm/types"
)

func init() {
	context.Register(context.MemoryStoreType, func(params map[string]any) (context.Store, error) {
		return NewStore(), nil
	})
}

// state is the full store content. Sessions clone it, mutate the clone,
// and swap it back on commit, which makes rollback a no-op.
type state struct {
	blockHeight uint64
	blockTime   types.BlockTime
	namedKeys   map[string]types.NamedKeys
	contracts   map[string]types.ContractRecord
	issued      map[[types.URefAddrLength]byte]types.AccessRights
	events      []context.Event
	urefNonce   uint64
}

func newState() *state {
	return &state{
		namedKeys: make(map[string]types.NamedKeys),
		contracts: make(map[string]types.ContractRecord),
		issued:    make(map[[types.URefAddrLength]byte]types.AccessRights),
	}
}

func (s *state) clone() *state {
	out := &state{
		blockHeight: s.blockHeight,
		blockTime:   s.blockTime,
		namedKeys:   make(map[string]types.NamedKeys, len(s.namedKeys)),
		contracts:   make(map[string]types.ContractRecord, len(s.contracts)),
		issued:      make(map[[types.URefAddrLength]byte]types.AccessRights, len(s.issued)),
		events:      append([]context.Event(nil), s.events...),
		urefNonce:   s.urefNonce,
	}
	for id, nk := range s.namedKeys {
		out.namedKeys[id] = nk.Clone()
	}
	for id, rec := range s.contracts {
		out.contracts[id] = cloneRecord(rec)
	}
	for addr, rights := range s.issued {
		out.issued[addr] = rights
	}
	return out
}

func cloneRecord(rec types.ContractRecord) types.ContractRecord {
	rec.EntryPoints = append(types.EntryPoints(nil), rec.EntryPoints...)
	return rec
}

// Store is the in-memory context.Store implementation.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) BlockHeight() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.blockHeight
}

func (s *Store) BlockTime() types.BlockTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.blockTime
}

func (s *Store) SetBlockInfo(height uint64, time types.BlockTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.blockHeight = height
	s.st.blockTime = time
	return nil
}

func (s *Store) NamedKeys(owner types.Key) (types.NamedKeys, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getNamedKeys(owner), nil
}

func (s *Store) PutNamedKey(owner types.Key, name string, key types.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.putNamedKey(owner, name, key)
}

func (s *Store) RemoveNamedKey(owner types.Key, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.removeNamedKey(owner, name)
}

func (s *Store) GetContract(key types.Key) (types.ContractRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getContract(key)
}

func (s *Store) PutContract(key types.Key, rec types.ContractRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.putContract(key, rec)
}

func (s *Store) IssueURef(rights types.AccessRights) (types.URef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.issueURef(rights)
}

func (s *Store) IsIssued(uref types.URef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.isIssued(uref), nil
}

func (s *Store) LogEvent(source types.Key, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.logEvent(source, name, payload)
	return nil
}

func (s *Store) Events() ([]context.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]context.Event(nil), s.st.events...), nil
}

// Begin opens a session over a clone of the current state.
func (s *Store) Begin() (context.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &session{store: s, st: s.st.clone()}, nil
}

// state-level operations shared by store and session paths.

func (st *state) getNamedKeys(owner types.Key) types.NamedKeys {
	nk, ok := st.namedKeys[context.StorageID(owner)]
	if !ok {
		return types.NamedKeys{}
	}
	return nk.Clone()
}

func (st *state) putNamedKey(owner types.Key, name string, key types.Key) error {
	id := context.StorageID(owner)
	nk, ok := st.namedKeys[id]
	if !ok {
		nk = types.NamedKeys{}
		st.namedKeys[id] = nk
	}
	nk[name] = key
	return nil
}

func (st *state) removeNamedKey(owner types.Key, name string) error {
	if nk, ok := st.namedKeys[context.StorageID(owner)]; ok {
		delete(nk, name)
	}
	return nil
}

func (st *state) getContract(key types.Key) (types.ContractRecord, bool, error) {
	rec, ok := st.contracts[context.StorageID(key)]
	if !ok {
		return types.ContractRecord{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (st *state) putContract(key types.Key, rec types.ContractRecord) error {
	st.contracts[context.StorageID(key)] = cloneRecord(rec)
	return nil
}

func (st *state) issueURef(rights types.AccessRights) (types.URef, error) {
	st.urefNonce++
	addr := sha256.Sum256([]byte(fmt.Sprintf("uref:%d", st.urefNonce)))
	st.issued[addr] = rights
	return types.IssueURef(addr, rights), nil
}

func (st *state) isIssued(uref types.URef) bool {
	issued, ok := st.issued[uref.Addr()]
	if !ok {
		return false
	}
	return uref.AccessRights().IsSubsetOf(issued)
}

func (st *state) logEvent(source types.Key, name string, payload []byte) {
	st.events = append(st.events, context.Event{
		Source:  context.StorageID(source),
		Name:    name,
		Payload: append([]byte(nil), payload...),
	})
}

// session is a journaled view: a full clone of the parent state. Commit
// swaps the clone in; Rollback just drops it.
type session struct {
	store *Store
	st    *state
	done  bool
}

func (s *session) BlockHeight() uint64        { return s.st.blockHeight }
func (s *session) BlockTime() types.BlockTime { return s.st.blockTime }

func (s *session) SetBlockInfo(height uint64, time types.BlockTime) error {
	s.st.blockHeight = height
	s.st.blockTime = time
	return nil
}

func (s *session) NamedKeys(owner types.Key) (types.NamedKeys, error) {
	return s.st.getNamedKeys(owner), nil
}

func (s *session) PutNamedKey(owner types.Key, name string, key types.Key) error {
	return s.st.putNamedKey(owner, name, key)
}

func (s *session) RemoveNamedKey(owner types.Key, name string) error {
	return s.st.removeNamedKey(owner, name)
}

func (s *session) GetContract(key types.Key) (types.ContractRecord, bool, error) {
	return s.st.getContract(key)
}

func (s *session) PutContract(key types.Key, rec types.ContractRecord) error {
	return s.st.putContract(key, rec)
}

func (s *session) IssueURef(rights types.AccessRights) (types.URef, error) {
	return s.st.issueURef(rights)
}

func (s *session) IsIssued(uref types.URef) (bool, error) {
	return s.st.isIssued(uref), nil
}

func (s *session) LogEvent(source types.Key, name string, payload []byte) error {
	s.st.logEvent(source, name, payload)
	return nil
}

func (s *session) Events() ([]context.Event, error) {
	return append([]context.Event(nil), s.st.events...), nil
}

func (s *session) Commit() error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	s.done = true
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.st = s.st
	return nil
}

func (s *session) Rollback() error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	s.done = true
	return nil
}
