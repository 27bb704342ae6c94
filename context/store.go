// Package context defines the host-owned state store behind the call
// boundary and a registry of interchangeable implementations. The guest
// never touches a store; the host environment reads and writes it on the
// guest's behalf, inside a journaled session so that an abort discards
// every effect at once.
package context

import (
	"encoding/hex"
	"fmt"

	"github.com/ledgervm/vm/types"
)

// Event is one host-side log entry emitted during execution. Source is
// the storage identifier of the emitting context. Events are written
// through the session like every other effect, so a rolled-back
// invocation leaves none behind.
type Event struct {
	Source  string
	Name    string
	Payload []byte
}

// Ops is the operation set shared by a store and a session on it.
type Ops interface {
	// Block info, set by the host per executed block.
	BlockHeight() uint64
	BlockTime() types.BlockTime
	SetBlockInfo(height uint64, time types.BlockTime) error

	// Named-key namespaces, keyed by the owning account or contract.
	NamedKeys(owner types.Key) (types.NamedKeys, error)
	PutNamedKey(owner types.Key, name string, key types.Key) error
	RemoveNamedKey(owner types.Key, name string) error

	// Contract records, addressed by account, hash, or uref key.
	GetContract(key types.Key) (types.ContractRecord, bool, error)
	PutContract(key types.Key, rec types.ContractRecord) error

	// Capability issuance. IssueURef is the only way a reference with
	// authority comes into existence; IsIssued is what makes references
	// assembled from raw bytes worthless.
	IssueURef(rights types.AccessRights) (types.URef, error)
	IsIssued(uref types.URef) (bool, error)

	// Event log.
	LogEvent(source types.Key, name string, payload []byte) error
	Events() ([]Event, error)
}

// Store is a durable state store that can open journaled sessions.
type Store interface {
	Ops
	Begin() (Session, error)
}

// Session is a journaled view of a store. Effects become visible to the
// underlying store only on Commit; Rollback discards them all. There is
// no partial commit.
type Session interface {
	Ops
	Commit() error
	Rollback() error
}

// StorageID maps a key to the canonical identifier records are stored
// under. A uref's rights are excluded: the address alone locates the
// record, rights only gate access.
func StorageID(key types.Key) string {
	switch key.Tag() {
	case types.KeyTagAccount:
		a, _ := key.AsAccount()
		return "account-" + hex.EncodeToString(a[:])
	case types.KeyTagHash:
		h, _ := key.AsHash()
		return "hash-" + hex.EncodeToString(h[:])
	case types.KeyTagURef:
		u, _ := key.AsURef()
		addr := u.Addr()
		return "uref-" + hex.EncodeToString(addr[:])
	default:
		return fmt.Sprintf("unknown-%d", key.Tag())
	}
}
