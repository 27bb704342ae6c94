package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// URefAddrLength is the size of a capability reference address in bytes.
const URefAddrLength = 32

// URefSerializedLength is the wire size of a URef: address plus rights byte.
const URefSerializedLength = URefAddrLength + 1

// AccessRights is the set of operations a capability reference permits on
// the storage location it points at. Rights combine as a bit set.
type AccessRights uint8

const (
	// AccessNone grants nothing; such a reference only proves knowledge of
	// the address.
	AccessNone AccessRights = 0
	// AccessRead permits reading the value under the reference.
	AccessRead AccessRights = 1 << 0
	// AccessWrite permits overwriting the value under the reference.
	AccessWrite AccessRights = 1 << 1
	// AccessAdd permits commutative additions to the value under the
	// reference.
	AccessAdd AccessRights = 1 << 2

	// AccessReadAdd is a common read+add combination.
	AccessReadAdd = AccessRead | AccessAdd
	// AccessReadWrite is a common read+write combination.
	AccessReadWrite = AccessRead | AccessWrite
	// AccessReadAddWrite grants every right the model defines.
	AccessReadAddWrite = AccessRead | AccessAdd | AccessWrite
)

// CanRead reports whether the rights include READ.
func (r AccessRights) CanRead() bool { return r&AccessRead != 0 }

// CanWrite reports whether the rights include WRITE.
func (r AccessRights) CanWrite() bool { return r&AccessWrite != 0 }

// CanAdd reports whether the rights include ADD.
func (r AccessRights) CanAdd() bool { return r&AccessAdd != 0 }

// IsSubsetOf reports whether every right in r is also present in other.
func (r AccessRights) IsSubsetOf(other AccessRights) bool {
	return r&other == r
}

func (r AccessRights) String() string {
	if r == AccessNone {
		return "NONE"
	}
	var parts []string
	if r.CanRead() {
		parts = append(parts, "READ")
	}
	if r.CanWrite() {
		parts = append(parts, "WRITE")
	}
	if r.CanAdd() {
		parts = append(parts, "ADD")
	}
	return strings.Join(parts, "+")
}

// URef is a capability reference: a 32-byte address paired with the access
// rights the holder may exercise on it. A URef carries authority only if
// the host issued it; bytes assembled by guest code decode into a URef that
// the host will reject on every use (see IsValidURef). Holders may narrow
// the rights they pass on but never widen them.
type URef struct {
	addr   [URefAddrLength]byte
	rights AccessRights
}

// IssueURef builds a URef for a freshly minted address. It is intended for
// host-side stores; a reference built anywhere else is well-formed bytes
// without authority, since the host checks issuance on every dereference.
func IssueURef(addr [URefAddrLength]byte, rights AccessRights) URef {
	return URef{addr: addr, rights: rights}
}

// Addr returns the 32-byte address of the reference.
func (u URef) Addr() [URefAddrLength]byte { return u.addr }

// AccessRights returns the rights carried by the reference.
func (u URef) AccessRights() AccessRights { return u.rights }

// WithAccessRights returns a copy of the reference restricted to rights
// that are present in both the receiver and the argument. Narrowing is the
// only derivation the capability model allows, so the intersection is
// deliberate: asking for more than you hold yields less, never more.
func (u URef) WithAccessRights(rights AccessRights) URef {
	return URef{addr: u.addr, rights: u.rights & rights}
}

// ToBytes encodes the reference as address followed by the rights byte.
func (u URef) ToBytes() []byte {
	b := make([]byte, 0, URefSerializedLength)
	b = append(b, u.addr[:]...)
	return AppendU8(b, uint8(u.rights))
}

// TakeURef consumes a serialized URef and returns the remainder.
func TakeURef(b []byte) (URef, []byte, error) {
	raw, rest, err := TakeFixed(b, URefAddrLength)
	if err != nil {
		return URef{}, nil, err
	}
	rights, rest, err := TakeU8(rest)
	if err != nil {
		return URef{}, nil, err
	}
	if AccessRights(rights) & ^AccessReadAddWrite != 0 {
		return URef{}, nil, fmt.Errorf("%w: access rights byte %#x", ErrFormat, rights)
	}
	var u URef
	copy(u.addr[:], raw)
	u.rights = AccessRights(rights)
	return u, rest, nil
}

// URefFromBytes decodes a complete serialized URef.
func URefFromBytes(b []byte) (URef, error) {
	u, rest, err := TakeURef(b)
	if err != nil {
		return URef{}, err
	}
	return u, expectEmpty(rest)
}

func (u URef) String() string {
	return fmt.Sprintf("uref-%s-%03o", hex.EncodeToString(u.addr[:]), uint8(u.rights))
}

// ParseURef parses the uref-<addr>-<rights> form produced by String.
func ParseURef(s string) (URef, error) {
	rest, ok := strings.CutPrefix(s, "uref-")
	if !ok {
		return URef{}, fmt.Errorf("%w: uref %q", ErrFormat, s)
	}
	addrHex, rightsOct, ok := strings.Cut(rest, "-")
	if !ok {
		return URef{}, fmt.Errorf("%w: uref %q", ErrFormat, s)
	}
	raw, err := hex.DecodeString(addrHex)
	if err != nil || len(raw) != URefAddrLength {
		return URef{}, fmt.Errorf("%w: uref address %q", ErrFormat, addrHex)
	}
	var rights uint8
	if _, err := fmt.Sscanf(rightsOct, "%03o", &rights); err != nil {
		return URef{}, fmt.Errorf("%w: uref rights %q", ErrFormat, rightsOct)
	}
	if AccessRights(rights) & ^AccessReadAddWrite != 0 {
		return URef{}, fmt.Errorf("%w: access rights byte %#x", ErrFormat, rights)
	}
	var u URef
	copy(u.addr[:], raw)
	u.rights = AccessRights(rights)
	return u, nil
}
