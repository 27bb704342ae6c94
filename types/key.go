package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AccountHashLength is the size of an account identity hash in bytes.
const AccountHashLength = 32

// HashAddrLength is the size of a content-addressed record hash in bytes.
const HashAddrLength = 32

// AccountHash identifies a ledger account (the hash of its public key).
type AccountHash [AccountHashLength]byte

// HashAddr identifies a content-addressed stored record.
type HashAddr [HashAddrLength]byte

func (a AccountHash) String() string {
	return "account-" + hex.EncodeToString(a[:])
}

func (h HashAddr) String() string {
	return "hash-" + hex.EncodeToString(h[:])
}

// KeyTag discriminates the address kinds a Key can hold. The tag decides
// which operations are legal on the key; tags are never coerced.
type KeyTag uint8

const (
	// KeyTagAccount addresses a ledger account.
	KeyTagAccount KeyTag = 0
	// KeyTagHash addresses a content-addressed stored record.
	KeyTagHash KeyTag = 1
	// KeyTagURef addresses storage through a capability reference.
	KeyTagURef KeyTag = 2
)

// Key is the tagged union of address kinds understood by the host. Exactly
// one variant is populated, selected by Tag. Use the As* accessors instead
// of reading fields so that the tag is always honored.
type Key struct {
	tag     KeyTag
	account AccountHash
	hash    HashAddr
	uref    URef
}

// AccountKey builds a Key addressing an account.
func AccountKey(a AccountHash) Key {
	return Key{tag: KeyTagAccount, account: a}
}

// HashKey builds a Key addressing a content-addressed record.
func HashKey(h HashAddr) Key {
	return Key{tag: KeyTagHash, hash: h}
}

// URefKey builds a Key addressing storage through a capability reference.
func URefKey(u URef) Key {
	return Key{tag: KeyTagURef, uref: u}
}

// Tag returns the address kind of the key.
func (k Key) Tag() KeyTag { return k.tag }

// AsAccount returns the account variant if the tag matches.
func (k Key) AsAccount() (AccountHash, bool) {
	if k.tag != KeyTagAccount {
		return AccountHash{}, false
	}
	return k.account, true
}

// AsHash returns the hash variant if the tag matches.
func (k Key) AsHash() (HashAddr, bool) {
	if k.tag != KeyTagHash {
		return HashAddr{}, false
	}
	return k.hash, true
}

// AsURef returns the capability variant if the tag matches.
func (k Key) AsURef() (URef, bool) {
	if k.tag != KeyTagURef {
		return URef{}, false
	}
	return k.uref, true
}

// ToBytes encodes the key as a tag byte followed by the variant payload.
func (k Key) ToBytes() []byte {
	b := make([]byte, 0, 1+URefSerializedLength)
	b = AppendU8(b, uint8(k.tag))
	switch k.tag {
	case KeyTagAccount:
		b = append(b, k.account[:]...)
	case KeyTagHash:
		b = append(b, k.hash[:]...)
	case KeyTagURef:
		b = append(b, k.uref.ToBytes()...)
	}
	return b
}

// TakeKey consumes a serialized Key and returns the remainder.
func TakeKey(b []byte) (Key, []byte, error) {
	tag, rest, err := TakeU8(b)
	if err != nil {
		return Key{}, nil, err
	}
	switch KeyTag(tag) {
	case KeyTagAccount:
		raw, rest, err := TakeFixed(rest, AccountHashLength)
		if err != nil {
			return Key{}, nil, err
		}
		var a AccountHash
		copy(a[:], raw)
		return AccountKey(a), rest, nil
	case KeyTagHash:
		raw, rest, err := TakeFixed(rest, HashAddrLength)
		if err != nil {
			return Key{}, nil, err
		}
		var h HashAddr
		copy(h[:], raw)
		return HashKey(h), rest, nil
	case KeyTagURef:
		u, rest, err := TakeURef(rest)
		if err != nil {
			return Key{}, nil, err
		}
		return URefKey(u), rest, nil
	default:
		return Key{}, nil, fmt.Errorf("%w: key tag %d", ErrFormat, tag)
	}
}

// KeyFromBytes decodes a complete serialized Key.
func KeyFromBytes(b []byte) (Key, error) {
	k, rest, err := TakeKey(b)
	if err != nil {
		return Key{}, err
	}
	return k, expectEmpty(rest)
}

func (k Key) String() string {
	switch k.tag {
	case KeyTagAccount:
		return k.account.String()
	case KeyTagHash:
		return k.hash.String()
	case KeyTagURef:
		return k.uref.String()
	default:
		return fmt.Sprintf("key-unknown-%d", k.tag)
	}
}

// ParseKey parses the account-, hash-, or uref-prefixed form produced by
// String.
func ParseKey(s string) (Key, error) {
	switch {
	case strings.HasPrefix(s, "account-"):
		a, err := ParseAccountHash(s)
		if err != nil {
			return Key{}, err
		}
		return AccountKey(a), nil
	case strings.HasPrefix(s, "hash-"):
		raw, err := hex.DecodeString(strings.TrimPrefix(s, "hash-"))
		if err != nil || len(raw) != HashAddrLength {
			return Key{}, fmt.Errorf("%w: hash key %q", ErrFormat, s)
		}
		var h HashAddr
		copy(h[:], raw)
		return HashKey(h), nil
	case strings.HasPrefix(s, "uref-"):
		u, err := ParseURef(s)
		if err != nil {
			return Key{}, err
		}
		return URefKey(u), nil
	default:
		return Key{}, fmt.Errorf("%w: key %q", ErrFormat, s)
	}
}

// ParseAccountHash parses the account-<hex> form produced by String. A bare
// 64-character hex string is accepted too.
func ParseAccountHash(s string) (AccountHash, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "account-"))
	if err != nil || len(raw) != AccountHashLength {
		return AccountHash{}, fmt.Errorf("%w: account hash %q", ErrFormat, s)
	}
	var a AccountHash
	copy(a[:], raw)
	return a, nil
}
