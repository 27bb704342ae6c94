package types

// NamedKeys is the per-context directory mapping human-readable names to
// keys. It is the only way guest code discovers addresses; binding a name
// grants nothing beyond what the bound key already carries.
type NamedKeys map[string]Key

// Names returns the bound names in lexicographic order. Enumeration order
// is guest-observable, so it has to be deterministic.
func (nk NamedKeys) Names() []string {
	return sortedNames(nk)
}

// Clone returns an independent copy.
func (nk NamedKeys) Clone() NamedKeys {
	out := make(NamedKeys, len(nk))
	for name, key := range nk {
		out[name] = key
	}
	return out
}

// URefs returns every capability reference reachable through the
// directory, in enumeration order.
func (nk NamedKeys) URefs() []URef {
	var out []URef
	for _, name := range nk.Names() {
		if u, ok := nk[name].AsURef(); ok {
			out = append(out, u)
		}
	}
	return out
}

// ToBytes encodes the map as a u32 count followed by name/key pairs in
// lexicographic name order.
func (nk NamedKeys) ToBytes() []byte {
	b := AppendU32(nil, uint32(len(nk)))
	for _, name := range nk.Names() {
		b = AppendString(b, name)
		b = append(b, nk[name].ToBytes()...)
	}
	return b
}

// TakeNamedKeys consumes a serialized map and returns the remainder.
func TakeNamedKeys(b []byte) (NamedKeys, []byte, error) {
	n, rest, err := TakeU32(b)
	if err != nil {
		return nil, nil, err
	}
	nk := make(NamedKeys, n)
	for i := uint32(0); i < n; i++ {
		var name string
		name, rest, err = TakeString(rest)
		if err != nil {
			return nil, nil, err
		}
		var key Key
		key, rest, err = TakeKey(rest)
		if err != nil {
			return nil, nil, err
		}
		nk[name] = key
	}
	return nk, rest, nil
}

// NamedKeysFromBytes decodes a complete serialized map.
func NamedKeysFromBytes(b []byte) (NamedKeys, error) {
	nk, rest, err := TakeNamedKeys(b)
	if err != nil {
		return nil, err
	}
	return nk, expectEmpty(rest)
}
