package types

import "fmt"

// EntryPointAccess controls who may invoke an entry point.
type EntryPointAccess uint8

const (
	// AccessPublic entry points are callable by anyone.
	AccessPublic EntryPointAccess = 0
	// AccessRestricted entry points require the caller context to hold one
	// of the group references named on the contract record.
	AccessRestricted EntryPointAccess = 1
)

// EntryPointKind selects the namespace an entry point executes in.
type EntryPointKind uint8

const (
	// KindSession runs in the invoking account's namespace.
	KindSession EntryPointKind = 0
	// KindContract runs in the contract's own namespace.
	KindContract EntryPointKind = 1
)

// Parameter is one named, typed argument of an entry point.
type Parameter struct {
	Name string
	Type CLType
}

// EntryPoint is one callable function a stored contract publishes.
type EntryPoint struct {
	Name   string
	Params []Parameter
	Ret    CLType
	Access EntryPointAccess
	Kind   EntryPointKind
	// Groups lists the named group references that satisfy a Restricted
	// access check. Empty for Public entry points.
	Groups []string
}

// EntryPoints is the ordered, published interface of a contract record.
// Order is part of the wire format.
type EntryPoints []EntryPoint

// Get returns the entry point with the given name.
func (eps EntryPoints) Get(name string) (EntryPoint, bool) {
	for _, ep := range eps {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// ToBytes encodes the table in declaration order.
func (eps EntryPoints) ToBytes() []byte {
	b := AppendU32(nil, uint32(len(eps)))
	for _, ep := range eps {
		b = AppendString(b, ep.Name)
		b = AppendU32(b, uint32(len(ep.Params)))
		for _, p := range ep.Params {
			b = AppendString(b, p.Name)
			b = append(b, p.Type.ToBytes()...)
		}
		b = append(b, ep.Ret.ToBytes()...)
		b = AppendU8(b, uint8(ep.Access))
		b = AppendU8(b, uint8(ep.Kind))
		b = AppendU32(b, uint32(len(ep.Groups)))
		for _, g := range ep.Groups {
			b = AppendString(b, g)
		}
	}
	return b
}

// TakeEntryPoints consumes a serialized table and returns the remainder.
func TakeEntryPoints(b []byte) (EntryPoints, []byte, error) {
	n, rest, err := TakeU32(b)
	if err != nil {
		return nil, nil, err
	}
	eps := make(EntryPoints, 0, n)
	for i := uint32(0); i < n; i++ {
		var ep EntryPoint
		ep.Name, rest, err = TakeString(rest)
		if err != nil {
			return nil, nil, err
		}
		var np uint32
		np, rest, err = TakeU32(rest)
		if err != nil {
			return nil, nil, err
		}
		ep.Params = make([]Parameter, 0, np)
		for j := uint32(0); j < np; j++ {
			var p Parameter
			p.Name, rest, err = TakeString(rest)
			if err != nil {
				return nil, nil, err
			}
			p.Type, rest, err = TakeCLType(rest)
			if err != nil {
				return nil, nil, err
			}
			ep.Params = append(ep.Params, p)
		}
		ep.Ret, rest, err = TakeCLType(rest)
		if err != nil {
			return nil, nil, err
		}
		var access, kind uint8
		access, rest, err = TakeU8(rest)
		if err != nil {
			return nil, nil, err
		}
		kind, rest, err = TakeU8(rest)
		if err != nil {
			return nil, nil, err
		}
		if access > uint8(AccessRestricted) {
			return nil, nil, fmt.Errorf("%w: entry point access %d", ErrFormat, access)
		}
		if kind > uint8(KindContract) {
			return nil, nil, fmt.Errorf("%w: entry point kind %d", ErrFormat, kind)
		}
		ep.Access = EntryPointAccess(access)
		ep.Kind = EntryPointKind(kind)
		var ng uint32
		ng, rest, err = TakeU32(rest)
		if err != nil {
			return nil, nil, err
		}
		for j := uint32(0); j < ng; j++ {
			var g string
			g, rest, err = TakeString(rest)
			if err != nil {
				return nil, nil, err
			}
			ep.Groups = append(ep.Groups, g)
		}
		eps = append(eps, ep)
	}
	return eps, rest, nil
}

// EntryPointsFromBytes decodes a complete serialized table.
func EntryPointsFromBytes(b []byte) (EntryPoints, error) {
	eps, rest, err := TakeEntryPoints(b)
	if err != nil {
		return nil, err
	}
	return eps, expectEmpty(rest)
}

// ContractRecord is the stored unit of executable code: the published
// entry-point table and a version marker the host bumps on every upgrade.
// The namespace bound to the record is persisted separately under the
// record's address, which is what lets an upgrade swap the table while
// leaving every named key in place. The host guarantees the swap is
// atomic: no invocation ever observes a partial table.
type ContractRecord struct {
	PackageName     string
	EntryPoints     EntryPoints
	ProtocolVersion uint32
}

// ToBytes encodes the record.
func (r ContractRecord) ToBytes() []byte {
	b := AppendString(nil, r.PackageName)
	b = append(b, r.EntryPoints.ToBytes()...)
	return AppendU32(b, r.ProtocolVersion)
}

// ContractRecordFromBytes decodes a complete serialized record.
func ContractRecordFromBytes(b []byte) (ContractRecord, error) {
	var r ContractRecord
	var err error
	rest := b
	r.PackageName, rest, err = TakeString(rest)
	if err != nil {
		return ContractRecord{}, err
	}
	r.EntryPoints, rest, err = TakeEntryPoints(rest)
	if err != nil {
		return ContractRecord{}, err
	}
	r.ProtocolVersion, rest, err = TakeU32(rest)
	if err != nil {
		return ContractRecord{}, err
	}
	return r, expectEmpty(rest)
}
