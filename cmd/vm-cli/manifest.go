package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ledgervm/vm/types"
)

// Manifest describes a contract for deployment: the package it was built
// from and the entry points it publishes.
type Manifest struct {
	Package     string          `json:"package"`
	EntryPoints []ManifestEntry `json:"entry_points"`
}

// ManifestEntry is one published entry point.
type ManifestEntry struct {
	Name   string          `json:"name"`
	Params []ManifestParam `json:"params,omitempty"`
	Ret    string          `json:"ret,omitempty"`
	Access string          `json:"access,omitempty"`
	Groups []string        `json:"groups,omitempty"`
	Kind   string          `json:"kind,omitempty"`
}

// ManifestParam is one declared parameter.
type ManifestParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LoadManifest reads and resolves a manifest file into an entry-point
// table.
func LoadManifest(path string) (string, types.EntryPoints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	eps, err := m.Resolve()
	if err != nil {
		return "", nil, err
	}
	return m.Package, eps, nil
}

// Resolve converts the manifest's textual types into an entry-point table.
func (m Manifest) Resolve() (types.EntryPoints, error) {
	eps := make(types.EntryPoints, 0, len(m.EntryPoints))
	for _, me := range m.EntryPoints {
		ep := types.EntryPoint{Name: me.Name, Groups: me.Groups}

		for _, p := range me.Params {
			pt, err := ParseCLType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("entry point %s, param %s: %w", me.Name, p.Name, err)
			}
			ep.Params = append(ep.Params, types.Parameter{Name: p.Name, Type: pt})
		}

		ret := me.Ret
		if ret == "" {
			ret = "unit"
		}
		rt, err := ParseCLType(ret)
		if err != nil {
			return nil, fmt.Errorf("entry point %s, return: %w", me.Name, err)
		}
		ep.Ret = rt

		switch me.Access {
		case "", "public":
			ep.Access = types.AccessPublic
		case "restricted":
			ep.Access = types.AccessRestricted
		default:
			return nil, fmt.Errorf("entry point %s: unknown access %q", me.Name, me.Access)
		}

		switch me.Kind {
		case "", "contract":
			ep.Kind = types.KindContract
		case "session":
			ep.Kind = types.KindSession
		default:
			return nil, fmt.Errorf("entry point %s: unknown kind %q", me.Name, me.Kind)
		}

		eps = append(eps, ep)
	}
	return eps, nil
}

// ParseCLType parses a manifest type expression: a scalar name, or
// option<T>, list<T>, map<K,V>.
func ParseCLType(s string) (types.CLType, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "bool":
		return types.CLTypeBool(), nil
	case "i32":
		return types.CLTypeI32(), nil
	case "i64":
		return types.CLTypeI64(), nil
	case "u8":
		return types.CLTypeU8(), nil
	case "u32":
		return types.CLTypeU32(), nil
	case "u64":
		return types.CLTypeU64(), nil
	case "unit":
		return types.CLTypeUnit(), nil
	case "string":
		return types.CLTypeString(), nil
	case "key":
		return types.CLTypeKey(), nil
	case "uref":
		return types.CLTypeURef(), nil
	case "bytes":
		return types.CLTypeBytes(), nil
	case "any":
		return types.CLTypeAny(), nil
	}

	open := strings.IndexByte(s, '<')
	if open < 0 || !strings.HasSuffix(s, ">") {
		return types.CLType{}, fmt.Errorf("unknown type %q", s)
	}
	inner := s[open+1 : len(s)-1]
	switch s[:open] {
	case "option":
		t, err := ParseCLType(inner)
		if err != nil {
			return types.CLType{}, err
		}
		return types.CLTypeOption(t), nil
	case "list":
		t, err := ParseCLType(inner)
		if err != nil {
			return types.CLType{}, err
		}
		return types.CLTypeList(t), nil
	case "map":
		k, v, err := splitTypePair(inner)
		if err != nil {
			return types.CLType{}, err
		}
		return types.CLTypeMap(k, v), nil
	default:
		return types.CLType{}, fmt.Errorf("unknown type %q", s)
	}
}

// splitTypePair splits "K,V" at the top-level comma, respecting nesting.
func splitTypePair(s string) (types.CLType, types.CLType, error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				k, err := ParseCLType(s[:i])
				if err != nil {
					return types.CLType{}, types.CLType{}, err
				}
				v, err := ParseCLType(s[i+1:])
				if err != nil {
					return types.CLType{}, types.CLType{}, err
				}
				return k, v, nil
			}
		}
	}
	return types.CLType{}, types.CLType{}, fmt.Errorf("map type %q needs a key and a value", s)
}

// argSpec is one invocation argument as given on the command line.
type argSpec struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ParseArgs converts a JSON argument array into typed envelopes. Each
// element carries its manifest type and a JSON value of matching shape.
func ParseArgs(argsJSON string) ([]types.CLValue, error) {
	if strings.TrimSpace(argsJSON) == "" {
		return nil, nil
	}
	var specs []argSpec
	if err := json.Unmarshal([]byte(argsJSON), &specs); err != nil {
		return nil, fmt.Errorf("failed to parse args: %w", err)
	}
	out := make([]types.CLValue, 0, len(specs))
	for i, spec := range specs {
		v, err := buildArg(spec)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func buildArg(spec argSpec) (types.CLValue, error) {
	unmarshal := func(out any) error {
		return json.Unmarshal(spec.Value, out)
	}
	switch spec.Type {
	case "bool":
		var v bool
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "i32":
		var v int32
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "i64":
		var v int64
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "u8":
		var v uint8
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "u32":
		var v uint32
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "u64":
		var v uint64
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "string":
		var v string
		if err := unmarshal(&v); err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(v)
	case "key":
		var s string
		if err := unmarshal(&s); err != nil {
			return types.CLValue{}, err
		}
		key, err := types.ParseKey(s)
		if err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(key)
	case "uref":
		var s string
		if err := unmarshal(&s); err != nil {
			return types.CLValue{}, err
		}
		uref, err := types.ParseURef(s)
		if err != nil {
			return types.CLValue{}, err
		}
		return types.NewCLValue(uref)
	case "unit":
		return types.UnitValue(), nil
	default:
		return types.CLValue{}, fmt.Errorf("unsupported arg type %q", spec.Type)
	}
}
