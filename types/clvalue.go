package types

import (
	"errors"
	"fmt"
	"sort"
)

// CLTypeTag enumerates the type descriptors the envelope format supports.
type CLTypeTag uint8

const (
	CLTagBool CLTypeTag = iota
	CLTagI32
	CLTagI64
	CLTagU8
	CLTagU32
	CLTagU64
	CLTagUnit
	CLTagString
	CLTagKey
	CLTagURef
	CLTagOption
	CLTagList
	CLTagBytes
	CLTagMap
	CLTagAny
)

// CLType describes the type of an envelope payload. Composite descriptors
// recurse through Inner (Option and List elements, Map keys) and Inner2
// (Map values).
type CLType struct {
	Tag    CLTypeTag
	Inner  *CLType
	Inner2 *CLType
}

// Simple type descriptor constructors.
func CLTypeBool() CLType   { return CLType{Tag: CLTagBool} }
func CLTypeI32() CLType    { return CLType{Tag: CLTagI32} }
func CLTypeI64() CLType    { return CLType{Tag: CLTagI64} }
func CLTypeU8() CLType     { return CLType{Tag: CLTagU8} }
func CLTypeU32() CLType    { return CLType{Tag: CLTagU32} }
func CLTypeU64() CLType    { return CLType{Tag: CLTagU64} }
func CLTypeUnit() CLType   { return CLType{Tag: CLTagUnit} }
func CLTypeString() CLType { return CLType{Tag: CLTagString} }
func CLTypeKey() CLType    { return CLType{Tag: CLTagKey} }
func CLTypeURef() CLType   { return CLType{Tag: CLTagURef} }
func CLTypeBytes() CLType  { return CLType{Tag: CLTagBytes} }
func CLTypeAny() CLType    { return CLType{Tag: CLTagAny} }

// CLTypeOption describes an optional value of the given element type.
func CLTypeOption(inner CLType) CLType {
	return CLType{Tag: CLTagOption, Inner: &inner}
}

// CLTypeList describes a homogeneous list of the given element type.
func CLTypeList(inner CLType) CLType {
	return CLType{Tag: CLTagList, Inner: &inner}
}

// CLTypeMap describes a map with the given key and value types.
func CLTypeMap(key, value CLType) CLType {
	return CLType{Tag: CLTagMap, Inner: &key, Inner2: &value}
}

// Equal reports whether two descriptors denote the same type.
func (t CLType) Equal(other CLType) bool {
	if t.Tag != other.Tag {
		return false
	}
	if (t.Inner == nil) != (other.Inner == nil) {
		return false
	}
	if t.Inner != nil && !t.Inner.Equal(*other.Inner) {
		return false
	}
	if (t.Inner2 == nil) != (other.Inner2 == nil) {
		return false
	}
	if t.Inner2 != nil && !t.Inner2.Equal(*other.Inner2) {
		return false
	}
	return true
}

var clTagNames = map[CLTypeTag]string{
	CLTagBool: "Bool", CLTagI32: "I32", CLTagI64: "I64", CLTagU8: "U8",
	CLTagU32: "U32", CLTagU64: "U64", CLTagUnit: "Unit", CLTagString: "String",
	CLTagKey: "Key", CLTagURef: "URef", CLTagOption: "Option", CLTagList: "List",
	CLTagBytes: "Bytes", CLTagMap: "Map", CLTagAny: "Any",
}

func (t CLType) String() string {
	name := clTagNames[t.Tag]
	switch t.Tag {
	case CLTagOption, CLTagList:
		return fmt.Sprintf("%s(%s)", name, t.Inner)
	case CLTagMap:
		return fmt.Sprintf("Map(%s,%s)", t.Inner, t.Inner2)
	default:
		return name
	}
}

// ToBytes encodes the descriptor: a tag byte, composites recurse.
func (t CLType) ToBytes() []byte {
	b := []byte{uint8(t.Tag)}
	switch t.Tag {
	case CLTagOption, CLTagList:
		b = append(b, t.Inner.ToBytes()...)
	case CLTagMap:
		b = append(b, t.Inner.ToBytes()...)
		b = append(b, t.Inner2.ToBytes()...)
	}
	return b
}

// TakeCLType consumes a serialized descriptor and returns the remainder.
func TakeCLType(b []byte) (CLType, []byte, error) {
	tag, rest, err := TakeU8(b)
	if err != nil {
		return CLType{}, nil, err
	}
	t := CLType{Tag: CLTypeTag(tag)}
	switch t.Tag {
	case CLTagBool, CLTagI32, CLTagI64, CLTagU8, CLTagU32, CLTagU64,
		CLTagUnit, CLTagString, CLTagKey, CLTagURef, CLTagBytes, CLTagAny:
		return t, rest, nil
	case CLTagOption, CLTagList:
		inner, rest, err := TakeCLType(rest)
		if err != nil {
			return CLType{}, nil, err
		}
		t.Inner = &inner
		return t, rest, nil
	case CLTagMap:
		key, rest, err := TakeCLType(rest)
		if err != nil {
			return CLType{}, nil, err
		}
		value, rest, err := TakeCLType(rest)
		if err != nil {
			return CLType{}, nil, err
		}
		t.Inner = &key
		t.Inner2 = &value
		return t, rest, nil
	default:
		return CLType{}, nil, fmt.Errorf("%w: cl type tag %d", ErrFormat, tag)
	}
}

// TypeMismatchError reports a decode into a target whose type does not
// match the envelope's declared descriptor. It is recoverable: the caller
// asked the wrong question, the envelope itself is intact.
type TypeMismatchError struct {
	Expected CLType
	Found    CLType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cl value: type mismatch: expected %s, found %s", e.Expected, e.Found)
}

// IsTypeMismatch reports whether err is a declared-type mismatch as opposed
// to a malformed payload.
func IsTypeMismatch(err error) bool {
	var tm *TypeMismatchError
	return errors.As(err, &tm)
}

// CLValue is the typed value envelope: a raw payload plus the descriptor
// needed to validate and decode it without ambient type knowledge. Every
// value crossing the host boundary travels inside one.
type CLValue struct {
	Type  CLType
	Bytes []byte
}

// ToBytes encodes the envelope as a length-prefixed payload followed by
// the type descriptor.
func (v CLValue) ToBytes() []byte {
	b := AppendBytes(nil, v.Bytes)
	return append(b, v.Type.ToBytes()...)
}

// TakeCLValue consumes a serialized envelope and returns the remainder.
func TakeCLValue(b []byte) (CLValue, []byte, error) {
	payload, rest, err := TakeBytes(b)
	if err != nil {
		return CLValue{}, nil, err
	}
	t, rest, err := TakeCLType(rest)
	if err != nil {
		return CLValue{}, nil, err
	}
	return CLValue{Type: t, Bytes: payload}, rest, nil
}

// CLValueFromBytes decodes a complete serialized envelope.
func CLValueFromBytes(b []byte) (CLValue, error) {
	v, rest, err := TakeCLValue(b)
	if err != nil {
		return CLValue{}, err
	}
	return v, expectEmpty(rest)
}

// UnitValue is the envelope carrying no payload.
func UnitValue() CLValue {
	return CLValue{Type: CLTypeUnit()}
}

// NewCLValue wraps a Go value in an envelope. Supported inputs: bool,
// int32, int64, uint8, uint32, uint64, string, []byte, Key, URef, []Key,
// []URef, NamedKeys, BlockTime, Phase, CLValue (returned as-is) and nil
// (unit).
func NewCLValue(v any) (CLValue, error) {
	switch x := v.(type) {
	case nil:
		return UnitValue(), nil
	case CLValue:
		return x, nil
	case bool:
		return CLValue{Type: CLTypeBool(), Bytes: AppendBool(nil, x)}, nil
	case int32:
		return CLValue{Type: CLTypeI32(), Bytes: AppendI32(nil, x)}, nil
	case int64:
		return CLValue{Type: CLTypeI64(), Bytes: AppendI64(nil, x)}, nil
	case uint8:
		return CLValue{Type: CLTypeU8(), Bytes: AppendU8(nil, x)}, nil
	case uint32:
		return CLValue{Type: CLTypeU32(), Bytes: AppendU32(nil, x)}, nil
	case uint64:
		return CLValue{Type: CLTypeU64(), Bytes: AppendU64(nil, x)}, nil
	case string:
		return CLValue{Type: CLTypeString(), Bytes: AppendString(nil, x)}, nil
	case []byte:
		return CLValue{Type: CLTypeBytes(), Bytes: AppendBytes(nil, x)}, nil
	case Key:
		return CLValue{Type: CLTypeKey(), Bytes: x.ToBytes()}, nil
	case URef:
		return CLValue{Type: CLTypeURef(), Bytes: x.ToBytes()}, nil
	case BlockTime:
		return CLValue{Type: CLTypeU64(), Bytes: AppendU64(nil, uint64(x))}, nil
	case Phase:
		return CLValue{Type: CLTypeU8(), Bytes: AppendU8(nil, uint8(x))}, nil
	case []Key:
		b := AppendU32(nil, uint32(len(x)))
		for _, k := range x {
			b = append(b, k.ToBytes()...)
		}
		return CLValue{Type: CLTypeList(CLTypeKey()), Bytes: b}, nil
	case []URef:
		b := AppendU32(nil, uint32(len(x)))
		for _, u := range x {
			b = append(b, u.ToBytes()...)
		}
		return CLValue{Type: CLTypeList(CLTypeURef()), Bytes: b}, nil
	case NamedKeys:
		return CLValue{Type: CLTypeMap(CLTypeString(), CLTypeKey()), Bytes: x.ToBytes()}, nil
	default:
		return CLValue{}, fmt.Errorf("cl value: unsupported Go type %T", v)
	}
}

// MustCLValue is NewCLValue for values known to be supported.
func MustCLValue(v any) CLValue {
	out, err := NewCLValue(v)
	if err != nil {
		panic(err)
	}
	return out
}

// OptionSome wraps an envelope as a present optional.
func OptionSome(v CLValue) CLValue {
	b := append([]byte{1}, v.Bytes...)
	return CLValue{Type: CLTypeOption(v.Type), Bytes: b}
}

// OptionNone builds an absent optional of the given element type.
func OptionNone(inner CLType) CLValue {
	return CLValue{Type: CLTypeOption(inner), Bytes: []byte{0}}
}

// Into decodes the envelope into out, which must be a pointer to one of
// the Go types NewCLValue accepts. A declared-type mismatch returns a
// *TypeMismatchError; payload bytes that do not satisfy the declared type
// return a bytesrepr error. Neither coerces.
func (v CLValue) Into(out any) error {
	switch p := out.(type) {
	case *bool:
		if err := v.expect(CLTypeBool()); err != nil {
			return err
		}
		x, rest, err := TakeBool(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *int32:
		if err := v.expect(CLTypeI32()); err != nil {
			return err
		}
		x, rest, err := TakeI32(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *int64:
		if err := v.expect(CLTypeI64()); err != nil {
			return err
		}
		x, rest, err := TakeI64(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *uint8:
		if err := v.expect(CLTypeU8()); err != nil {
			return err
		}
		x, rest, err := TakeU8(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *uint32:
		if err := v.expect(CLTypeU32()); err != nil {
			return err
		}
		x, rest, err := TakeU32(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *uint64:
		if err := v.expect(CLTypeU64()); err != nil {
			return err
		}
		x, rest, err := TakeU64(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *string:
		if err := v.expect(CLTypeString()); err != nil {
			return err
		}
		x, rest, err := TakeString(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *[]byte:
		if err := v.expect(CLTypeBytes()); err != nil {
			return err
		}
		x, rest, err := TakeBytes(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return expectEmpty(rest)
	case *Key:
		if err := v.expect(CLTypeKey()); err != nil {
			return err
		}
		x, err := KeyFromBytes(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return nil
	case *URef:
		if err := v.expect(CLTypeURef()); err != nil {
			return err
		}
		x, err := URefFromBytes(v.Bytes)
		if err != nil {
			return err
		}
		*p = x
		return nil
	case *BlockTime:
		if err := v.expect(CLTypeU64()); err != nil {
			return err
		}
		x, rest, err := TakeU64(v.Bytes)
		if err != nil {
			return err
		}
		*p = BlockTime(x)
		return expectEmpty(rest)
	case *Phase:
		if err := v.expect(CLTypeU8()); err != nil {
			return err
		}
		x, rest, err := TakeU8(v.Bytes)
		if err != nil {
			return err
		}
		*p = Phase(x)
		return expectEmpty(rest)
	case *[]Key:
		if err := v.expect(CLTypeList(CLTypeKey())); err != nil {
			return err
		}
		n, rest, err := TakeU32(v.Bytes)
		if err != nil {
			return err
		}
		keys := make([]Key, 0, n)
		for i := uint32(0); i < n; i++ {
			var k Key
			k, rest, err = TakeKey(rest)
			if err != nil {
				return err
			}
			keys = append(keys, k)
		}
		*p = keys
		return expectEmpty(rest)
	case *[]URef:
		if err := v.expect(CLTypeList(CLTypeURef())); err != nil {
			return err
		}
		n, rest, err := TakeU32(v.Bytes)
		if err != nil {
			return err
		}
		urefs := make([]URef, 0, n)
		for i := uint32(0); i < n; i++ {
			var u URef
			u, rest, err = TakeURef(rest)
			if err != nil {
				return err
			}
			urefs = append(urefs, u)
		}
		*p = urefs
		return expectEmpty(rest)
	case *NamedKeys:
		if err := v.expect(CLTypeMap(CLTypeString(), CLTypeKey())); err != nil {
			return err
		}
		nk, err := NamedKeysFromBytes(v.Bytes)
		if err != nil {
			return err
		}
		*p = nk
		return nil
	case *CLValue:
		// Pass-through: the caller keeps the envelope and decodes later.
		*p = v
		return nil
	default:
		return fmt.Errorf("cl value: unsupported decode target %T", out)
	}
}

// IntoOption decodes an optional envelope. It reports presence and, when
// present, decodes the element into out using the same rules as Into.
func (v CLValue) IntoOption(out any) (bool, error) {
	if v.Type.Tag != CLTagOption || v.Type.Inner == nil {
		return false, &TypeMismatchError{Expected: CLTypeOption(CLTypeAny()), Found: v.Type}
	}
	present, rest, err := TakeBool(v.Bytes)
	if err != nil {
		return false, err
	}
	if !present {
		return false, expectEmpty(rest)
	}
	inner := CLValue{Type: *v.Type.Inner, Bytes: rest}
	return true, inner.Into(out)
}

func (v CLValue) expect(t CLType) error {
	if !v.Type.Equal(t) {
		return &TypeMismatchError{Expected: t, Found: v.Type}
	}
	return nil
}

// sortedNames returns map keys in lexicographic order. Map encoding and
// namespace enumeration both rely on it: independently executing
// validators must observe identical byte streams.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
