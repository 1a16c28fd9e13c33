package idl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode"

	"github.com/pkg/errors"
)

// Kind identifies the variant of a TypeRef.
type Kind string

const (
	KindBool   Kind = "bool"
	KindU8     Kind = "u8"
	KindI8     Kind = "i8"
	KindU16    Kind = "u16"
	KindI16    Kind = "i16"
	KindU32    Kind = "u32"
	KindI32    Kind = "i32"
	KindF32    Kind = "f32"
	KindU64    Kind = "u64"
	KindI64    Kind = "i64"
	KindF64    Kind = "f64"
	KindU128   Kind = "u128"
	KindI128   Kind = "i128"
	KindU256   Kind = "u256"
	KindI256   Kind = "i256"
	KindBytes  Kind = "bytes"
	KindString Kind = "string"
	KindPubkey Kind = "pubkey"

	KindOption  Kind = "option"
	KindVec     Kind = "vec"
	KindArray   Kind = "array"
	KindDefined Kind = "defined"
	KindGeneric Kind = "generic"
)

var primitiveKinds = map[Kind]struct{}{
	KindBool: {}, KindU8: {}, KindI8: {}, KindU16: {}, KindI16: {}, KindU32: {}, KindI32: {},
	KindF32: {}, KindU64: {}, KindI64: {}, KindF64: {}, KindU128: {}, KindI128: {},
	KindU256: {}, KindI256: {}, KindBytes: {}, KindString: {}, KindPubkey: {},
}

// IsPrimitive reports whether k is a leaf kind.
func (k Kind) IsPrimitive() bool {
	_, ok := primitiveKinds[k]
	return ok
}

// TypeRef is a reference to a type: a primitive, a composite over another
// TypeRef, a named type definition or an unbound generic parameter.
type TypeRef struct {
	Kind Kind

	// Elem is set for option, vec and array.
	Elem *TypeRef

	// Len is set for arrays with a literal length; LenGeneric names the const
	// generic parameter otherwise.
	Len        int
	LenGeneric string

	// Name is the referenced type for defined, or the parameter for generic.
	Name     string
	Generics []GenericArg
}

// GenericArg is an argument bound to a generic parameter of a defined type.
type GenericArg struct {
	// Type is set for type arguments.
	Type *TypeRef

	// Value is set for const arguments, verbatim as written in the IDL.
	Value string
}

// IsConst reports whether the argument binds a const parameter.
func (g GenericArg) IsConst() bool {
	return g.Type == nil
}

func Primitive(kind Kind) TypeRef { return TypeRef{Kind: kind} }

func Option(elem TypeRef) TypeRef { return TypeRef{Kind: KindOption, Elem: &elem} }

func Vec(elem TypeRef) TypeRef { return TypeRef{Kind: KindVec, Elem: &elem} }

func Array(elem TypeRef, n int) TypeRef { return TypeRef{Kind: KindArray, Elem: &elem, Len: n} }

func GenericArray(elem TypeRef, param string) TypeRef {
	return TypeRef{Kind: KindArray, Elem: &elem, LenGeneric: param}
}

func Defined(name string, generics ...GenericArg) TypeRef {
	return TypeRef{Kind: KindDefined, Name: name, Generics: generics}
}

func Generic(name string) TypeRef { return TypeRef{Kind: KindGeneric, Name: name} }

// String renders the reference in a compact, Rust-like notation.
func (t TypeRef) String() string {
	switch t.Kind {
	case KindOption:
		return fmt.Sprintf("Option<%s>", t.Elem)
	case KindVec:
		return fmt.Sprintf("Vec<%s>", t.Elem)
	case KindArray:
		if t.LenGeneric != "" {
			return fmt.Sprintf("[%s; %s]", t.Elem, t.LenGeneric)
		}
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	case KindDefined:
		if len(t.Generics) == 0 {
			return t.Name
		}
		var buf bytes.Buffer
		buf.WriteString(t.Name)
		buf.WriteString("<")
		for i, g := range t.Generics {
			if i > 0 {
				buf.WriteString(", ")
			}
			if g.IsConst() {
				buf.WriteString(g.Value)
			} else {
				buf.WriteString(g.Type.String())
			}
		}
		buf.WriteString(">")
		return buf.String()
	case KindGeneric:
		return t.Name
	default:
		return string(t.Kind)
	}
}

type rawDefined struct {
	Name     string       `json:"name"`
	Generics []GenericArg `json:"generics,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TypeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		kind := Kind(name)
		if !kind.IsPrimitive() {
			return errors.Errorf("unknown primitive type %q", name)
		}
		*t = TypeRef{Kind: kind}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "type must be a string or an object")
	}
	if len(obj) != 1 {
		return errors.Errorf("type object must have exactly one key, got %d", len(obj))
	}

	for key, raw := range obj {
		switch Kind(key) {
		case KindOption, KindVec:
			var elem TypeRef
			if err := json.Unmarshal(raw, &elem); err != nil {
				return errors.Wrapf(err, "invalid %s element", key)
			}
			*t = TypeRef{Kind: Kind(key), Elem: &elem}
		case KindArray:
			var parts []json.RawMessage
			if err := json.Unmarshal(raw, &parts); err != nil {
				return errors.Wrap(err, "invalid array")
			}
			if len(parts) != 2 {
				return errors.New("array must be [type, length]")
			}
			var elem TypeRef
			if err := json.Unmarshal(parts[0], &elem); err != nil {
				return errors.Wrap(err, "invalid array element")
			}
			arr := TypeRef{Kind: KindArray, Elem: &elem}
			if err := arr.unmarshalArrayLen(parts[1]); err != nil {
				return err
			}
			*t = arr
		case KindDefined:
			// Legacy IDLs reference defined types by bare name.
			var name string
			if err := json.Unmarshal(raw, &name); err == nil {
				*t = TypeRef{Kind: KindDefined, Name: name}
				return nil
			}
			var def rawDefined
			if err := json.Unmarshal(raw, &def); err != nil {
				return errors.Wrap(err, "invalid defined type")
			}
			if def.Name == "" {
				return errors.New("defined type without a name")
			}
			*t = TypeRef{Kind: KindDefined, Name: def.Name, Generics: def.Generics}
		case KindGeneric:
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return errors.Wrap(err, "invalid generic")
			}
			*t = TypeRef{Kind: KindGeneric, Name: name}
		default:
			return errors.Errorf("unknown composite type %q", key)
		}
	}
	return nil
}

func (t *TypeRef) unmarshalArrayLen(raw json.RawMessage) error {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return errors.Errorf("negative array length %d", n)
		}
		t.Len = n
		return nil
	}

	var generic struct {
		Generic string `json:"generic"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil || generic.Generic == "" {
		return errors.Errorf("invalid array length %s", string(raw))
	}
	t.LenGeneric = generic.Generic
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t TypeRef) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindOption, KindVec:
		return json.Marshal(map[string]interface{}{string(t.Kind): t.Elem})
	case KindArray:
		var n interface{} = t.Len
		if t.LenGeneric != "" {
			n = map[string]string{"generic": t.LenGeneric}
		}
		return json.Marshal(map[string]interface{}{"array": []interface{}{t.Elem, n}})
	case KindDefined:
		return json.Marshal(map[string]interface{}{"defined": rawDefined{Name: t.Name, Generics: t.Generics}})
	case KindGeneric:
		return json.Marshal(map[string]string{"generic": t.Name})
	default:
		return json.Marshal(string(t.Kind))
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *GenericArg) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  string          `json:"kind"`
		Type  *TypeRef        `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case "type":
		if raw.Type == nil {
			return errors.New("type generic argument without a type")
		}
		*g = GenericArg{Type: raw.Type}
	case "const":
		// Values are usually strings, but tolerate bare numbers.
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(raw.Value, &n); err != nil {
				return errors.Errorf("invalid const generic value %s", string(raw.Value))
			}
			s = n.String()
		}
		*g = GenericArg{Value: s}
	default:
		return errors.Errorf("unknown generic argument kind %q", raw.Kind)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g GenericArg) MarshalJSON() ([]byte, error) {
	if g.IsConst() {
		return json.Marshal(map[string]string{"kind": "const", "value": g.Value})
	}
	return json.Marshal(map[string]interface{}{"kind": "type", "type": g.Type})
}

// IsParamRef reports whether a const argument names a const parameter of
// the enclosing definition instead of holding a literal.
func (g GenericArg) IsParamRef() bool {
	if !g.IsConst() || g.Value == "" {
		return false
	}
	r := rune(g.Value[0])
	return r == '_' || unicode.IsLetter(r)
}

// ConstInt parses a const generic argument as an array length.
func (g GenericArg) ConstInt() (int, error) {
	n, err := strconv.Atoi(g.Value)
	if err != nil || n < 0 {
		return 0, errors.Errorf("const generic %q is not a valid length", g.Value)
	}
	return n, nil
}
