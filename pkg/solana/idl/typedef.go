package idl

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Serialization is the wire strategy of a type definition.
type Serialization struct {
	Kind SerializationKind

	// Custom names the serializer when Kind is SerializationCustom.
	Custom string
}

type SerializationKind string

const (
	SerializationBorsh          SerializationKind = "borsh"
	SerializationBytemuck       SerializationKind = "bytemuck"
	SerializationBytemuckUnsafe SerializationKind = "bytemuckunsafe"
	SerializationCustom         SerializationKind = "custom"
)

// IsFixedLayout reports whether values are stored as their raw memory
// representation.
func (s Serialization) IsFixedLayout() bool {
	return s.Kind == SerializationBytemuck || s.Kind == SerializationBytemuckUnsafe
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Serialization) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var custom struct {
			Custom string `json:"custom"`
		}
		if err := json.Unmarshal(data, &custom); err != nil {
			return errors.Wrap(err, "invalid custom serialization")
		}
		*s = Serialization{Kind: SerializationCustom, Custom: custom.Custom}
		return nil
	}

	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return errors.Wrap(err, "invalid serialization")
	}
	switch SerializationKind(kind) {
	case SerializationBorsh, SerializationBytemuck, SerializationBytemuckUnsafe:
		*s = Serialization{Kind: SerializationKind(kind)}
	default:
		*s = Serialization{Kind: SerializationCustom, Custom: kind}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Serialization) MarshalJSON() ([]byte, error) {
	if s.Kind == SerializationCustom {
		return json.Marshal(map[string]string{"custom": s.Custom})
	}
	return json.Marshal(string(s.Kind))
}

type ReprKind string

const (
	ReprRust        ReprKind = "rust"
	ReprC           ReprKind = "c"
	ReprTransparent ReprKind = "transparent"
)

// Repr is an explicit memory layout directive.
type Repr struct {
	Kind   ReprKind `json:"kind"`
	Packed bool     `json:"packed,omitempty"`
	Align  int      `json:"align,omitempty"`
}

type GenericKind string

const (
	GenericKindType  GenericKind = "type"
	GenericKindConst GenericKind = "const"
)

// GenericParam is a generic parameter declared by a type definition. Const
// parameters carry their integer type, e.g. "usize".
type GenericParam struct {
	Kind GenericKind `json:"kind"`
	Name string      `json:"name"`
	Type string      `json:"type,omitempty"`
}

// DefinedFields is the body of a struct or enum variant: named fields,
// positional fields or nothing at all.
type DefinedFields struct {
	Named []Field
	Tuple []TypeRef
}

// IsEmpty reports whether there are no fields.
func (f *DefinedFields) IsEmpty() bool {
	return f == nil || (len(f.Named) == 0 && len(f.Tuple) == 0)
}

// IsTuple reports whether the fields are positional.
func (f *DefinedFields) IsTuple() bool {
	return f != nil && f.Named == nil && f.Tuple != nil
}

// Types returns the field types in declared order.
func (f *DefinedFields) Types() []TypeRef {
	if f == nil {
		return nil
	}
	if f.IsTuple() {
		return f.Tuple
	}
	types := make([]TypeRef, len(f.Named))
	for i, field := range f.Named {
		types[i] = field.Type
	}
	return types
}

// UnmarshalJSON implements json.Unmarshaler. Named fields are objects with a
// name, positional fields are bare types.
func (f *DefinedFields) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "fields must be an array")
	}
	if len(raw) == 0 {
		*f = DefinedFields{Named: []Field{}}
		return nil
	}

	var probe map[string]json.RawMessage
	isNamed := json.Unmarshal(raw[0], &probe) == nil && probe["name"] != nil
	if isNamed {
		var named []Field
		if err := json.Unmarshal(data, &named); err != nil {
			return errors.Wrap(err, "invalid named fields")
		}
		*f = DefinedFields{Named: named}
		return nil
	}

	var tuple []TypeRef
	if err := json.Unmarshal(data, &tuple); err != nil {
		return errors.Wrap(err, "invalid tuple fields")
	}
	*f = DefinedFields{Tuple: tuple}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f DefinedFields) MarshalJSON() ([]byte, error) {
	if f.IsTuple() {
		return json.Marshal(f.Tuple)
	}
	if f.Named == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Named)
}

type EnumVariant struct {
	Name   string         `json:"name"`
	Fields *DefinedFields `json:"fields,omitempty"`
}

type TypeDefKind string

const (
	TypeDefStruct TypeDefKind = "struct"
	TypeDefEnum   TypeDefKind = "enum"
	TypeDefAlias  TypeDefKind = "type"
)

// TypeDefBody is the shape of a type definition.
type TypeDefBody struct {
	Kind TypeDefKind `json:"kind"`

	// Fields is set for structs; nil means a unit struct.
	Fields *DefinedFields `json:"fields,omitempty"`

	// Variants is set for enums.
	Variants []EnumVariant `json:"variants,omitempty"`

	// Alias is set for type aliases.
	Alias *TypeRef `json:"alias,omitempty"`
}

// TypeDef is a named type definition.
type TypeDef struct {
	Name          string         `json:"name"`
	Docs          []string       `json:"docs,omitempty"`
	Serialization Serialization  `json:"serialization"`
	Repr          *Repr          `json:"repr,omitempty"`
	Generics      []GenericParam `json:"generics,omitempty"`
	Type          TypeDefBody    `json:"type"`
}

// UnmarshalJSON implements json.Unmarshaler, defaulting the serialization to
// borsh.
func (d *TypeDef) UnmarshalJSON(data []byte) error {
	type alias TypeDef
	raw := alias{Serialization: Serialization{Kind: SerializationBorsh}}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = TypeDef(raw)
	return nil
}

// IsEnum reports whether the definition is an enum.
func (d *TypeDef) IsEnum() bool {
	return d.Type.Kind == TypeDefEnum
}

// GenericParam looks up a declared generic parameter.
func (d *TypeDef) GenericParam(name string) (GenericParam, bool) {
	for _, g := range d.Generics {
		if g.Name == name {
			return g, true
		}
	}
	return GenericParam{}, false
}
