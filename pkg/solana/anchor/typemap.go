package anchor

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// TargetKind identifies the Go representation of a mapped type.
type TargetKind uint8

const (
	TargetBool TargetKind = iota
	TargetInt
	TargetFloat
	TargetBigInt
	TargetWord
	TargetPublicKey
	TargetBytes
	TargetString
	TargetOption
	TargetSlice
	TargetArray
	TargetNamed
	TargetParam
)

// TargetType describes the Go type a schema TypeRef maps to.
type TargetType struct {
	Kind TargetKind

	// Bits and Signed size TargetInt, TargetFloat, TargetBigInt and
	// TargetWord.
	Bits   int
	Signed bool

	// View marks bytes and strings mapped in a constant context, which are
	// immutable literals rather than owned buffers.
	View bool

	// Elem is set for TargetOption, TargetSlice and TargetArray.
	Elem *TargetType

	// Len is the length of a TargetArray, unless LenParam names the const
	// generic parameter that sizes it.
	Len      int
	LenParam string

	// Name is the type name of TargetNamed and the parameter name of
	// TargetParam.
	Name string
	Args []TargetArg
}

// TargetArg is a generic argument of a TargetNamed instantiation.
type TargetArg struct {
	// Type is set for type arguments.
	Type *TargetType

	// Const is the verbatim value of a const argument.
	Const string
}

// IsConst reports whether the argument binds a const parameter.
func (a TargetArg) IsConst() bool {
	return a.Type == nil
}

func (t *TargetType) String() string {
	switch t.Kind {
	case TargetBool:
		return "bool"
	case TargetInt:
		if t.Signed {
			return fmt.Sprintf("int%d", t.Bits)
		}
		return fmt.Sprintf("uint%d", t.Bits)
	case TargetFloat:
		return fmt.Sprintf("float%d", t.Bits)
	case TargetBigInt:
		return "*big.Int"
	case TargetWord:
		return "[32]byte"
	case TargetPublicKey:
		return "ed25519.PublicKey"
	case TargetBytes:
		if t.View {
			return "string"
		}
		return "[]byte"
	case TargetString:
		return "string"
	case TargetOption:
		return "*" + t.Elem.String()
	case TargetSlice:
		return "[]" + t.Elem.String()
	case TargetArray:
		if t.LenParam != "" {
			return fmt.Sprintf("[%s]%s", t.LenParam, t.Elem)
		}
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	case TargetNamed:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, arg := range t.Args {
			if arg.IsConst() {
				args[i] = arg.Const
			} else {
				args[i] = arg.Type.String()
			}
		}
		return fmt.Sprintf("%s[%s]", t.Name, strings.Join(args, ", "))
	case TargetParam:
		return t.Name
	}
	return "invalid"
}

// ShapeField is a field of an instantiated struct or variant. Positional
// fields are named by their index.
type ShapeField struct {
	Name string
	Type *TargetType
}

type ShapeVariant struct {
	Name   string
	Fields []ShapeField
	Tuple  bool
}

// Shape is the body of a named type with its generic arguments substituted.
type Shape struct {
	Def  *idl.TypeDef
	Kind idl.TypeDefKind

	// Fields and Tuple describe a struct.
	Fields []ShapeField
	Tuple  bool

	Variants []ShapeVariant

	Alias *TargetType
}

var primitiveTargets = map[idl.Kind]TargetType{
	idl.KindBool:   {Kind: TargetBool},
	idl.KindU8:     {Kind: TargetInt, Bits: 8},
	idl.KindI8:     {Kind: TargetInt, Bits: 8, Signed: true},
	idl.KindU16:    {Kind: TargetInt, Bits: 16},
	idl.KindI16:    {Kind: TargetInt, Bits: 16, Signed: true},
	idl.KindU32:    {Kind: TargetInt, Bits: 32},
	idl.KindI32:    {Kind: TargetInt, Bits: 32, Signed: true},
	idl.KindU64:    {Kind: TargetInt, Bits: 64},
	idl.KindI64:    {Kind: TargetInt, Bits: 64, Signed: true},
	idl.KindF32:    {Kind: TargetFloat, Bits: 32},
	idl.KindF64:    {Kind: TargetFloat, Bits: 64},
	idl.KindU128:   {Kind: TargetBigInt, Bits: 128},
	idl.KindI128:   {Kind: TargetBigInt, Bits: 128, Signed: true},
	idl.KindU256:   {Kind: TargetWord, Bits: 256},
	idl.KindI256:   {Kind: TargetWord, Bits: 256, Signed: true},
	idl.KindPubkey: {Kind: TargetPublicKey},
}

// TypeMapper converts schema type references into TargetTypes and
// instantiates named types.
type TypeMapper struct {
	doc *idl.IDL

	shapeMu sync.RWMutex
	shapes  map[string]*Shape
}

func NewTypeMapper(doc *idl.IDL) *TypeMapper {
	return &TypeMapper{
		doc:    doc,
		shapes: make(map[string]*Shape),
	}
}

// Map converts ref. In a constant context bytes and strings map to
// immutable views. A Defined reference to an unknown type fails with
// ErrUnresolvedType.
func (m *TypeMapper) Map(ref idl.TypeRef, isConstContext bool) (*TargetType, error) {
	if target, ok := primitiveTargets[ref.Kind]; ok {
		return &target, nil
	}

	switch ref.Kind {
	case idl.KindBytes:
		return &TargetType{Kind: TargetBytes, View: isConstContext}, nil
	case idl.KindString:
		return &TargetType{Kind: TargetString, View: isConstContext}, nil
	case idl.KindOption, idl.KindVec, idl.KindArray:
		if ref.Elem == nil {
			return nil, errors.Errorf("%s without an element type", ref.Kind)
		}
		elem, err := m.Map(*ref.Elem, isConstContext)
		if err != nil {
			return nil, err
		}

		switch ref.Kind {
		case idl.KindOption:
			return &TargetType{Kind: TargetOption, Elem: elem}, nil
		case idl.KindVec:
			return &TargetType{Kind: TargetSlice, Elem: elem}, nil
		default:
			return &TargetType{Kind: TargetArray, Elem: elem, Len: ref.Len, LenParam: ref.LenGeneric}, nil
		}
	case idl.KindDefined:
		def, ok := m.doc.TypeDef(ref.Name)
		if !ok {
			return nil, errors.Wrapf(ErrUnresolvedType, "type %q is not defined", ref.Name)
		}
		if len(ref.Generics) != 0 && len(ref.Generics) != len(def.Generics) {
			return nil, errors.Wrapf(ErrUnresolvedType, "type %q takes %d generic arguments, got %d", ref.Name, len(def.Generics), len(ref.Generics))
		}

		target := &TargetType{Kind: TargetNamed, Name: ref.Name}
		for _, g := range ref.Generics {
			if g.IsConst() {
				target.Args = append(target.Args, TargetArg{Const: g.Value})
				continue
			}

			arg, err := m.Map(*g.Type, isConstContext)
			if err != nil {
				return nil, err
			}
			target.Args = append(target.Args, TargetArg{Type: arg})
		}
		return target, nil
	case idl.KindGeneric:
		return &TargetType{Kind: TargetParam, Name: ref.Name}, nil
	}

	return nil, errors.Errorf("unknown type kind %q", ref.Kind)
}

// Shape instantiates the named type t. Results are memoized per
// instantiation.
func (m *TypeMapper) Shape(t *TargetType) (*Shape, error) {
	if t.Kind != TargetNamed {
		return nil, errors.Errorf("%s is not a named type", t)
	}

	key := t.String()

	m.shapeMu.RLock()
	shape, ok := m.shapes[key]
	m.shapeMu.RUnlock()
	if ok {
		return shape, nil
	}

	shape, err := m.instantiate(t)
	if err != nil {
		return nil, err
	}

	m.shapeMu.Lock()
	if existing, ok := m.shapes[key]; ok {
		shape = existing
	} else {
		m.shapes[key] = shape
	}
	m.shapeMu.Unlock()

	return shape, nil
}

// Resolve follows aliases until t is not a named alias.
func (m *TypeMapper) Resolve(t *TargetType) (*TargetType, error) {
	for depth := 0; t.Kind == TargetNamed; depth++ {
		if depth > maxDepth {
			return nil, errors.Errorf("alias chain of %s is too deep", t)
		}

		shape, err := m.Shape(t)
		if err != nil {
			return nil, err
		}
		if shape.Kind != idl.TypeDefAlias {
			return t, nil
		}
		t = shape.Alias
	}
	return t, nil
}

func (m *TypeMapper) instantiate(t *TargetType) (*Shape, error) {
	def, ok := m.doc.TypeDef(t.Name)
	if !ok {
		return nil, errors.Wrapf(ErrUnresolvedType, "type %q is not defined", t.Name)
	}

	b := bindings{
		types:  make(map[string]*TargetType),
		consts: make(map[string]string),
	}
	if len(t.Args) > 0 {
		if len(t.Args) != len(def.Generics) {
			return nil, errors.Wrapf(ErrUnresolvedType, "type %q takes %d generic arguments, got %d", t.Name, len(def.Generics), len(t.Args))
		}
		for i, param := range def.Generics {
			arg := t.Args[i]
			switch {
			case param.Kind == idl.GenericKindConst && arg.IsConst():
				b.consts[param.Name] = arg.Const
			case param.Kind == idl.GenericKindType && !arg.IsConst():
				b.types[param.Name] = arg.Type
			default:
				return nil, errors.Wrapf(ErrUnresolvedType, "generic argument %d of %q does not match parameter %q", i, t.Name, param.Name)
			}
		}
	}

	shape := &Shape{
		Def:  def,
		Kind: def.Type.Kind,
	}

	var err error
	switch def.Type.Kind {
	case idl.TypeDefStruct:
		shape.Tuple = def.Type.Fields.IsTuple()
		shape.Fields, err = m.mapFields(def.Type.Fields, b)
	case idl.TypeDefEnum:
		for _, v := range def.Type.Variants {
			variant := ShapeVariant{Name: v.Name, Tuple: v.Fields.IsTuple()}
			variant.Fields, err = m.mapFields(v.Fields, b)
			if err != nil {
				break
			}
			shape.Variants = append(shape.Variants, variant)
		}
	case idl.TypeDefAlias:
		if def.Type.Alias == nil {
			return nil, errors.Errorf("alias %q has no target", def.Name)
		}
		var alias *TargetType
		alias, err = m.Map(*def.Type.Alias, false)
		if err == nil {
			shape.Alias, err = b.apply(alias)
		}
	default:
		err = errors.Errorf("type %q has unknown kind %q", def.Name, def.Type.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to instantiate %s", t)
	}

	return shape, nil
}

func (m *TypeMapper) mapFields(fields *idl.DefinedFields, b bindings) ([]ShapeField, error) {
	if fields.IsEmpty() {
		return nil, nil
	}

	var result []ShapeField
	if fields.IsTuple() {
		for i, ref := range fields.Tuple {
			mapped, err := m.Map(ref, false)
			if err != nil {
				return nil, err
			}
			if mapped, err = b.apply(mapped); err != nil {
				return nil, err
			}
			result = append(result, ShapeField{Name: strconv.Itoa(i), Type: mapped})
		}
		return result, nil
	}

	for _, field := range fields.Named {
		mapped, err := m.Map(field.Type, false)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field.Name)
		}
		if mapped, err = b.apply(mapped); err != nil {
			return nil, err
		}
		result = append(result, ShapeField{Name: field.Name, Type: mapped})
	}
	return result, nil
}

// bindings maps the generic parameters of a type definition to the
// arguments of one instantiation.
type bindings struct {
	types  map[string]*TargetType
	consts map[string]string
}

func (b bindings) apply(t *TargetType) (*TargetType, error) {
	if len(b.types) == 0 && len(b.consts) == 0 {
		return t, nil
	}

	switch t.Kind {
	case TargetParam:
		if bound, ok := b.types[t.Name]; ok {
			return bound, nil
		}
		return t, nil
	case TargetOption, TargetSlice, TargetArray:
		elem, err := b.apply(t.Elem)
		if err != nil {
			return nil, err
		}

		out := *t
		out.Elem = elem
		if t.Kind == TargetArray && t.LenParam != "" {
			if value, ok := b.consts[t.LenParam]; ok {
				arg := idl.GenericArg{Value: value}
				switch n, err := arg.ConstInt(); {
				case err == nil:
					out.Len, out.LenParam = n, ""
				case arg.IsParamRef():
					// Bound to a parameter of the enclosing definition.
					out.LenParam = value
				default:
					return nil, err
				}
			}
		}
		return &out, nil
	case TargetNamed:
		if len(t.Args) == 0 {
			return t, nil
		}

		out := *t
		out.Args = make([]TargetArg, len(t.Args))
		for i, arg := range t.Args {
			if arg.IsConst() {
				if value, ok := b.consts[arg.Const]; ok {
					arg.Const = value
				}
				out.Args[i] = arg
				continue
			}

			bound, err := b.apply(arg.Type)
			if err != nil {
				return nil, err
			}
			out.Args[i] = TargetArg{Type: bound}
		}
		return &out, nil
	}

	return t, nil
}
