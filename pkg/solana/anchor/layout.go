package anchor

import (
	"crypto/ed25519"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana/binary"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// uint128Align is the alignment of u128 and i128 on the SBF target, where
// fixed layout accounts are written.
const uint128Align = 8

// FieldLayout places one field within a fixed layout.
type FieldLayout struct {
	Name   string
	Offset int
	Type   *TargetType
}

// Layout is the memory representation of a fixed layout type.
type Layout struct {
	Size  int
	Align int

	// Fields and Tuple are set for structs.
	Fields []FieldLayout
	Tuple  bool
}

// layoutEngine computes C compatible layouts, memoized per instantiation.
type layoutEngine struct {
	mapper *TypeMapper

	mu      sync.RWMutex
	layouts map[string]*Layout
}

func newLayoutEngine(mapper *TypeMapper) *layoutEngine {
	return &layoutEngine{
		mapper:  mapper,
		layouts: make(map[string]*Layout),
	}
}

// Layout returns the fixed layout of t. Types without a fixed size, such as
// vectors, strings, options and enums, fail with ErrNotFixedLayout.
func (l *layoutEngine) Layout(t *TargetType) (*Layout, error) {
	return l.layout(t, 0)
}

func (l *layoutEngine) layout(t *TargetType, depth int) (*Layout, error) {
	if depth > maxDepth {
		return nil, errors.Errorf("%s is nested too deeply", t)
	}

	switch t.Kind {
	case TargetBool:
		return &Layout{Size: 1, Align: 1}, nil
	case TargetInt, TargetFloat:
		size := t.Bits / 8
		return &Layout{Size: size, Align: size}, nil
	case TargetBigInt:
		return &Layout{Size: binary.Uint128Size, Align: uint128Align}, nil
	case TargetWord:
		return &Layout{Size: 32, Align: 1}, nil
	case TargetPublicKey:
		return &Layout{Size: ed25519.PublicKeySize, Align: 1}, nil
	case TargetArray:
		if t.LenParam != "" {
			return nil, errors.Wrapf(ErrUnresolvedType, "array length %s is unbound", t.LenParam)
		}
		elem, err := l.layout(t.Elem, depth+1)
		if err != nil {
			return nil, err
		}
		return &Layout{Size: elem.Size * t.Len, Align: elem.Align}, nil
	case TargetNamed:
		return l.namedLayout(t, depth)
	case TargetParam:
		return nil, errors.Wrapf(ErrUnresolvedType, "generic %s is unbound", t.Name)
	}

	return nil, errors.Wrapf(ErrNotFixedLayout, "%s", t)
}

func (l *layoutEngine) namedLayout(t *TargetType, depth int) (*Layout, error) {
	key := t.String()

	l.mu.RLock()
	cached, ok := l.layouts[key]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	shape, err := l.mapper.Shape(t)
	if err != nil {
		return nil, err
	}

	var layout *Layout
	switch shape.Kind {
	case idl.TypeDefStruct:
		layout, err = l.structLayout(t, shape, depth)
	case idl.TypeDefAlias:
		layout, err = l.layout(shape.Alias, depth+1)
	default:
		err = errors.Wrapf(ErrNotFixedLayout, "enum %s", t)
	}
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.layouts[key] = layout
	l.mu.Unlock()

	return layout, nil
}

func (l *layoutEngine) structLayout(t *TargetType, shape *Shape, depth int) (*Layout, error) {
	// Rust layouts are unspecified, fixed layout types are read as C.
	repr := idl.Repr{Kind: idl.ReprC}
	if shape.Def.Repr != nil {
		repr = *shape.Def.Repr
	}

	if repr.Kind == idl.ReprTransparent {
		if len(shape.Fields) != 1 {
			return nil, errors.Errorf("transparent %s must have exactly one field, has %d", t, len(shape.Fields))
		}

		inner, err := l.layout(shape.Fields[0].Type, depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", shape.Fields[0].Name)
		}
		return &Layout{
			Size:   inner.Size,
			Align:  inner.Align,
			Fields: []FieldLayout{{Name: shape.Fields[0].Name, Type: shape.Fields[0].Type}},
			Tuple:  shape.Tuple,
		}, nil
	}

	layout := &Layout{Align: 1, Tuple: shape.Tuple}

	var offset int
	for _, field := range shape.Fields {
		inner, err := l.layout(field.Type, depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field.Name)
		}

		align := inner.Align
		if repr.Packed {
			align = 1
		}

		offset = alignTo(offset, align)
		layout.Fields = append(layout.Fields, FieldLayout{Name: field.Name, Offset: offset, Type: field.Type})
		offset += inner.Size

		if align > layout.Align {
			layout.Align = align
		}
	}

	if repr.Align > layout.Align {
		layout.Align = repr.Align
	}
	layout.Size = alignTo(offset, layout.Align)

	return layout, nil
}

func alignTo(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) / align * align
}
