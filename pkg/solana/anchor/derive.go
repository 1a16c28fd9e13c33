package anchor

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// maxDefaultArrayLen is the longest fixed array that still counts as
// default constructible.
const maxDefaultArrayLen = 32

// Capabilities are the structural guarantees a type definition may claim.
type Capabilities struct {
	// Borsh is set when the type is encoded with the variable length codec.
	Borsh bool

	Clone   bool
	Copy    bool
	Default bool

	// Pod and Zeroable are granted to fixed layout types without
	// verification.
	Pod      bool
	Zeroable bool

	// Repr is the effective memory representation, nil when none applies.
	Repr *idl.Repr
}

// Analyzer decides the capabilities of type definitions. Results are
// memoized per type name.
type Analyzer struct {
	doc *idl.IDL

	mu          sync.RWMutex
	copyMemo    map[string]bool
	defaultMemo map[string]bool
}

func NewAnalyzer(doc *idl.IDL) *Analyzer {
	return &Analyzer{
		doc:         doc,
		copyMemo:    make(map[string]bool),
		defaultMemo: make(map[string]bool),
	}
}

// Capabilities returns the capabilities of the named type definition.
func (a *Analyzer) Capabilities(name string) (Capabilities, error) {
	def, ok := a.doc.TypeDef(name)
	if !ok {
		return Capabilities{}, errors.Wrapf(ErrUnresolvedType, "type %q is not defined", name)
	}

	caps := Capabilities{
		Default: !def.IsEnum() && a.CanDefault(name),
		Repr:    def.Repr,
	}

	switch def.Serialization.Kind {
	case idl.SerializationBorsh, "":
		caps.Borsh = true
		caps.Clone = true
		caps.Copy = a.CanCopy(name)
	case idl.SerializationBytemuck, idl.SerializationBytemuckUnsafe:
		caps.Clone = true
		caps.Copy = true
		caps.Pod = true
		caps.Zeroable = true
		if caps.Repr == nil {
			caps.Repr = &idl.Repr{Kind: idl.ReprC}
		}
	}

	return caps, nil
}

// CanCopy reports whether values of the named type are bitwise copyable.
// Unknown names are not.
func (a *Analyzer) CanCopy(name string) bool {
	return a.memoized(a.copyMemo, name, a.canCopyDef)
}

// CanDefault reports whether the named type has a zero value default. Enums
// never do.
func (a *Analyzer) CanDefault(name string) bool {
	return a.memoized(a.defaultMemo, name, a.canDefaultDef)
}

func (a *Analyzer) memoized(memo map[string]bool, name string, compute func(*idl.TypeDef, map[string]struct{}) bool) bool {
	a.mu.RLock()
	result, ok := memo[name]
	a.mu.RUnlock()
	if ok {
		return result
	}

	def, ok := a.doc.TypeDef(name)
	if !ok {
		return false
	}

	result = compute(def, map[string]struct{}{})

	a.mu.Lock()
	memo[name] = result
	a.mu.Unlock()

	return result
}

func (a *Analyzer) canCopyDef(def *idl.TypeDef, visiting map[string]struct{}) bool {
	// Value types are expected to be acyclic, a cycle cannot be copied.
	if _, ok := visiting[def.Name]; ok {
		return false
	}
	visiting[def.Name] = struct{}{}
	defer delete(visiting, def.Name)

	switch def.Type.Kind {
	case idl.TypeDefStruct:
		return allFields(def.Type.Fields, func(t idl.TypeRef) bool { return a.canCopyRef(t, visiting) })
	case idl.TypeDefEnum:
		for _, v := range def.Type.Variants {
			if !allFields(v.Fields, func(t idl.TypeRef) bool { return a.canCopyRef(t, visiting) }) {
				return false
			}
		}
		return true
	case idl.TypeDefAlias:
		return def.Type.Alias != nil && a.canCopyRef(*def.Type.Alias, visiting)
	}
	return false
}

func (a *Analyzer) canCopyRef(t idl.TypeRef, visiting map[string]struct{}) bool {
	switch t.Kind {
	case idl.KindOption:
		return a.canCopyRef(*t.Elem, visiting)
	case idl.KindArray:
		return a.canCopyRef(*t.Elem, visiting) && t.LenGeneric == ""
	case idl.KindDefined:
		def, ok := a.doc.TypeDef(t.Name)
		if !ok {
			return false
		}
		return a.canCopyDef(def, visiting)
	case idl.KindBytes, idl.KindString, idl.KindVec, idl.KindGeneric:
		return false
	}
	return true
}

func (a *Analyzer) canDefaultDef(def *idl.TypeDef, visiting map[string]struct{}) bool {
	if _, ok := visiting[def.Name]; ok {
		return false
	}
	visiting[def.Name] = struct{}{}
	defer delete(visiting, def.Name)

	switch def.Type.Kind {
	case idl.TypeDefStruct:
		return allFields(def.Type.Fields, func(t idl.TypeRef) bool { return a.canDefaultRef(t, visiting) })
	case idl.TypeDefAlias:
		return def.Type.Alias != nil && a.canDefaultRef(*def.Type.Alias, visiting)
	}
	return false
}

func (a *Analyzer) canDefaultRef(t idl.TypeRef, visiting map[string]struct{}) bool {
	switch t.Kind {
	case idl.KindOption, idl.KindVec:
		return a.canDefaultRef(*t.Elem, visiting)
	case idl.KindArray:
		return a.canDefaultRef(*t.Elem, visiting) && t.LenGeneric == "" && t.Len <= maxDefaultArrayLen
	case idl.KindDefined:
		def, ok := a.doc.TypeDef(t.Name)
		if !ok {
			return false
		}
		return a.canDefaultDef(def, visiting)
	case idl.KindGeneric:
		return false
	}
	return true
}

func allFields(fields *idl.DefinedFields, predicate func(idl.TypeRef) bool) bool {
	for _, t := range fields.Types() {
		if !predicate(t) {
			return false
		}
	}
	return true
}
