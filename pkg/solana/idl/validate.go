package idl

import (
	"github.com/pkg/errors"
)

func (i *IDL) validate() error {
	i.typesByName = make(map[string]*TypeDef, len(i.Types))
	for idx := range i.Types {
		def := &i.Types[idx]
		if def.Name == "" {
			return errors.Wrapf(ErrInvalidSchema, "type definition %d has no name", idx)
		}
		if _, ok := i.typesByName[def.Name]; ok {
			return errors.Wrapf(ErrInvalidSchema, "duplicate type definition %s", def.Name)
		}
		i.typesByName[def.Name] = def
	}

	for idx := range i.Types {
		if err := i.validateTypeDef(&i.Types[idx]); err != nil {
			return err
		}
	}

	seen := make(map[string]string)
	for _, acc := range i.Accounts {
		if _, ok := i.typesByName[acc.Name]; !ok {
			return errors.Wrapf(ErrInvalidSchema, "account %s has no type definition", acc.Name)
		}
		if err := checkUnique(seen, "account", acc.Name, acc.Discriminator); err != nil {
			return err
		}
	}

	seen = make(map[string]string)
	for _, ev := range i.Events {
		if _, ok := i.typesByName[ev.Name]; !ok {
			return errors.Wrapf(ErrInvalidSchema, "event %s has no type definition", ev.Name)
		}
		if err := checkUnique(seen, "event", ev.Name, ev.Discriminator); err != nil {
			return err
		}
	}

	seen = make(map[string]string)
	for _, ix := range i.Instructions {
		if err := checkUnique(seen, "instruction", ix.Name, ix.Discriminator); err != nil {
			return err
		}
		for _, arg := range ix.Args {
			if err := i.validateRef(arg.Type, nil); err != nil {
				return errors.Wrapf(err, "instruction %s arg %s", ix.Name, arg.Name)
			}
		}
		if ix.Returns != nil {
			if err := i.validateRef(*ix.Returns, nil); err != nil {
				return errors.Wrapf(err, "instruction %s return type", ix.Name)
			}
		}
		for _, acc := range ix.Flatten() {
			if acc.InstructionAccount.Name == "" {
				return errors.Wrapf(ErrInvalidSchema, "instruction %s has an unnamed account", ix.Name)
			}
		}
	}

	for _, c := range i.Constants {
		if err := i.validateRef(c.Type, nil); err != nil {
			return errors.Wrapf(err, "constant %s", c.Name)
		}
	}

	return nil
}

func checkUnique(seen map[string]string, category, name string, disc Discriminator) error {
	if len(disc) == 0 {
		return errors.Wrapf(ErrInvalidSchema, "%s %s has an empty discriminator", category, name)
	}
	if other, ok := seen[string(disc)]; ok {
		return errors.Wrapf(ErrInvalidSchema, "%s %s shares its discriminator with %s", category, name, other)
	}
	seen[string(disc)] = name
	return nil
}

func (i *IDL) validateTypeDef(def *TypeDef) error {
	scope := def
	wrap := func(err error) error {
		return errors.Wrapf(err, "type %s", def.Name)
	}

	for _, g := range def.Generics {
		if g.Kind != GenericKindType && g.Kind != GenericKindConst {
			return wrap(errors.Wrapf(ErrInvalidSchema, "generic %s has unknown kind %q", g.Name, g.Kind))
		}
	}

	switch def.Type.Kind {
	case TypeDefStruct:
		for _, t := range def.Type.Fields.Types() {
			if err := i.validateRef(t, scope); err != nil {
				return wrap(err)
			}
		}
	case TypeDefEnum:
		for _, v := range def.Type.Variants {
			for _, t := range v.Fields.Types() {
				if err := i.validateRef(t, scope); err != nil {
					return wrap(errors.Wrapf(err, "variant %s", v.Name))
				}
			}
		}
	case TypeDefAlias:
		if def.Type.Alias == nil {
			return wrap(errors.Wrap(ErrInvalidSchema, "alias without a target"))
		}
		if err := i.validateRef(*def.Type.Alias, scope); err != nil {
			return wrap(err)
		}
	default:
		return wrap(errors.Wrapf(ErrInvalidSchema, "unknown type kind %q", def.Type.Kind))
	}
	return nil
}

// validateRef checks that every defined reference resolves and that generic
// parameters are only used inside a definition that declares them.
func (i *IDL) validateRef(t TypeRef, scope *TypeDef) error {
	switch t.Kind {
	case KindOption, KindVec:
		if t.Elem == nil {
			return errors.Wrapf(ErrInvalidSchema, "%s without an element type", t.Kind)
		}
		return i.validateRef(*t.Elem, scope)
	case KindArray:
		if t.Elem == nil {
			return errors.Wrap(ErrInvalidSchema, "array without an element type")
		}
		if t.LenGeneric != "" {
			if scope == nil {
				return errors.Wrapf(ErrInvalidSchema, "array length %s used outside a generic type", t.LenGeneric)
			}
			if g, ok := scope.GenericParam(t.LenGeneric); !ok || g.Kind != GenericKindConst {
				return errors.Wrapf(ErrInvalidSchema, "array length %s is not a const generic", t.LenGeneric)
			}
		}
		return i.validateRef(*t.Elem, scope)
	case KindDefined:
		def, ok := i.typesByName[t.Name]
		if !ok {
			return errors.Wrapf(ErrInvalidSchema, "unresolved type reference %s", t.Name)
		}
		if len(t.Generics) != len(def.Generics) {
			return errors.Wrapf(ErrInvalidSchema, "%s expects %d generic arguments, got %d", t.Name, len(def.Generics), len(t.Generics))
		}
		for idx, arg := range t.Generics {
			param := def.Generics[idx]
			if arg.IsConst() != (param.Kind == GenericKindConst) {
				return errors.Wrapf(ErrInvalidSchema, "%s generic %s has the wrong kind of argument", t.Name, param.Name)
			}
			if arg.IsConst() {
				continue
			}
			if err := i.validateRef(*arg.Type, scope); err != nil {
				return err
			}
		}
		return nil
	case KindGeneric:
		if scope == nil {
			return errors.Wrapf(ErrInvalidSchema, "generic %s used outside a generic type", t.Name)
		}
		if g, ok := scope.GenericParam(t.Name); !ok || g.Kind != GenericKindType {
			return errors.Wrapf(ErrInvalidSchema, "generic %s is not declared by %s", t.Name, scope.Name)
		}
		return nil
	default:
		if !t.Kind.IsPrimitive() {
			return errors.Wrapf(ErrInvalidSchema, "unknown type kind %q", t.Kind)
		}
		return nil
	}
}
