package anchor

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// ConstantValue is an evaluated program constant.
type ConstantValue struct {
	Name string
	Type *TargetType

	// Raw is the literal as written in the schema.
	Raw string

	// Value is the evaluated literal in the dynamic value model. When the
	// literal is an expression that cannot be evaluated, Value holds Raw and
	// Expression is set.
	Value      interface{}
	Expression bool
}

func (p *Program) evaluateConstants() error {
	for _, constant := range p.doc.Constants {
		typ, err := p.mapper.Map(constant.Type, true)
		if err != nil {
			return errors.Wrapf(err, "constant %s", constant.Name)
		}

		value, err := evaluateConstant(p.mapper, constant, typ)
		if err != nil {
			return errors.Wrapf(idl.ErrInvalidSchema, "constant %s: %v", constant.Name, err)
		}
		p.constants = append(p.constants, value)
	}
	return nil
}

func evaluateConstant(mapper *TypeMapper, constant idl.Constant, typ *TargetType) (ConstantValue, error) {
	value := ConstantValue{
		Name: constant.Name,
		Type: typ,
		Raw:  constant.Value,
	}

	resolved, err := mapper.Resolve(typ)
	if err != nil {
		return value, err
	}

	raw := strings.TrimSpace(constant.Value)

	var v interface{}
	switch {
	case resolved.Kind == TargetPublicKey:
		key, err := solana.PublicKeyFromString(raw)
		if err != nil {
			return value, err
		}
		v = key
	case resolved.Kind == TargetBytes, resolved.Kind == TargetArray && isByte(resolved.Elem), resolved.Kind == TargetSlice && isByte(resolved.Elem):
		b, err := parseBytesLiteral(raw)
		if err != nil {
			return value, err
		}
		if resolved.Kind == TargetArray && len(b) != resolved.Len {
			return value, errors.Errorf("%s requires %d bytes, got %d", resolved, resolved.Len, len(b))
		}
		v = b
	case resolved.Kind == TargetString:
		v = unquote(raw)
	case resolved.Kind == TargetBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			v = b
		}
	case resolved.Kind == TargetFloat:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), resolved.Bits); err == nil {
			if resolved.Bits == 32 {
				v = float32(f)
			} else {
				v = f
			}
		}
	case resolved.Kind == TargetInt, resolved.Kind == TargetBigInt:
		if n, ok := new(big.Int).SetString(strings.ReplaceAll(raw, "_", ""), 0); ok {
			if _, err := checkedInteger(resolved, n); err == nil {
				v = sizedInteger(resolved, n)
			}
		}
	}

	if v == nil {
		value.Value = constant.Value
		value.Expression = true
		return value, nil
	}

	value.Value = v
	return value, nil
}

// parseBytesLiteral accepts "[1, 2, 3]" and b"..." literals.
func parseBytesLiteral(raw string) ([]byte, error) {
	switch {
	case strings.HasPrefix(raw, "b\""):
		s, err := strconv.Unquote(raw[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid byte string %s", raw)
		}
		return []byte(s), nil
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		body := strings.TrimSpace(raw[1 : len(raw)-1])
		if body == "" {
			return []byte{}, nil
		}

		parts := strings.Split(body, ",")
		b := make([]byte, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				// A trailing comma is allowed.
				continue
			}

			n, err := strconv.ParseUint(part, 0, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid byte %q", part)
			}
			b = append(b, byte(n))
		}
		return b, nil
	}
	return nil, errors.Errorf("invalid bytes literal %s", raw)
}

func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
		return raw[1 : len(raw)-1]
	}
	return raw
}

// sizedInteger converts a range checked n to the Go type decoding yields.
func sizedInteger(t *TargetType, n *big.Int) interface{} {
	if t.Kind == TargetBigInt {
		return n
	}

	switch {
	case t.Bits == 8 && t.Signed:
		return int8(n.Int64())
	case t.Bits == 8:
		return uint8(n.Uint64())
	case t.Bits == 16 && t.Signed:
		return int16(n.Int64())
	case t.Bits == 16:
		return uint16(n.Uint64())
	case t.Bits == 32 && t.Signed:
		return int32(n.Int64())
	case t.Bits == 32:
		return uint32(n.Uint64())
	case t.Signed:
		return n.Int64()
	}
	return n.Uint64()
}

// Constants returns the program's evaluated constants in declaration order.
func (p *Program) Constants() []ConstantValue {
	return p.constants
}

// Constant looks up an evaluated constant by name.
func (p *Program) Constant(name string) (ConstantValue, bool) {
	for _, constant := range p.constants {
		if constant.Name == name {
			return constant, true
		}
	}
	return ConstantValue{}, false
}
