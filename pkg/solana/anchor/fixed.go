package anchor

import (
	"crypto/ed25519"
	"math/big"

	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana/binary"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// decodeFixed reads a fixed layout value of type t from the start of data.
// Bytes past the layout size are ignored.
func (l *layoutEngine) decodeFixed(t *TargetType, data []byte) (interface{}, error) {
	layout, err := l.Layout(t)
	if err != nil {
		return nil, err
	}
	if len(data) < layout.Size {
		return nil, errors.Wrapf(ErrTooShortForFixedLayout, "%s requires %d bytes, got %d", t, layout.Size, len(data))
	}
	return l.read(t, data[:layout.Size], 0)
}

func (l *layoutEngine) read(t *TargetType, src []byte, depth int) (interface{}, error) {
	if depth > maxDepth {
		return nil, errors.Errorf("%s is nested too deeply", t)
	}

	var offset int
	switch t.Kind {
	case TargetBool:
		var v bool
		binary.GetBool(src, &v, &offset)
		return v, nil
	case TargetInt:
		return readFixedInt(t, src), nil
	case TargetFloat:
		if t.Bits == 32 {
			var v float32
			binary.GetFloat32(src, &v, &offset)
			return v, nil
		}
		var v float64
		binary.GetFloat64(src, &v, &offset)
		return v, nil
	case TargetBigInt:
		var v *big.Int
		binary.GetUint128(src, &v, t.Signed, &offset)
		return v, nil
	case TargetWord:
		var v [32]byte
		copy(v[:], src)
		return v, nil
	case TargetPublicKey:
		var v ed25519.PublicKey
		binary.GetKey32(src, &v, &offset)
		return v, nil
	case TargetArray:
		if isByte(t.Elem) {
			var v []byte
			binary.GetBytes(src, &v, t.Len, &offset)
			return v, nil
		}

		elem, err := l.Layout(t.Elem)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, t.Len)
		for i := range values {
			v, err := l.read(t.Elem, src[i*elem.Size:], depth+1)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			values[i] = v
		}
		return values, nil
	case TargetNamed:
		return l.readNamed(t, src, depth)
	}

	return nil, errors.Wrapf(ErrNotFixedLayout, "%s", t)
}

func readFixedInt(t *TargetType, src []byte) interface{} {
	var offset int
	switch t.Bits {
	case 8:
		var v uint8
		binary.GetUint8(src, &v, &offset)
		if t.Signed {
			return int8(v)
		}
		return v
	case 16:
		var v uint16
		binary.GetUint16(src, &v, &offset)
		if t.Signed {
			return int16(v)
		}
		return v
	case 32:
		var v uint32
		binary.GetUint32(src, &v, &offset)
		if t.Signed {
			return int32(v)
		}
		return v
	default:
		var v uint64
		binary.GetUint64(src, &v, &offset)
		if t.Signed {
			return int64(v)
		}
		return v
	}
}

func (l *layoutEngine) readNamed(t *TargetType, src []byte, depth int) (interface{}, error) {
	shape, err := l.mapper.Shape(t)
	if err != nil {
		return nil, err
	}
	if shape.Kind == idl.TypeDefAlias {
		return l.read(shape.Alias, src, depth+1)
	}

	layout, err := l.Layout(t)
	if err != nil {
		return nil, err
	}

	if layout.Tuple {
		values := make(Tuple, len(layout.Fields))
		for i, field := range layout.Fields {
			v, err := l.read(field.Type, src[field.Offset:], depth+1)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", field.Name)
			}
			values[i] = v
		}
		return values, nil
	}

	values := make(Fields, len(layout.Fields))
	for _, field := range layout.Fields {
		v, err := l.read(field.Type, src[field.Offset:], depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field.Name)
		}
		values[field.Name] = v
	}
	return values, nil
}

// encodeFixed writes v in the fixed layout of t. Padding is zeroed.
func (l *layoutEngine) encodeFixed(t *TargetType, v interface{}) ([]byte, error) {
	layout, err := l.Layout(t)
	if err != nil {
		return nil, err
	}

	dst := make([]byte, layout.Size)
	if err := l.write(t, dst, v, 0); err != nil {
		return nil, err
	}
	return dst, nil
}

func (l *layoutEngine) write(t *TargetType, dst []byte, v interface{}, depth int) error {
	if depth > maxDepth {
		return errors.Errorf("%s is nested too deeply", t)
	}

	var offset int
	switch t.Kind {
	case TargetBool:
		b, ok := v.(bool)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.PutBool(dst, b, &offset)
		return nil
	case TargetInt:
		n, err := checkedInteger(t, v)
		if err != nil {
			return err
		}
		writeFixedInt(t, dst, n)
		return nil
	case TargetFloat:
		f, ok := floatValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if t.Bits == 32 {
			binary.PutFloat32(dst, float32(f), &offset)
		} else {
			binary.PutFloat64(dst, f, &offset)
		}
		return nil
	case TargetBigInt:
		n, err := checkedInteger(t, v)
		if err != nil {
			return err
		}
		binary.PutUint128(dst, n, &offset)
		return nil
	case TargetWord:
		raw, ok := fixedBytes(v, 32)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.PutBytes(dst, raw, &offset)
		return nil
	case TargetPublicKey:
		raw, ok := fixedBytes(v, ed25519.PublicKeySize)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.PutKey32(dst, raw, &offset)
		return nil
	case TargetArray:
		if raw, ok := fixedBytes(v, t.Len); ok && isByte(t.Elem) {
			binary.PutBytes(dst, raw, &offset)
			return nil
		}

		values, ok := listValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if len(values) != t.Len {
			return errors.Errorf("%s requires %d elements, got %d", t, t.Len, len(values))
		}

		elem, err := l.Layout(t.Elem)
		if err != nil {
			return err
		}
		for i, value := range values {
			if err := l.write(t.Elem, dst[i*elem.Size:], value, depth+1); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return nil
	case TargetNamed:
		return l.writeNamed(t, dst, v, depth)
	}

	return errors.Wrapf(ErrNotFixedLayout, "%s", t)
}

func writeFixedInt(t *TargetType, dst []byte, n *big.Int) {
	var offset int

	// Signed values are range checked, so the low bits are the two's
	// complement encoding.
	var bits uint64
	if t.Signed {
		bits = uint64(n.Int64())
	} else {
		bits = n.Uint64()
	}

	switch t.Bits {
	case 8:
		binary.PutUint8(dst, uint8(bits), &offset)
	case 16:
		binary.PutUint16(dst, uint16(bits), &offset)
	case 32:
		binary.PutUint32(dst, uint32(bits), &offset)
	default:
		binary.PutUint64(dst, bits, &offset)
	}
}

func (l *layoutEngine) writeNamed(t *TargetType, dst []byte, v interface{}, depth int) error {
	shape, err := l.mapper.Shape(t)
	if err != nil {
		return err
	}
	if shape.Kind == idl.TypeDefAlias {
		return l.write(shape.Alias, dst, v, depth+1)
	}

	layout, err := l.Layout(t)
	if err != nil {
		return err
	}
	if len(layout.Fields) == 0 {
		return nil
	}

	if layout.Tuple {
		values, ok := listValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if len(values) != len(layout.Fields) {
			return errors.Errorf("%s has %d fields, got %d values", t, len(layout.Fields), len(values))
		}
		for i, field := range layout.Fields {
			if err := l.write(field.Type, dst[field.Offset:], values[i], depth+1); err != nil {
				return errors.Wrapf(err, "field %s", field.Name)
			}
		}
		return nil
	}

	values, ok := fieldsValue(v)
	if !ok {
		return typeMismatch(t, v)
	}
	for _, field := range layout.Fields {
		value, ok := values[field.Name]
		if !ok {
			return errors.Errorf("%s is missing field %s", t, field.Name)
		}
		if err := l.write(field.Type, dst[field.Offset:], value, depth+1); err != nil {
			return errors.Wrapf(err, "field %s", field.Name)
		}
	}
	return nil
}
