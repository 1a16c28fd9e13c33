package anchor

import (
	"bytes"
	"crypto/ed25519"
	"math"
	"math/big"
	"reflect"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana/binary"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// maxDepth bounds recursion through nested types, so malformed schemas or
// hostile values cannot exhaust the stack.
const maxDepth = 64

type borshDecoder struct {
	mapper *TypeMapper
	dec    *bin.Decoder
}

func newBorshDecoder(mapper *TypeMapper, data []byte) *borshDecoder {
	return &borshDecoder{
		mapper: mapper,
		dec:    bin.NewBorshDecoder(data),
	}
}

// decodeBorsh decodes a single value of type t occupying data.
func decodeBorsh(mapper *TypeMapper, t *TargetType, data []byte, allowTrailing bool) (interface{}, error) {
	d := newBorshDecoder(mapper, data)

	v, err := d.decode(t, 0)
	if err != nil {
		return nil, err
	}
	if err := d.finish(allowTrailing); err != nil {
		return nil, err
	}
	return v, nil
}

func (d *borshDecoder) finish(allowTrailing bool) error {
	if remaining := d.dec.Remaining(); remaining > 0 && !allowTrailing {
		return errors.Wrapf(ErrTrailingBytes, "%d bytes left", remaining)
	}
	return nil
}

// readBytes copies n bytes out of the input.
func (d *borshDecoder) readBytes(n int) ([]byte, error) {
	if n > d.dec.Remaining() {
		return nil, errors.Errorf("need %d bytes, %d remaining", n, d.dec.Remaining())
	}

	raw, err := d.dec.ReadNBytes(n)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, raw...), nil
}

func (d *borshDecoder) readLen() (int, error) {
	n, err := d.dec.ReadUint32(bin.LE)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read length")
	}
	if int64(n) > int64(d.dec.Remaining()) {
		return 0, errors.Errorf("length %d exceeds the %d remaining bytes", n, d.dec.Remaining())
	}
	return int(n), nil
}

func (d *borshDecoder) decode(t *TargetType, depth int) (interface{}, error) {
	if depth > maxDepth {
		return nil, errors.Errorf("%s is nested too deeply", t)
	}

	switch t.Kind {
	case TargetBool:
		b, err := d.dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, errors.Errorf("invalid bool value %d", b)
		}
		return b == 1, nil
	case TargetInt:
		return d.decodeInt(t)
	case TargetFloat:
		if t.Bits == 32 {
			return d.dec.ReadFloat32(bin.LE)
		}
		return d.dec.ReadFloat64(bin.LE)
	case TargetBigInt:
		raw, err := d.readBytes(binary.Uint128Size)
		if err != nil {
			return nil, err
		}
		return binary.Uint128FromBytes(raw, t.Signed), nil
	case TargetWord:
		raw, err := d.readBytes(32)
		if err != nil {
			return nil, err
		}
		var word [32]byte
		copy(word[:], raw)
		return word, nil
	case TargetPublicKey:
		raw, err := d.readBytes(ed25519.PublicKeySize)
		if err != nil {
			return nil, err
		}
		return ed25519.PublicKey(raw), nil
	case TargetBytes:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		return d.readBytes(n)
	case TargetString:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		raw, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, errors.New("string is not valid utf-8")
		}
		return string(raw), nil
	case TargetOption:
		tag, err := d.dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		switch tag {
		case 0:
			return nil, nil
		case 1:
			return d.decode(t.Elem, depth+1)
		}
		return nil, errors.Errorf("invalid option tag %d", tag)
	case TargetSlice:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		return d.decodeSequence(t.Elem, n, depth)
	case TargetArray:
		if t.LenParam != "" {
			return nil, errors.Wrapf(ErrUnresolvedType, "array length %s is unbound", t.LenParam)
		}
		return d.decodeSequence(t.Elem, t.Len, depth)
	case TargetNamed:
		return d.decodeNamed(t, depth)
	case TargetParam:
		return nil, errors.Wrapf(ErrUnresolvedType, "generic %s is unbound", t.Name)
	}

	return nil, errors.Errorf("cannot decode %s", t)
}

func (d *borshDecoder) decodeInt(t *TargetType) (interface{}, error) {
	switch {
	case t.Bits == 8 && t.Signed:
		return d.dec.ReadInt8()
	case t.Bits == 8:
		return d.dec.ReadUint8()
	case t.Bits == 16 && t.Signed:
		return d.dec.ReadInt16(bin.LE)
	case t.Bits == 16:
		return d.dec.ReadUint16(bin.LE)
	case t.Bits == 32 && t.Signed:
		return d.dec.ReadInt32(bin.LE)
	case t.Bits == 32:
		return d.dec.ReadUint32(bin.LE)
	case t.Bits == 64 && t.Signed:
		return d.dec.ReadInt64(bin.LE)
	case t.Bits == 64:
		return d.dec.ReadUint64(bin.LE)
	}
	return nil, errors.Errorf("unsupported integer width %d", t.Bits)
}

func isByte(t *TargetType) bool {
	return t.Kind == TargetInt && t.Bits == 8 && !t.Signed
}

func (d *borshDecoder) decodeSequence(elem *TargetType, n int, depth int) (interface{}, error) {
	if isByte(elem) {
		return d.readBytes(n)
	}

	values := make([]interface{}, 0, minInt(n, d.dec.Remaining()))
	for i := 0; i < n; i++ {
		v, err := d.decode(elem, depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		values = append(values, v)
	}
	return values, nil
}

func (d *borshDecoder) decodeNamed(t *TargetType, depth int) (interface{}, error) {
	shape, err := d.mapper.Shape(t)
	if err != nil {
		return nil, err
	}

	switch shape.Kind {
	case idl.TypeDefStruct:
		return d.decodeFields(shape.Fields, shape.Tuple, depth)
	case idl.TypeDefEnum:
		index, err := d.dec.ReadUint8()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s variant", t)
		}
		if int(index) >= len(shape.Variants) {
			return nil, errors.Errorf("invalid %s variant index %d", t, index)
		}

		variant := shape.Variants[index]
		if len(variant.Fields) == 0 {
			return Variant{Name: variant.Name}, nil
		}
		value, err := d.decodeFields(variant.Fields, variant.Tuple, depth)
		if err != nil {
			return nil, errors.Wrapf(err, "variant %s", variant.Name)
		}
		return Variant{Name: variant.Name, Value: value}, nil
	case idl.TypeDefAlias:
		return d.decode(shape.Alias, depth+1)
	}

	return nil, errors.Errorf("cannot decode %s", t)
}

func (d *borshDecoder) decodeFields(fields []ShapeField, tuple bool, depth int) (interface{}, error) {
	if tuple {
		values := make(Tuple, 0, len(fields))
		for _, field := range fields {
			v, err := d.decode(field.Type, depth+1)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", field.Name)
			}
			values = append(values, v)
		}
		return values, nil
	}

	values := make(Fields, len(fields))
	for _, field := range fields {
		v, err := d.decode(field.Type, depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field.Name)
		}
		values[field.Name] = v
	}
	return values, nil
}

type borshEncoder struct {
	mapper *TypeMapper
	buf    *bytes.Buffer
	enc    *bin.Encoder
}

func newBorshEncoder(mapper *TypeMapper) *borshEncoder {
	buf := &bytes.Buffer{}
	return &borshEncoder{
		mapper: mapper,
		buf:    buf,
		enc:    bin.NewBorshEncoder(buf),
	}
}

func (e *borshEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

func encodeBorsh(mapper *TypeMapper, t *TargetType, v interface{}) ([]byte, error) {
	e := newBorshEncoder(mapper)
	if err := e.encode(t, v, 0); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (e *borshEncoder) writeLen(n int) error {
	if int64(n) > math.MaxUint32 {
		return errors.Errorf("length %d does not fit a u32 prefix", n)
	}
	return e.enc.WriteUint32(uint32(n), bin.LE)
}

func (e *borshEncoder) encode(t *TargetType, v interface{}, depth int) error {
	if depth > maxDepth {
		return errors.Errorf("%s is nested too deeply", t)
	}

	switch t.Kind {
	case TargetBool:
		b, ok := v.(bool)
		if !ok {
			return typeMismatch(t, v)
		}
		return e.enc.WriteBool(b)
	case TargetInt:
		return e.encodeInt(t, v)
	case TargetFloat:
		f, ok := floatValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if t.Bits == 32 {
			return e.enc.WriteFloat32(float32(f), bin.LE)
		}
		return e.enc.WriteFloat64(f, bin.LE)
	case TargetBigInt:
		n, err := checkedInteger(t, v)
		if err != nil {
			return err
		}
		var le [binary.Uint128Size]byte
		binary.Uint128Bytes(n, le[:])
		return e.enc.WriteBytes(le[:], false)
	case TargetWord, TargetPublicKey:
		raw, ok := fixedBytes(v, 32)
		if !ok {
			return typeMismatch(t, v)
		}
		return e.enc.WriteBytes(raw, false)
	case TargetBytes:
		raw, ok := v.([]byte)
		if !ok {
			return typeMismatch(t, v)
		}
		if err := e.writeLen(len(raw)); err != nil {
			return err
		}
		return e.enc.WriteBytes(raw, false)
	case TargetString:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(t, v)
		}
		if !utf8.ValidString(s) {
			return errors.New("string is not valid utf-8")
		}
		if err := e.writeLen(len(s)); err != nil {
			return err
		}
		return e.enc.WriteBytes([]byte(s), false)
	case TargetOption:
		if v == nil {
			return e.enc.WriteUint8(0)
		}
		if err := e.enc.WriteUint8(1); err != nil {
			return err
		}
		return e.encode(t.Elem, v, depth+1)
	case TargetSlice:
		if raw, ok := v.([]byte); ok && isByte(t.Elem) {
			if err := e.writeLen(len(raw)); err != nil {
				return err
			}
			return e.enc.WriteBytes(raw, false)
		}

		values, ok := listValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if err := e.writeLen(len(values)); err != nil {
			return err
		}
		return e.encodeSequence(t.Elem, values, depth)
	case TargetArray:
		if t.LenParam != "" {
			return errors.Wrapf(ErrUnresolvedType, "array length %s is unbound", t.LenParam)
		}

		if raw, ok := fixedBytes(v, t.Len); ok && isByte(t.Elem) {
			return e.enc.WriteBytes(raw, false)
		}

		values, ok := listValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if len(values) != t.Len {
			return errors.Errorf("%s requires %d elements, got %d", t, t.Len, len(values))
		}
		return e.encodeSequence(t.Elem, values, depth)
	case TargetNamed:
		return e.encodeNamed(t, v, depth)
	case TargetParam:
		return errors.Wrapf(ErrUnresolvedType, "generic %s is unbound", t.Name)
	}

	return errors.Errorf("cannot encode %s", t)
}

func (e *borshEncoder) encodeInt(t *TargetType, v interface{}) error {
	n, err := checkedInteger(t, v)
	if err != nil {
		return err
	}

	switch {
	case t.Bits == 8 && t.Signed:
		return e.enc.WriteInt8(int8(n.Int64()))
	case t.Bits == 8:
		return e.enc.WriteUint8(uint8(n.Uint64()))
	case t.Bits == 16 && t.Signed:
		return e.enc.WriteInt16(int16(n.Int64()), bin.LE)
	case t.Bits == 16:
		return e.enc.WriteUint16(uint16(n.Uint64()), bin.LE)
	case t.Bits == 32 && t.Signed:
		return e.enc.WriteInt32(int32(n.Int64()), bin.LE)
	case t.Bits == 32:
		return e.enc.WriteUint32(uint32(n.Uint64()), bin.LE)
	case t.Bits == 64 && t.Signed:
		return e.enc.WriteInt64(n.Int64(), bin.LE)
	case t.Bits == 64:
		return e.enc.WriteUint64(n.Uint64(), bin.LE)
	}
	return errors.Errorf("unsupported integer width %d", t.Bits)
}

func (e *borshEncoder) encodeSequence(elem *TargetType, values []interface{}, depth int) error {
	for i, v := range values {
		if err := e.encode(elem, v, depth+1); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	return nil
}

func (e *borshEncoder) encodeNamed(t *TargetType, v interface{}, depth int) error {
	shape, err := e.mapper.Shape(t)
	if err != nil {
		return err
	}

	switch shape.Kind {
	case idl.TypeDefStruct:
		return e.encodeFields(t, shape.Fields, shape.Tuple, v, depth)
	case idl.TypeDefEnum:
		variant, ok := variantValue(v)
		if !ok {
			return typeMismatch(t, v)
		}

		for i, candidate := range shape.Variants {
			if candidate.Name != variant.Name {
				continue
			}

			if err := e.enc.WriteUint8(uint8(i)); err != nil {
				return err
			}
			if len(candidate.Fields) == 0 {
				return nil
			}
			return e.encodeFields(t, candidate.Fields, candidate.Tuple, variant.Value, depth)
		}
		return errors.Errorf("%s has no variant %q", t, variant.Name)
	case idl.TypeDefAlias:
		return e.encode(shape.Alias, v, depth+1)
	}

	return errors.Errorf("cannot encode %s", t)
}

func (e *borshEncoder) encodeFields(t *TargetType, fields []ShapeField, tuple bool, v interface{}, depth int) error {
	if len(fields) == 0 {
		return nil
	}

	if tuple {
		values, ok := listValue(v)
		if !ok {
			return typeMismatch(t, v)
		}
		if len(values) != len(fields) {
			return errors.Errorf("%s has %d fields, got %d values", t, len(fields), len(values))
		}
		for i, field := range fields {
			if err := e.encode(field.Type, values[i], depth+1); err != nil {
				return errors.Wrapf(err, "field %s", field.Name)
			}
		}
		return nil
	}

	values, ok := fieldsValue(v)
	if !ok {
		return typeMismatch(t, v)
	}
	for _, field := range fields {
		value, ok := values[field.Name]
		if !ok && field.Type.Kind != TargetOption {
			return errors.Errorf("%s is missing field %s", t, field.Name)
		}
		if err := e.encode(field.Type, value, depth+1); err != nil {
			return errors.Wrapf(err, "field %s", field.Name)
		}
	}
	return nil
}

func typeMismatch(t *TargetType, v interface{}) error {
	return errors.Errorf("cannot encode %T as %s", v, t)
}

// integerValue converts any Go integer or *big.Int into a *big.Int.
func integerValue(v interface{}) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return n, true
	case big.Int:
		return &n, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}

// checkedInteger converts v and checks it fits the integer type t.
func checkedInteger(t *TargetType, v interface{}) (*big.Int, error) {
	n, ok := integerValue(v)
	if !ok {
		return nil, typeMismatch(t, v)
	}

	var lo, hi *big.Int
	if t.Signed {
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(t.Bits-1)), big.NewInt(1))
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(t.Bits-1)))
	} else {
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(t.Bits)), big.NewInt(1))
		lo = big.NewInt(0)
	}

	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		return nil, errors.Errorf("%s out of range for %s", n, t)
	}
	return n, nil
}

func floatValue(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	return 0, false
}

// fixedBytes accepts byte slices and byte arrays of exactly n bytes.
func fixedBytes(v interface{}, n int) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, len(b) == n
	case ed25519.PublicKey:
		return b, len(b) == n
	case [32]byte:
		return b[:], n == 32
	}
	return nil, false
}

// listValue accepts []interface{}, Tuple and any other slice or array.
func listValue(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case Tuple:
		return l, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	values := make([]interface{}, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}

func fieldsValue(v interface{}) (Fields, bool) {
	switch f := v.(type) {
	case Fields:
		return f, true
	case map[string]interface{}:
		return f, true
	}
	return nil, false
}

func variantValue(v interface{}) (Variant, bool) {
	switch variant := v.(type) {
	case Variant:
		return variant, true
	case *Variant:
		if variant != nil {
			return *variant, true
		}
	case string:
		// Unit variants may be given by name.
		return Variant{Name: variant}, true
	}
	return Variant{}, false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
