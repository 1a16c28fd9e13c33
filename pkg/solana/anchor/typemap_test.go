package anchor

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

func TestTypeMapper_Map(t *testing.T) {
	mapper := NewTypeMapper(loadTestIDL(t))

	for _, tc := range []struct {
		ref      idl.TypeRef
		constCtx bool
		expected string
	}{
		{idl.Primitive(idl.KindBool), false, "bool"},
		{idl.Primitive(idl.KindU8), false, "uint8"},
		{idl.Primitive(idl.KindI64), false, "int64"},
		{idl.Primitive(idl.KindF32), false, "float32"},
		{idl.Primitive(idl.KindU128), false, "*big.Int"},
		{idl.Primitive(idl.KindI256), false, "[32]byte"},
		{idl.Primitive(idl.KindPubkey), false, "ed25519.PublicKey"},
		{idl.Primitive(idl.KindBytes), false, "[]byte"},
		{idl.Primitive(idl.KindBytes), true, "string"},
		{idl.Primitive(idl.KindString), false, "string"},
		{idl.Option(idl.Primitive(idl.KindU16)), false, "*uint16"},
		{idl.Vec(idl.Defined("Reward")), false, "[]Reward"},
		{idl.Array(idl.Primitive(idl.KindU8), 32), false, "[32]uint8"},
		{idl.GenericArray(idl.Generic("T"), "N"), false, "[N]T"},
		{idl.Defined("Wrapper", idl.GenericArg{Type: &idl.TypeRef{Kind: idl.KindU64}}, idl.GenericArg{Value: "4"}), false, "Wrapper[uint64, 4]"},
		{idl.Generic("T"), false, "T"},
	} {
		mapped, err := mapper.Map(tc.ref, tc.constCtx)
		require.NoError(t, err, tc.ref.String())
		assert.Equal(t, tc.expected, mapped.String())
	}

	_, err := mapper.Map(idl.Defined("Missing"), false)
	assert.True(t, errors.Is(err, ErrUnresolvedType))

	_, err = mapper.Map(idl.Vec(idl.Defined("Missing")), false)
	assert.True(t, errors.Is(err, ErrUnresolvedType))

	_, err = mapper.Map(idl.Defined("Wrapper", idl.GenericArg{Value: "4"}), false)
	assert.True(t, errors.Is(err, ErrUnresolvedType))
}

func TestTypeMapper_Instantiate(t *testing.T) {
	mapper := NewTypeMapper(loadTestIDL(t))

	wrapper, err := mapper.Map(idl.Defined("Wrapper",
		idl.GenericArg{Type: &idl.TypeRef{Kind: idl.KindPubkey}},
		idl.GenericArg{Value: "2"},
	), false)
	require.NoError(t, err)

	shape, err := mapper.Shape(wrapper)
	require.NoError(t, err)
	assert.Equal(t, idl.TypeDefStruct, shape.Kind)
	assert.False(t, shape.Tuple)
	require.Len(t, shape.Fields, 2)
	assert.Equal(t, "value", shape.Fields[0].Name)
	assert.Equal(t, "ed25519.PublicKey", shape.Fields[0].Type.String())
	assert.Equal(t, "items", shape.Fields[1].Name)
	assert.Equal(t, "[2]ed25519.PublicKey", shape.Fields[1].Type.String())
	assert.Equal(t, 2, shape.Fields[1].Type.Len)

	// Instantiations are memoized.
	again, err := mapper.Shape(wrapper)
	require.NoError(t, err)
	assert.True(t, shape == again)

	// A const argument that is not a number stays symbolic.
	symbolic, err := mapper.Map(idl.Defined("Wrapper",
		idl.GenericArg{Type: &idl.TypeRef{Kind: idl.KindU8}},
		idl.GenericArg{Value: "M"},
	), false)
	require.NoError(t, err)
	shape, err = mapper.Shape(symbolic)
	require.NoError(t, err)
	assert.Equal(t, "[M]uint8", shape.Fields[1].Type.String())

	// Literals that are neither lengths nor parameter names are rejected.
	for _, value := range []string{"-1", "1_000"} {
		invalid, err := mapper.Map(idl.Defined("Wrapper",
			idl.GenericArg{Type: &idl.TypeRef{Kind: idl.KindU8}},
			idl.GenericArg{Value: value},
		), false)
		require.NoError(t, err)
		_, err = mapper.Shape(invalid)
		assert.Error(t, err, value)
	}

	status, err := mapper.Map(idl.Defined("Status"), false)
	require.NoError(t, err)
	shape, err = mapper.Shape(status)
	require.NoError(t, err)
	require.Len(t, shape.Variants, 3)
	assert.Empty(t, shape.Variants[0].Fields)
	assert.False(t, shape.Variants[1].Tuple)
	assert.Equal(t, "reason", shape.Variants[1].Fields[0].Name)
	assert.True(t, shape.Variants[2].Tuple)
	assert.Equal(t, "0", shape.Variants[2].Fields[0].Name)
	assert.Equal(t, "bool", shape.Variants[2].Fields[1].Type.String())

	lamports, err := mapper.Map(idl.Defined("Lamports"), false)
	require.NoError(t, err)
	resolved, err := mapper.Resolve(lamports)
	require.NoError(t, err)
	assert.Equal(t, "uint64", resolved.String())

	_, err = mapper.Shape(resolved)
	assert.Error(t, err)
}

func TestTypeMapper_ConcurrentShapes(t *testing.T) {
	mapper := NewTypeMapper(loadTestIDL(t))

	registry, err := mapper.Map(idl.Defined("Registry"), false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	shapes := make([]*Shape, 16)
	for i := range shapes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shape, err := mapper.Shape(registry)
			assert.NoError(t, err)
			shapes[i] = shape
		}(i)
	}
	wg.Wait()

	for _, shape := range shapes[1:] {
		assert.True(t, shapes[0] == shape)
	}
}
