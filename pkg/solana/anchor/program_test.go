package anchor

import (
	"crypto/ed25519"
	"math/big"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/solana"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
	_ "github.com/code-payments/anchor-bindings/pkg/testutil"
)

const testProgramAddress = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"

var tokenProgram = solana.MustPublicKeyFromString("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

func loadTestIDL(t *testing.T) *idl.IDL {
	data, err := os.ReadFile("testdata/amm.json")
	require.NoError(t, err)

	doc, err := idl.Parse(data)
	require.NoError(t, err)
	return doc
}

func loadTestProgram(t *testing.T, overrides *testOverrides) *Program {
	p, err := New(loadTestIDL(t), withManualTestOverrides(overrides))
	require.NoError(t, err)
	return p
}

func testKey(seed byte) ed25519.PublicKey {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := range key {
		key[i] = seed + byte(i)
	}
	return key
}

// normalize replaces big integers with their decimal strings, so decoded
// values can be compared with reflection.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case *big.Int:
		return "big:" + val.String()
	case Fields:
		out := make(Fields, len(val))
		for k, field := range val {
			out[k] = normalize(field)
		}
		return out
	case Tuple:
		out := make(Tuple, len(val))
		for i, field := range val {
			out[i] = normalize(field)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case Variant:
		return Variant{Name: val.Name, Value: normalize(val.Value)}
	}
	return v
}

func assertValueEqual(t *testing.T, expected, actual interface{}) {
	assert.Equal(t, normalize(expected), normalize(actual))
}

func TestProgram_Load(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	assert.Equal(t, solana.MustPublicKeyFromString(testProgramAddress), p.ID())
	assert.Equal(t, "amm", p.IDL().Metadata.Name)

	var accounts []string
	for _, codec := range p.Accounts() {
		accounts = append(accounts, codec.Name())
	}
	assert.Equal(t, []string{"Pool", "Position", "Registry", "Opaque"}, accounts)

	var events []string
	for _, codec := range p.Events() {
		events = append(events, codec.Name())
	}
	assert.Equal(t, []string{"Swapped", "Deposited"}, events)

	var instructions []string
	for _, builder := range p.Instructions() {
		instructions = append(instructions, builder.Name())
	}
	assert.Equal(t, []string{"deposit", "initialize_registry"}, instructions)

	position, ok := p.Account("Position")
	require.True(t, ok)
	assert.Equal(t, idl.AccountDiscriminator("Position"), position.Discriminator())

	swapped, ok := p.Event("Swapped")
	require.True(t, ok)
	assert.Equal(t, idl.EventDiscriminator("Swapped"), swapped.Discriminator())

	deposit, ok := p.Instruction("deposit")
	require.True(t, ok)
	assert.Equal(t, idl.InstructionDiscriminator("deposit"), deposit.Discriminator())

	_, ok = p.Account("Swapped")
	assert.False(t, ok)
	_, ok = p.Instruction("withdraw")
	assert.False(t, ok)

	data, err := os.ReadFile("testdata/amm.json")
	require.NoError(t, err)
	loaded, err := Load(data, withManualTestOverrides(&testOverrides{}))
	require.NoError(t, err)
	assert.Equal(t, p.ID(), loaded.ID())
}

func TestProgram_InvalidSchemas(t *testing.T) {
	for _, tc := range []struct {
		name     string
		mutate   func(doc *idl.IDL)
		expected error
	}{
		{
			name: "invalid address",
			mutate: func(doc *idl.IDL) {
				doc.Address = "not-base58!"
			},
			expected: idl.ErrInvalidSchema,
		},
		{
			name: "fixed layout account with a vector",
			mutate: func(doc *idl.IDL) {
				def, _ := doc.TypeDef("Pool")
				def.Type.Fields.Named = append(def.Type.Fields.Named, idl.Field{Name: "ticks", Type: idl.Vec(idl.Primitive(idl.KindI32))})
			},
			expected: ErrNotFixedLayout,
		},
		{
			name: "fixed layout account with an enum",
			mutate: func(doc *idl.IDL) {
				def, _ := doc.TypeDef("Pool")
				def.Type.Fields.Named = append(def.Type.Fields.Named, idl.Field{Name: "status", Type: idl.Defined("Status")})
			},
			expected: ErrNotFixedLayout,
		},
		{
			name: "invalid pubkey constant",
			mutate: func(doc *idl.IDL) {
				doc.Constants = append(doc.Constants, idl.Constant{Name: "BAD_KEY", Type: idl.Primitive(idl.KindPubkey), Value: "abc"})
			},
			expected: idl.ErrInvalidSchema,
		},
		{
			name: "invalid bytes constant",
			mutate: func(doc *idl.IDL) {
				doc.Constants = append(doc.Constants, idl.Constant{Name: "BAD_SEED", Type: idl.Primitive(idl.KindBytes), Value: "[1, 300]"})
			},
			expected: idl.ErrInvalidSchema,
		},
		{
			name: "unresolved instruction argument",
			mutate: func(doc *idl.IDL) {
				doc.Instructions[0].Args = append(doc.Instructions[0].Args, idl.Field{Name: "extra", Type: idl.Defined("Missing")})
			},
			expected: ErrUnresolvedType,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc := loadTestIDL(t)
			tc.mutate(doc)

			_, err := New(doc, withManualTestOverrides(&testOverrides{}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.expected), err.Error())
		})
	}
}

func TestProgram_Errors(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	errorCode, ok := p.Error(6000)
	require.True(t, ok)
	assert.Equal(t, "PoolFrozen", errorCode.Name)
	assert.Equal(t, "Pool is frozen", errorCode.Msg)

	_, ok = p.Error(42)
	assert.False(t, ok)

	txErr := &solana.TransactionError{
		Key:         "InstructionError",
		Instruction: &solana.InstructionError{Index: 1, Err: solana.CustomError(6001)},
	}
	errorCode, ok = p.DecodeError(errors.Wrap(txErr, "simulation failed"))
	require.True(t, ok)
	assert.Equal(t, "SlippageExceeded", errorCode.Name)

	errorCode, ok = p.DecodeError(&solana.InstructionError{Index: 0, Err: solana.CustomError(6000)})
	require.True(t, ok)
	assert.Equal(t, "PoolFrozen", errorCode.Name)

	errorCode, ok = p.DecodeError(solana.CustomError(6001))
	require.True(t, ok)
	assert.Equal(t, "SlippageExceeded", errorCode.Name)

	_, ok = p.DecodeError(&solana.TransactionError{Key: "AccountInUse"})
	assert.False(t, ok)

	_, ok = p.DecodeError(errors.New("timeout"))
	assert.False(t, ok)
}

func TestProgram_Constants(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	expected := map[string]interface{}{
		"MAX_POSITIONS": uint32(1000),
		"POOL_SEED":     []byte("pool"),
		"VAULT_SEED":    []byte("vault"),
		"ADMIN":         tokenProgram,
		"NAME":          "amm",
		"MIN_TICK":      int32(-443636),
		"ENABLED":       true,
	}

	constants := p.Constants()
	require.Len(t, constants, 9)
	assert.Equal(t, "MAX_POSITIONS", constants[0].Name)

	for name, value := range expected {
		constant, ok := p.Constant(name)
		require.True(t, ok, name)
		assert.False(t, constant.Expression, name)
		assert.Equal(t, value, constant.Value, name)
	}

	feeScale, ok := p.Constant("FEE_SCALE")
	require.True(t, ok)
	require.IsType(t, &big.Int{}, feeScale.Value)
	assert.Equal(t, "1000000000000000000000", feeScale.Value.(*big.Int).String())

	maxDeposit, ok := p.Constant("MAX_DEPOSIT")
	require.True(t, ok)
	assert.True(t, maxDeposit.Expression)
	assert.Equal(t, "MAX_POSITIONS * 2", maxDeposit.Value)
	assert.Equal(t, "MAX_POSITIONS * 2", maxDeposit.Raw)

	poolSeed, _ := p.Constant("POOL_SEED")
	assert.Equal(t, "string", poolSeed.Type.String())

	_, ok = p.Constant("MISSING")
	assert.False(t, ok)
}

func TestProgram_Capabilities(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	caps, ok := p.Capabilities("Pool")
	require.True(t, ok)
	assert.True(t, caps.Pod)
	assert.True(t, caps.Copy)

	_, ok = p.Capabilities("Missing")
	assert.False(t, ok)
}
