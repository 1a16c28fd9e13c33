package anchor

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/solana"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

func TestInstruction_Deposit(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	deposit, ok := p.Instruction("deposit")
	require.True(t, ok)
	assert.Equal(t, []string{"owner", "position", "vault_pool", "vault_token_program", "referrer"}, deposit.AccountNames())

	owner := testKey(1)
	pool := testKey(2)

	ix, err := deposit.Build(
		Args{"position_id": uint64(7), "amount": uint64(500)},
		Accounts{"owner": owner, "vault_pool": pool},
	)
	require.NoError(t, err)

	var data []byte
	data = append(data, idl.InstructionDiscriminator("deposit")...)
	data = binary.LittleEndian.AppendUint64(data, 7)
	data = binary.LittleEndian.AppendUint64(data, 500)
	data = append(data, 0)
	assert.Equal(t, data, ix.Data)
	assert.Equal(t, p.ID(), ix.Program)

	position, err := solana.FindProgramAddress(p.ID(), []byte("position"), owner, binary.LittleEndian.AppendUint64(nil, 7))
	require.NoError(t, err)

	require.Len(t, ix.Accounts, 5)
	assert.Equal(t, solana.NewAccountMeta(owner, true), ix.Accounts[0])
	assert.Equal(t, solana.NewAccountMeta(position, false), ix.Accounts[1])
	assert.Equal(t, solana.NewAccountMeta(pool, false), ix.Accounts[2])
	assert.Equal(t, solana.NewReadonlyAccountMeta(tokenProgram, false), ix.Accounts[3])
	assert.Equal(t, solana.NewReadonlyAccountMeta(p.ID(), false), ix.Accounts[4])

	// An empty address is the same as leaving the account out.
	withNil, err := deposit.Build(
		Args{"position_id": uint64(7), "amount": uint64(500)},
		Accounts{"owner": owner, "vault_pool": pool, "referrer": nil, "position": ed25519.PublicKey{}},
	)
	require.NoError(t, err)
	assert.Equal(t, ix, withNil)

	referrer := testKey(3)
	ix, err = deposit.Build(
		Args{"position_id": uint64(7), "amount": uint64(500), "memo": "hi"},
		Accounts{"owner": owner, "vault_pool": pool, "referrer": referrer, "position": testKey(4)},
	)
	require.NoError(t, err)

	data = data[:len(data)-1]
	data = append(data, 1, 2, 0, 0, 0, 'h', 'i')
	assert.Equal(t, data, ix.Data)
	assert.Equal(t, solana.NewAccountMeta(testKey(4), false), ix.Accounts[1])
	assert.Equal(t, solana.NewReadonlyAccountMeta(referrer, false), ix.Accounts[4])
}

func TestInstruction_Errors(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})
	deposit, _ := p.Instruction("deposit")

	accounts := Accounts{"owner": testKey(1), "vault_pool": testKey(2)}

	_, err := deposit.Build(Args{"position_id": uint64(7)}, accounts)
	assert.True(t, errors.Is(err, ErrMissingArgument))
	assert.True(t, errors.Is(err, ErrEncode))

	_, err = deposit.Build(Args{"position_id": uint64(7), "amount": -5}, accounts)
	assert.True(t, errors.Is(err, ErrEncode))

	_, err = deposit.Build(Args{"position_id": uint64(7), "amount": uint64(1), "memo": 12}, accounts)
	assert.True(t, errors.Is(err, ErrEncode))

	_, err = deposit.Build(Args{"position_id": uint64(7), "amount": uint64(1)}, Accounts{"vault_pool": testKey(2)})
	assert.True(t, errors.Is(err, ErrMissingAccount))
	assert.True(t, errors.Is(err, ErrEncode))

	// A required account with no address is missing.
	_, err = deposit.Build(Args{"position_id": uint64(7), "amount": uint64(1)}, Accounts{"owner": nil, "vault_pool": testKey(2)})
	assert.True(t, errors.Is(err, ErrMissingAccount))
	assert.True(t, errors.Is(err, ErrEncode))

	for _, address := range []ed25519.PublicKey{testKey(3)[:31], append(testKey(3), 0)} {
		_, err = deposit.Build(Args{"position_id": uint64(7), "amount": uint64(1)}, Accounts{"owner": testKey(1), "vault_pool": testKey(2), "referrer": address})
		assert.True(t, errors.Is(err, solana.ErrInvalidPublicKey))
		assert.True(t, errors.Is(err, ErrEncode))
	}

	_, err = deposit.Build(Args{"position_id": uint64(7), "amount": uint64(1)}, Accounts{"owner": testKey(1), "vault_pool": testKey(2), "refferer": testKey(3)})
	assert.True(t, errors.Is(err, ErrUnknownAccount))
	assert.True(t, errors.Is(err, ErrEncode))

	_, err = deposit.BuildFor(testKey(9)[:16], Args{"position_id": uint64(7), "amount": uint64(1)}, accounts)
	assert.True(t, errors.Is(err, ErrEncode))

	// The position seeds need the argument.
	_, err = deposit.AccountMetas(Args{}, Accounts{"owner": testKey(1), "vault_pool": testKey(2)})
	assert.True(t, errors.Is(err, ErrMissingArgument))
}

func TestInstruction_BuildFor(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})
	deposit, _ := p.Instruction("deposit")

	deployment := testKey(9)
	owner := testKey(1)
	args := Args{"position_id": uint64(7), "amount": uint64(500)}

	ix, err := deposit.BuildFor(deployment, args, Accounts{"owner": owner, "vault_pool": testKey(2)})
	require.NoError(t, err)
	assert.Equal(t, deployment, ix.Program)

	position, err := solana.FindProgramAddress(deployment, []byte("position"), owner, binary.LittleEndian.AppendUint64(nil, 7))
	require.NoError(t, err)

	require.Len(t, ix.Accounts, 5)
	assert.Equal(t, solana.NewAccountMeta(position, false), ix.Accounts[1])
	assert.Equal(t, solana.NewReadonlyAccountMeta(tokenProgram, false), ix.Accounts[3])
	assert.Equal(t, solana.NewReadonlyAccountMeta(deployment, false), ix.Accounts[4])

	// Data does not depend on the deployment.
	declared, err := deposit.Build(args, Accounts{"owner": owner, "vault_pool": testKey(2)})
	require.NoError(t, err)
	assert.Equal(t, declared.Data, ix.Data)
	assert.NotEqual(t, declared.Accounts[1], ix.Accounts[1])
}

func TestInstruction_NestedArgSeed(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	initialize, ok := p.Instruction("initialize_registry")
	require.True(t, ok)

	payer := testKey(1)
	poolState := testKey(2)
	args := Args{"params": Fields{"seed": "main", "capacity": uint32(10)}}

	// Seeds read from account data cannot be derived offline.
	_, err := initialize.Build(args, Accounts{"payer": payer})
	assert.True(t, errors.Is(err, ErrMissingAccount))

	ix, err := initialize.Build(args, Accounts{"payer": payer, "pool_state": poolState})
	require.NoError(t, err)

	registry, err := solana.FindProgramAddress(p.ID(), []byte("registry"), []byte("main"))
	require.NoError(t, err)

	require.Len(t, ix.Accounts, 3)
	assert.Equal(t, solana.NewAccountMeta(payer, true), ix.Accounts[0])
	assert.Equal(t, solana.NewAccountMeta(registry, false), ix.Accounts[1])
	assert.Equal(t, solana.NewReadonlyAccountMeta(poolState, false), ix.Accounts[2])

	var data []byte
	data = append(data, idl.InstructionDiscriminator("initialize_registry")...)
	data = binary.LittleEndian.AppendUint32(data, 4)
	data = append(data, "main"...)
	data = binary.LittleEndian.AppendUint32(data, 10)
	assert.Equal(t, data, ix.Data)
}

func TestInstruction_Decode(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})
	deposit, _ := p.Instruction("deposit")

	data, err := deposit.EncodeData(Args{"position_id": uint64(7), "amount": uint64(500), "memo": "hello"})
	require.NoError(t, err)

	decoded, err := p.DecodeInstruction(data)
	require.NoError(t, err)
	assert.Equal(t, "deposit", decoded.Name)
	assert.Equal(t, Fields{"position_id": uint64(7), "amount": uint64(500), "memo": "hello"}, decoded.Args)

	_, err = p.DecodeInstruction(data[:len(data)-1])
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = p.DecodeInstruction(append(append([]byte{}, data...), 0))
	assert.True(t, errors.Is(err, ErrTrailingBytes))

	_, err = p.DecodeInstruction([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.True(t, errors.Is(err, ErrUnknownDiscriminator))
}
