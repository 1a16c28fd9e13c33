package anchor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

func TestDispatch_ParseAccount(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	position, _ := p.Account("Position")
	positionData, err := position.Encode(testPosition())
	require.NoError(t, err)

	poolData := make([]byte, 8+poolSize)
	copy(poolData, poolDiscriminator)

	for i := 0; i < 3; i++ {
		account, err := p.ParseAccount(positionData)
		require.NoError(t, err)
		assert.Equal(t, "Position", account.Name)
		assertValueEqual(t, testPosition(), account.Value)

		account, err = p.ParseAccount(poolData)
		require.NoError(t, err)
		assert.Equal(t, "Pool", account.Name)
	}

	for _, data := range [][]byte{
		nil,
		{1, 2, 3},
		make([]byte, 64),
		poolData[:20],
		positionData[:40],
		append(idl.AccountDiscriminator("Opaque"), 1),
	} {
		_, err := p.ParseAccount(data)
		assert.True(t, errors.Is(err, ErrUnknownDiscriminator))
	}

	// Event payloads are not accounts.
	swapped, _ := encodeTestEvents(t, p)
	_, err = p.ParseAccount(swapped)
	assert.True(t, errors.Is(err, ErrUnknownDiscriminator))
}

func TestDispatch_FirstDecodableMatchWins(t *testing.T) {
	p := loadTestProgram(t, &testOverrides{})

	pool, _ := p.Account("Pool")
	position, _ := p.Account("Position")

	shared := []*Codec{
		{name: "Broken", disc: position.disc, def: position.def, typ: pool.typ, strategy: strategyUnsupported, mapper: p.mapper, layouts: p.layouts},
		position,
	}

	data, err := position.Encode(testPosition())
	require.NoError(t, err)

	name, _, err := dispatch(shared, data)
	require.NoError(t, err)
	assert.Equal(t, "Position", name)

	_, _, err = dispatch(shared[:1], data)
	assert.True(t, errors.Is(err, ErrUnknownDiscriminator))
}
