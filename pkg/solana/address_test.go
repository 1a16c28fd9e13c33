package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyFromString(t *testing.T) {
	key, err := PublicKeyFromString("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), []byte(key))

	_, err = PublicKeyFromString("not base58 0OIl")
	assert.Error(t, err)

	_, err = PublicKeyFromString(base58.Encode([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	assert.Panics(t, func() { MustPublicKeyFromString("short") })
}

func TestCreateProgramAddress(t *testing.T) {
	programID, err := base58.Decode("BPFLoader1111111111111111111111111111111111")
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, make([][]byte, maxSeeds+1)...)
	assert.Equal(t, ErrTooManySeeds, err)

	_, err = CreateProgramAddress(programID, make([]byte, maxSeedLength))
	assert.NoError(t, err)

	// Vectors from the Solana SDK test suite.
	for _, tc := range []struct {
		expected string
		seeds    [][]byte
	}{
		{expected: "3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT", seeds: [][]byte{{}, {1}}},
		{expected: "7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7", seeds: [][]byte{[]byte("☉")}},
		{expected: "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds", seeds: [][]byte{[]byte("Talking"), []byte("Squirrels")}},
	} {
		address, err := CreateProgramAddress(programID, tc.seeds...)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(address))
	}
}

func TestFindProgramAddress(t *testing.T) {
	for _, tc := range []struct {
		programID string
		expected  string
	}{
		{programID: "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM", expected: "Bn9pAWUXWc5Kd849xTkQcHqiCbHUEizLFn4r5Cf8XYnd"},
		{programID: "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh", expected: "oDvUHiiGdMo31xYzjefAzUekWH8EbCKrxgs2FkyTs1S"},
		{programID: "CiDwVBFgWV9E5MvXWoLgnEgn2hK7rJikbvfWavzAQz3", expected: "B2vBn2bmF9GuaGkebrm8oUqDC34pE6m4bagjNcVE6msv"},
	} {
		programID, err := PublicKeyFromString(tc.programID)
		require.NoError(t, err)

		address, bump, err := FindProgramAddressAndBump(programID, []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(address))

		recreated, err := CreateProgramAddress(programID, []byte("Lil'"), []byte("Bits"), []byte{bump})
		require.NoError(t, err)
		assert.Equal(t, address, recreated)
	}

	for i := 0; i < 100; i++ {
		programID, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		_, err = FindProgramAddress(programID, []byte("seed"))
		assert.NoError(t, err)
	}
}
