package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func TestGetEscrowAddress_Deterministic(t *testing.T) {
	keys := generateKeys(t, 2)

	args := &GetEscrowAddressArgs{Program: PROGRAM_ID, Maker: keys[0], Nonce: 7}
	address, bump, err := GetEscrowAddress(args)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, againBump, err := GetEscrowAddress(args)
		require.NoError(t, err)
		assert.EqualValues(t, address, again)
		assert.Equal(t, bump, againBump)
	}

	assert.NoError(t, VerifyEscrowAddress(PROGRAM_ID, address, keys[0], 7, bump))
	assert.Equal(t, solana.ErrAddressMismatch, VerifyEscrowAddress(PROGRAM_ID, address, keys[0], 8, bump))
	assert.Equal(t, solana.ErrAddressMismatch, VerifyEscrowAddress(PROGRAM_ID, address, keys[1], 7, bump))
	assert.Equal(t, solana.ErrAddressMismatch, VerifyEscrowAddress(keys[1], address, keys[0], 7, bump))

	otherNonce, _, err := GetEscrowAddress(&GetEscrowAddressArgs{Program: PROGRAM_ID, Maker: keys[0], Nonce: 8})
	require.NoError(t, err)
	assert.NotEqual(t, address, otherNonce)

	otherProgram, _, err := GetEscrowAddress(&GetEscrowAddressArgs{Program: keys[1], Maker: keys[0], Nonce: 7})
	require.NoError(t, err)
	assert.NotEqual(t, address, otherProgram)
}

func TestGetEscrowSignerSeeds(t *testing.T) {
	keys := generateKeys(t, 1)

	address, bump, err := GetEscrowAddress(&GetEscrowAddressArgs{Program: PROGRAM_ID, Maker: keys[0], Nonce: 42})
	require.NoError(t, err)

	seeds := GetEscrowSignerSeeds(keys[0], 42, bump)
	require.Len(t, seeds, 4)
	assert.Equal(t, EscrowPrefix, seeds[0])
	assert.Equal(t, []byte{42, 0, 0, 0, 0, 0, 0, 0}, seeds[2])
	assert.Equal(t, []byte{bump}, seeds[3])

	signer, err := solana.CreateProgramAddress(PROGRAM_ID, seeds...)
	require.NoError(t, err)
	assert.EqualValues(t, address, signer)
}

func TestGetVaultAddress(t *testing.T) {
	keys := generateKeys(t, 2)

	vault, _, err := GetVaultAddress(&GetVaultAddressArgs{Escrow: keys[0], Mint: keys[1], TokenProgram: token.ProgramKey})
	require.NoError(t, err)

	expected, err := token.GetAssociatedAccount(keys[0], keys[1])
	require.NoError(t, err)
	assert.EqualValues(t, expected, vault)
}
