package escrow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func TestNewOpenInstruction(t *testing.T) {
	keys := generateKeys(t, 6)

	ix := NewOpenInstruction(
		PROGRAM_ID,
		&OpenInstructionAccounts{
			Maker:        keys[0],
			Escrow:       keys[1],
			MintA:        keys[2],
			MintB:        keys[3],
			MakerAtaA:    keys[4],
			Vault:        keys[5],
			TokenProgram: token.ProgramKey,
		},
		&OpenInstructionArgs{Nonce: 7, RequestedAmount: 100, DepositAmount: 50},
	)

	assert.EqualValues(t, PROGRAM_ID, ix.Program)
	require.Len(t, ix.Data, 25)
	assert.EqualValues(t, EscrowInstructionOpen, ix.Data[0])
	assert.EqualValues(t, 7, binary.LittleEndian.Uint64(ix.Data[1:9]))
	assert.EqualValues(t, 100, binary.LittleEndian.Uint64(ix.Data[9:17]))
	assert.EqualValues(t, 50, binary.LittleEndian.Uint64(ix.Data[17:25]))

	require.Len(t, ix.Accounts, 8)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ix.Accounts[6].PublicKey)
	assert.EqualValues(t, token.ProgramKey, ix.Accounts[7].PublicKey)
	for i := 1; i < len(ix.Accounts); i++ {
		assert.False(t, ix.Accounts[i].IsSigner)
	}

	var args OpenInstructionArgs
	require.NoError(t, args.Unmarshal(ix.Data[1:]))
	assert.Equal(t, OpenInstructionArgs{Nonce: 7, RequestedAmount: 100, DepositAmount: 50}, args)

	assert.Equal(t, ErrInvalidInstructionData, args.Unmarshal(ix.Data[1:24]))
	assert.Equal(t, ErrInvalidInstructionData, args.Unmarshal(append(ix.Data[1:], 0)))
}

func TestNewFulfillInstruction(t *testing.T) {
	keys := generateKeys(t, 9)

	ix := NewFulfillInstruction(PROGRAM_ID, &FulfillInstructionAccounts{
		Taker:        keys[0],
		Maker:        keys[1],
		Escrow:       keys[2],
		MintA:        keys[3],
		MintB:        keys[4],
		Vault:        keys[5],
		TakerAtaA:    keys[6],
		TakerAtaB:    keys[7],
		MakerAtaB:    keys[8],
		TokenProgram: token.Token2022ProgramKey,
	})

	assert.Equal(t, []byte{byte(EscrowInstructionFulfill)}, ix.Data)
	require.Len(t, ix.Accounts, 11)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.False(t, ix.Accounts[1].IsSigner)
	assert.True(t, ix.Accounts[1].IsWritable)
	assert.EqualValues(t, keys[2], ix.Accounts[2].PublicKey)
	assert.EqualValues(t, keys[8], ix.Accounts[8].PublicKey)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ix.Accounts[9].PublicKey)
	assert.EqualValues(t, token.Token2022ProgramKey, ix.Accounts[10].PublicKey)
}

func TestNewCancelInstruction(t *testing.T) {
	keys := generateKeys(t, 5)

	ix := NewCancelInstruction(PROGRAM_ID, &CancelInstructionAccounts{
		Maker:        keys[0],
		Escrow:       keys[1],
		MintA:        keys[2],
		Vault:        keys[3],
		MakerAtaA:    keys[4],
		TokenProgram: token.ProgramKey,
	})

	assert.Equal(t, []byte{byte(EscrowInstructionCancel)}, ix.Data)
	require.Len(t, ix.Accounts, 7)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.EqualValues(t, keys[4], ix.Accounts[4].PublicKey)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ix.Accounts[5].PublicKey)
}

func TestGetEscrowInstruction(t *testing.T) {
	for _, expected := range []EscrowInstruction{EscrowInstructionOpen, EscrowInstructionFulfill, EscrowInstructionCancel} {
		actual, err := GetEscrowInstruction([]byte{byte(expected)})
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := GetEscrowInstruction(nil)
	assert.Equal(t, ErrInvalidInstructionData, err)

	_, err = GetEscrowInstruction([]byte{3})
	assert.Equal(t, ErrInvalidInstructionData, err)
}
