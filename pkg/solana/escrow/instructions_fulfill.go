package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
)

type FulfillInstructionAccounts struct {
	Taker        ed25519.PublicKey
	Maker        ed25519.PublicKey
	Escrow       ed25519.PublicKey
	MintA        ed25519.PublicKey
	MintB        ed25519.PublicKey
	Vault        ed25519.PublicKey
	TakerAtaA    ed25519.PublicKey
	TakerAtaB    ed25519.PublicKey
	MakerAtaB    ed25519.PublicKey
	TokenProgram ed25519.PublicKey
}

func NewFulfillInstruction(
	program ed25519.PublicKey,
	accounts *FulfillInstructionAccounts,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1)

	putEscrowInstruction(data, EscrowInstructionFulfill, &offset)

	return solana.Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Taker,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Maker,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintA,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintB,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Vault,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TakerAtaA,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TakerAtaB,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MakerAtaB,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TokenProgram,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
