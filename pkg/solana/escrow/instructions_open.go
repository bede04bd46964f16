package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
)

const (
	OpenInstructionArgsSize = (8 + // nonce
		8 + // requested_amount
		8) // deposit_amount
)

type OpenInstructionArgs struct {
	Nonce           uint64
	RequestedAmount uint64
	DepositAmount   uint64
}

type OpenInstructionAccounts struct {
	Maker        ed25519.PublicKey
	Escrow       ed25519.PublicKey
	MintA        ed25519.PublicKey
	MintB        ed25519.PublicKey
	MakerAtaA    ed25519.PublicKey
	Vault        ed25519.PublicKey
	TokenProgram ed25519.PublicKey
}

func NewOpenInstruction(
	program ed25519.PublicKey,
	accounts *OpenInstructionAccounts,
	args *OpenInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+OpenInstructionArgsSize)

	putEscrowInstruction(data, EscrowInstructionOpen, &offset)
	putUint64(data, args.Nonce, &offset)
	putUint64(data, args.RequestedAmount, &offset)
	putUint64(data, args.DepositAmount, &offset)

	return solana.Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Maker,
				IsWritable: true,
				IsSigner:   true,
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
				PublicKey:  accounts.MakerAtaA,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Vault,
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

// Unmarshal decodes the payload that follows the discriminator byte
func (obj *OpenInstructionArgs) Unmarshal(payload []byte) error {
	if len(payload) != OpenInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	var offset int
	getUint64(payload, &obj.Nonce, &offset)
	getUint64(payload, &obj.RequestedAmount, &offset)
	getUint64(payload, &obj.DepositAmount, &offset)
	return nil
}
