package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

type associatedTokenProcessor struct{}

// NewAssociatedTokenProcessor returns the program that creates the canonical
// token account of a wallet for a mint.
func NewAssociatedTokenProcessor() Processor {
	return &associatedTokenProcessor{}
}

func (p *associatedTokenProcessor) ProgramID() ed25519.PublicKey {
	return token.AssociatedTokenAccountProgramKey
}

func (p *associatedTokenProcessor) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	if len(accounts) < 6 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	// Empty data is Create, [1] is CreateIdempotent
	if len(data) > 1 || (len(data) == 1 && data[0] > 1) {
		return solana.InstructionErrorInvalidInstructionData
	}

	decompiled, err := token.DecompileCreateAssociatedAccount(ToInstruction(p.ProgramID(), accounts, data))
	if err != nil {
		return solana.InstructionErrorIncorrectProgramID
	}

	payerInfo := accounts[0]
	associatedInfo := accounts[1]
	mintInfo := accounts[3]

	address, bump, err := token.GetAssociatedAccountAndBump(decompiled.Owner, decompiled.Mint, decompiled.TokenProgram)
	if err != nil || !bytes.Equal(address, associatedInfo.Key) {
		return solana.InstructionErrorInvalidSeeds
	}

	if !mintInfo.IsOwnedBy(decompiled.TokenProgram) {
		return solana.InstructionErrorIncorrectProgramID
	}

	if decompiled.Idempotent && associatedInfo.IsOwnedBy(decompiled.TokenProgram) {
		var existing token.Account
		if existing.Unmarshal(associatedInfo.Data()) &&
			existing.State != token.AccountStateUninitialized &&
			bytes.Equal(existing.Owner, decompiled.Owner) &&
			bytes.Equal(existing.Mint, decompiled.Mint) {
			return nil
		}
		return solana.InstructionErrorIllegalOwner
	}

	if !associatedInfo.IsOwnedBy(system.SystemAccount) {
		return solana.InstructionErrorIllegalOwner
	}

	size := uint64(token.AccountSize)
	if bytes.Equal(decompiled.TokenProgram, token.Token2022ProgramKey) {
		size = token.ImmutableOwnerAccountSize
	}

	signer, err := ctx.NewSigner(
		decompiled.Owner,
		decompiled.TokenProgram,
		decompiled.Mint,
		[]byte{bump},
	)
	if err != nil {
		return err
	}

	err = ctx.Invoke(
		system.CreateAccount(
			payerInfo.Key,
			associatedInfo.Key,
			decompiled.TokenProgram,
			ctx.Rent().MinimumBalance(size),
			size,
		),
		signer,
	)
	if err != nil {
		return err
	}

	if bytes.Equal(decompiled.TokenProgram, token.Token2022ProgramKey) {
		if err := ctx.Invoke(token.InitializeImmutableOwner(associatedInfo.Key)); err != nil {
			return err
		}
	}

	return ctx.Invoke(token.InitializeAccount3(
		decompiled.TokenProgram,
		associatedInfo.Key,
		decompiled.Mint,
		decompiled.Owner,
	))
}
