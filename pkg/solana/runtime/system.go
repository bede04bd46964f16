package runtime

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

type systemProcessor struct{}

// NewSystemProcessor returns the native transfer program, which creates
// accounts, assigns owners and moves lamports between accounts it owns.
func NewSystemProcessor() Processor {
	return &systemProcessor{}
}

func (p *systemProcessor) ProgramID() ed25519.PublicKey {
	return system.SystemAccount
}

func (p *systemProcessor) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	command, err := system.GetCommand(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	ix := ToInstruction(p.ProgramID(), accounts, data)

	switch command {
	case system.CommandCreateAccount:
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := system.DecompileCreateAccount(ix)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		return p.createAccount(accounts[0], accounts[1], decompiled.Lamports, decompiled.Size, decompiled.Owner)
	case system.CommandAssign:
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := system.DecompileAssign(ix)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		return p.assign(accounts[0], decompiled.Owner)
	case system.CommandTransfer:
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := system.DecompileTransfer(ix)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		return p.transfer(accounts[0], accounts[1], decompiled.Lamports)
	case system.CommandAllocate:
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := system.DecompileAllocate(ix)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		return p.allocate(accounts[0], decompiled.Size)
	}

	return solana.InstructionErrorInvalidInstructionData
}

func (p *systemProcessor) createAccount(funder, account *AccountInfo, lamports, size uint64, owner ed25519.PublicKey) error {
	if account.Lamports() > 0 {
		return system.ErrAccountAlreadyInUse
	}

	if err := p.allocate(account, size); err != nil {
		return err
	}

	if err := p.assign(account, owner); err != nil {
		return err
	}

	return p.transfer(funder, account, lamports)
}

func (p *systemProcessor) allocate(account *AccountInfo, size uint64) error {
	if !account.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if len(account.Data()) > 0 || !account.IsOwnedBy(system.SystemAccount) {
		return system.ErrAccountAlreadyInUse
	}

	if size > system.MaxPermittedDataLength {
		return system.ErrInvalidAccountDataLength
	}

	return account.Resize(int(size))
}

func (p *systemProcessor) assign(account *AccountInfo, owner ed25519.PublicKey) error {
	if account.IsOwnedBy(owner) {
		return nil
	}

	if !account.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	account.Assign(owner)
	return nil
}

func (p *systemProcessor) transfer(from, to *AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if len(from.Data()) > 0 {
		return solana.InstructionErrorInvalidArgument
	}

	if from.Lamports() < lamports {
		return system.ErrResultWithNegativeLamports
	}

	if err := from.SubLamports(lamports); err != nil {
		return err
	}
	return to.AddLamports(lamports)
}
