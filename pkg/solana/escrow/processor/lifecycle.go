package processor

import (
	"bytes"

	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// createProgramAccount allocates target at a derived address of the executing
// program, funded by payer to be rent exempt at size. An address that was
// funded ahead of time is topped up and claimed instead.
func createProgramAccount(ctx *runtime.InvokeContext, payer, target *runtime.AccountInfo, signer *runtime.Signer, size uint64) error {
	program := ctx.ProgramID()
	lamports := ctx.Rent().MinimumBalance(size)

	if target.Lamports() == 0 {
		return ctx.Invoke(system.CreateAccount(payer.Key, target.Key, program, lamports, size), signer)
	}

	if target.Lamports() < lamports {
		err := ctx.Invoke(system.Transfer(payer.Key, target.Key, lamports-target.Lamports()))
		if err != nil {
			return err
		}
	}

	if err := ctx.Invoke(system.Allocate(target.Key, size), signer); err != nil {
		return err
	}
	return ctx.Invoke(system.Assign(target.Key, program), signer)
}

// createTokenAccountIfAbsent reuses holding when it's already the associated
// token account of wallet for mint, and otherwise creates it. holding must be
// at the associated address. An account there that exists but fails the
// checks is rejected by the associated token program.
func createTokenAccountIfAbsent(ctx *runtime.InvokeContext, payer, holding, wallet, mint, tokenProgram *runtime.AccountInfo) error {
	if checkAssociatedTokenAccount(holding, wallet.Key, mint.Key, tokenProgram.Key) == nil {
		return nil
	}

	ix, address, err := token.CreateAssociatedTokenAccount(payer.Key, wallet.Key, mint.Key, tokenProgram.Key)
	if err != nil || !bytes.Equal(address, holding.Key) {
		return escrow.ErrorInvalidAddress
	}
	return ctx.Invoke(ix)
}

// closeProgramAccount sweeps the lamports of info to beneficiary and hands it
// back to the native transfer program with no data.
func closeProgramAccount(info, beneficiary *runtime.AccountInfo) error {
	lamports := info.Lamports()
	if err := info.SubLamports(lamports); err != nil {
		return err
	}
	if err := beneficiary.AddLamports(lamports); err != nil {
		return err
	}

	info.Close()
	return nil
}
