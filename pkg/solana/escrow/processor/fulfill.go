package processor

import (
	"bytes"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// fulfill swaps the vault's contents for the requested amount of mint B, then
// closes the vault and the record with the rent going back to the maker.
//
// Accounts: [taker, maker, escrow, mint_a, mint_b, vault, taker_ata_a, taker_ata_b, maker_ata_b, system_program, token_program]
func (p *escrowProcessor) fulfill(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if len(accounts) != fulfillAccountCount {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	taker := accounts[0]
	maker := accounts[1]
	escrowInfo := accounts[2]
	mintA := accounts[3]
	mintB := accounts[4]
	vault := accounts[5]
	takerAtaA := accounts[6]
	takerAtaB := accounts[7]
	makerAtaB := accounts[8]
	systemProgram := accounts[9]
	tokenProgram := accounts[10]

	if len(payload) != 0 {
		return solana.InstructionErrorInvalidInstructionData
	}

	program := ctx.ProgramID()

	if err := checkSigner(taker); err != nil {
		return err
	}
	if err := checkSystemAccount(maker); err != nil {
		return err
	}

	record, err := loadEscrowAccount(escrowInfo, program)
	if err != nil {
		return err
	}
	if err := verifyEscrowAddress(escrowInfo, program, record); err != nil {
		return err
	}
	if !bytes.Equal(record.Maker, maker.Key) {
		return escrow.ErrorInvalidMaker
	}
	if !bytes.Equal(record.MintA, mintA.Key) || !bytes.Equal(record.MintB, mintB.Key) {
		return escrow.ErrorInvalidAssetType
	}

	if err := checkMint(mintA); err != nil {
		return err
	}
	if err := checkMint(mintB); err != nil {
		return err
	}
	if err := checkPrograms(systemProgram, tokenProgram, mintA, mintB); err != nil {
		return err
	}
	if err := checkAssociatedTokenAccount(vault, escrowInfo.Key, mintA.Key, tokenProgram.Key); err != nil {
		return err
	}
	if err := checkTokenAccount(takerAtaB); err != nil {
		return err
	}

	if err := createTokenAccountIfAbsent(ctx, taker, takerAtaA, taker, mintA, tokenProgram); err != nil {
		return err
	}
	if err := createTokenAccountIfAbsent(ctx, taker, makerAtaB, maker, mintB, tokenProgram); err != nil {
		return err
	}

	amount, err := getTokenBalance(vault)
	if err != nil {
		return err
	}

	signer, err := ctx.NewSigner(escrow.GetEscrowSignerSeeds(record.Maker, record.Nonce, record.Bump)...)
	if err != nil {
		return err
	}

	err = ctx.Invoke(token.Transfer(tokenProgram.Key, vault.Key, takerAtaA.Key, escrowInfo.Key, amount), signer)
	if err != nil {
		return err
	}

	err = ctx.Invoke(token.Transfer(tokenProgram.Key, takerAtaB.Key, makerAtaB.Key, taker.Key, record.RequestedAmount))
	if err != nil {
		return err
	}

	err = ctx.Invoke(token.CloseAccount(tokenProgram.Key, vault.Key, maker.Key, escrowInfo.Key), signer)
	if err != nil {
		return err
	}

	if err := closeProgramAccount(escrowInfo, maker); err != nil {
		return err
	}

	ctx.Log().
		WithField("escrow", base58.Encode(escrowInfo.Key)).
		WithField("taker", base58.Encode(taker.Key)).
		Debug("escrow fulfilled")
	recordEscrowEvent(ctx, escrowFulfilledEventName, escrowInfo.Key, record, map[string]interface{}{
		"taker":          base58.Encode(taker.Key),
		"deposit_amount": amount,
	})
	return nil
}
