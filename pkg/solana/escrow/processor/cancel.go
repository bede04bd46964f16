package processor

import (
	"bytes"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// cancel returns the vault's contents to the maker and closes the vault and
// the record.
//
// Accounts: [maker, escrow, mint_a, vault, maker_ata_a, system_program, token_program]
func (p *escrowProcessor) cancel(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if len(accounts) != cancelAccountCount {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	maker := accounts[0]
	escrowInfo := accounts[1]
	mintA := accounts[2]
	vault := accounts[3]
	makerAtaA := accounts[4]
	systemProgram := accounts[5]
	tokenProgram := accounts[6]

	if len(payload) != 0 {
		return solana.InstructionErrorInvalidInstructionData
	}

	program := ctx.ProgramID()

	if err := checkSigner(maker); err != nil {
		return err
	}

	record, err := loadEscrowAccount(escrowInfo, program)
	if err != nil {
		return err
	}
	if !bytes.Equal(record.Maker, maker.Key) {
		return escrow.ErrorInvalidMaker
	}
	if err := verifyEscrowAddress(escrowInfo, program, record); err != nil {
		return err
	}
	if !bytes.Equal(record.MintA, mintA.Key) {
		return escrow.ErrorInvalidAssetType
	}

	if err := checkMint(mintA); err != nil {
		return err
	}
	if err := checkPrograms(systemProgram, tokenProgram, mintA); err != nil {
		return err
	}
	if err := checkAssociatedTokenAccount(vault, escrowInfo.Key, mintA.Key, tokenProgram.Key); err != nil {
		return err
	}

	if err := createTokenAccountIfAbsent(ctx, maker, makerAtaA, maker, mintA, tokenProgram); err != nil {
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

	err = ctx.Invoke(token.Transfer(tokenProgram.Key, vault.Key, makerAtaA.Key, escrowInfo.Key, amount), signer)
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

	ctx.Log().WithField("escrow", base58.Encode(escrowInfo.Key)).Debug("escrow cancelled")
	recordEscrowEvent(ctx, escrowCancelledEventName, escrowInfo.Key, record, map[string]interface{}{
		"deposit_amount": amount,
	})
	return nil
}
