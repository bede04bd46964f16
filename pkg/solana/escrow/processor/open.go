package processor

import (
	"bytes"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// open locks the maker's deposit of mint A in a new vault, along with a record
// of the amount of mint B wanted in return.
//
// Accounts: [maker, escrow, mint_a, mint_b, maker_ata_a, vault, system_program, token_program]
func (p *escrowProcessor) open(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if len(accounts) != openAccountCount {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	maker := accounts[0]
	escrowInfo := accounts[1]
	mintA := accounts[2]
	mintB := accounts[3]
	makerAtaA := accounts[4]
	vault := accounts[5]
	systemProgram := accounts[6]
	tokenProgram := accounts[7]

	var args escrow.OpenInstructionArgs
	if err := args.Unmarshal(payload); err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	if err := checkSigner(maker); err != nil {
		return err
	}
	if err := checkSystemAccount(maker); err != nil {
		return err
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
	if err := checkAssociatedTokenAccount(makerAtaA, maker.Key, mintA.Key, tokenProgram.Key); err != nil {
		return err
	}

	if args.RequestedAmount == 0 || args.DepositAmount == 0 {
		return escrow.ErrorInvalidAmount
	}

	program := ctx.ProgramID()

	address, bump, err := escrow.GetEscrowAddress(&escrow.GetEscrowAddressArgs{
		Program: program,
		Maker:   maker.Key,
		Nonce:   args.Nonce,
	})
	if err != nil || !bytes.Equal(address, escrowInfo.Key) {
		return escrow.ErrorInvalidAddress
	}
	if err := checkSystemAccount(escrowInfo); err != nil {
		return err
	}

	vaultAddress, _, err := escrow.GetVaultAddress(&escrow.GetVaultAddressArgs{
		Escrow:       address,
		Mint:         mintA.Key,
		TokenProgram: tokenProgram.Key,
	})
	if err != nil || !bytes.Equal(vaultAddress, vault.Key) {
		return escrow.ErrorInvalidAddress
	}

	signer, err := ctx.NewSigner(escrow.GetEscrowSignerSeeds(maker.Key, args.Nonce, bump)...)
	if err != nil {
		return err
	}

	if err := createProgramAccount(ctx, maker, escrowInfo, signer, escrow.EscrowAccountSize); err != nil {
		return err
	}

	record := &escrow.EscrowAccount{
		Nonce:           args.Nonce,
		Maker:           maker.Key,
		MintA:           mintA.Key,
		MintB:           mintB.Key,
		RequestedAmount: args.RequestedAmount,
		Bump:            bump,
	}
	copy(escrowInfo.Data(), record.Marshal())

	// The vault address is public, so it may have been created ahead of time
	ix, _, err := token.CreateAssociatedTokenAccountIdempotent(maker.Key, escrowInfo.Key, mintA.Key, tokenProgram.Key)
	if err != nil {
		return err
	}
	if err := ctx.Invoke(ix); err != nil {
		return err
	}

	err = ctx.Invoke(token.Transfer(tokenProgram.Key, makerAtaA.Key, vault.Key, maker.Key, args.DepositAmount))
	if err != nil {
		return err
	}

	ctx.Log().WithField("escrow", base58.Encode(escrowInfo.Key)).Debug("escrow opened")
	recordEscrowEvent(ctx, escrowOpenedEventName, escrowInfo.Key, record, map[string]interface{}{
		"deposit_amount": args.DepositAmount,
	})
	return nil
}
