package processor

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// Account checks run against what an instruction was handed, before anything
// is mutated. The first failure aborts the instruction.

func checkSigner(info *runtime.AccountInfo) error {
	if !info.IsSigner {
		return escrow.ErrorNotSigner
	}
	return nil
}

func checkSystemAccount(info *runtime.AccountInfo) error {
	if !info.IsOwnedBy(system.SystemAccount) {
		return escrow.ErrorInvalidOwner
	}
	return nil
}

// checkMint accepts mints of either token program. Extended mints are either
// the legacy size or tagged as a mint.
func checkMint(info *runtime.AccountInfo) error {
	if !token.IsProgramKey(info.Owner()) {
		return escrow.ErrorInvalidOwner
	}
	return checkTokenLayout(info, token.MintSize, token.ExtendedAccountTypeMint)
}

// checkTokenAccount accepts token accounts of either token program. Extended
// accounts are either the legacy size or tagged as an account.
func checkTokenAccount(info *runtime.AccountInfo) error {
	if !token.IsProgramKey(info.Owner()) {
		return escrow.ErrorInvalidOwner
	}
	return checkTokenLayout(info, token.AccountSize, token.ExtendedAccountTypeAccount)
}

func checkTokenLayout(info *runtime.AccountInfo, legacySize int, tag token.ExtendedAccountType) error {
	data := info.Data()
	if len(data) == legacySize {
		return nil
	}

	if info.IsOwnedBy(token.ProgramKey) {
		return escrow.ErrorInvalidAccountData
	}

	actual, ok := token.GetExtendedAccountType(data)
	if !ok || actual != tag {
		return escrow.ErrorInvalidAccountData
	}
	return nil
}

// checkAssociatedTokenAccount verifies info is the canonical token account of
// wallet for mint under tokenProgram.
func checkAssociatedTokenAccount(info *runtime.AccountInfo, wallet, mint, tokenProgram ed25519.PublicKey) error {
	if err := checkTokenAccount(info); err != nil {
		return err
	}

	expected, _, err := token.GetAssociatedAccountAndBump(wallet, mint, tokenProgram)
	if err != nil || !bytes.Equal(expected, info.Key) {
		return escrow.ErrorInvalidAddress
	}
	return nil
}

// checkEscrowAccount verifies info holds a record of the executing program
func checkEscrowAccount(info *runtime.AccountInfo, program ed25519.PublicKey) error {
	if !info.IsOwnedBy(program) {
		return escrow.ErrorInvalidOwner
	}

	if len(info.Data()) != escrow.EscrowAccountSize {
		return escrow.ErrorInvalidAccountData
	}
	return nil
}

// checkPrograms verifies the native transfer and token program accounts, and
// that every mint belongs to the token program being invoked.
func checkPrograms(systemProgram, tokenProgram *runtime.AccountInfo, mints ...*runtime.AccountInfo) error {
	if !bytes.Equal(systemProgram.Key, system.SystemAccount) {
		return solana.InstructionErrorIncorrectProgramID
	}

	if !token.IsProgramKey(tokenProgram.Key) {
		return solana.InstructionErrorIncorrectProgramID
	}

	for _, mint := range mints {
		if token.IsProgramKey(mint.Owner()) && !mint.IsOwnedBy(tokenProgram.Key) {
			return solana.InstructionErrorIncorrectProgramID
		}
	}
	return nil
}

// loadEscrowAccount decodes a checked record and verifies it lives at the
// address its own fields derive.
func loadEscrowAccount(info *runtime.AccountInfo, program ed25519.PublicKey) (*escrow.EscrowAccount, error) {
	if err := checkEscrowAccount(info, program); err != nil {
		return nil, err
	}

	var record escrow.EscrowAccount
	if err := record.Unmarshal(info.Data()); err != nil {
		return nil, escrow.ErrorInvalidAccountData
	}
	return &record, nil
}

func verifyEscrowAddress(info *runtime.AccountInfo, program ed25519.PublicKey, record *escrow.EscrowAccount) error {
	err := escrow.VerifyEscrowAddress(program, info.Key, record.Maker, record.Nonce, record.Bump)
	if err != nil {
		return escrow.ErrorInvalidAddress
	}
	return nil
}

func getTokenBalance(info *runtime.AccountInfo) (uint64, error) {
	var account token.Account
	if !account.Unmarshal(info.Data()) {
		return 0, escrow.ErrorInvalidAccountData
	}
	return account.Amount, nil
}
