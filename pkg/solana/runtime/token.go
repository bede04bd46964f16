package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// tokenProcessor implements the subset of the token programs needed to mint,
// hold, move and close fungible tokens. The extended program additionally
// accepts accounts with an account type tag and trailing extensions.
type tokenProcessor struct {
	program  ed25519.PublicKey
	extended bool
}

// NewTokenProcessor returns a processor for either token program.
func NewTokenProcessor(program ed25519.PublicKey) Processor {
	return &tokenProcessor{
		program:  program,
		extended: bytes.Equal(program, token.Token2022ProgramKey),
	}
}

func (p *tokenProcessor) ProgramID() ed25519.PublicKey {
	return p.program
}

func (p *tokenProcessor) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	ix := ToInstruction(p.program, accounts, data)

	command, err := token.GetCommand(ix)
	if err != nil {
		return token.ErrorInvalidInstruction
	}

	switch command {
	case token.CommandInitializeMint2:
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := token.DecompileInitializeMint2(ix)
		if err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.initializeMint(ctx, accounts[0], decompiled)
	case token.CommandInitializeAccount3:
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := token.DecompileInitializeAccount3(ix)
		if err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.initializeAccount(ctx, accounts[0], accounts[1], decompiled.Owner)
	case token.CommandInitializeImmutableOwner:
		if !p.extended || len(data) != 1 {
			return token.ErrorInvalidInstruction
		}
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return p.initializeImmutableOwner(accounts[0])
	case token.CommandTransfer:
		if len(accounts) < 3 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := token.DecompileTransfer(ix)
		if err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.transfer(accounts[0], accounts[1], accounts[2], decompiled.Amount)
	case token.CommandMintTo:
		if len(accounts) < 3 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		decompiled, err := token.DecompileMintTo(ix)
		if err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.mintTo(accounts[0], accounts[1], accounts[2], decompiled.Amount)
	case token.CommandCloseAccount:
		if len(accounts) < 3 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		if _, err := token.DecompileCloseAccount(ix); err != nil {
			return token.ErrorInvalidInstruction
		}
		return p.closeAccount(accounts[0], accounts[1], accounts[2])
	}

	return token.ErrorInvalidInstruction
}

func (p *tokenProcessor) initializeMint(ctx *InvokeContext, mintInfo *AccountInfo, args *token.DecompiledInitializeMint2) error {
	if !mintInfo.IsOwnedBy(p.program) {
		return solana.InstructionErrorIncorrectProgramID
	}

	data := mintInfo.Data()
	if !p.hasInitializableLayout(data, token.MintSize, token.ExtendedAccountTypeMint) {
		return solana.InstructionErrorInvalidAccountData
	}

	var mint token.Mint
	mint.Unmarshal(data)
	if mint.IsInitialized {
		return token.ErrorAlreadyInUse
	}

	if !ctx.Rent().IsExempt(mintInfo.Lamports(), uint64(len(data))) {
		return token.ErrorNotRentExempt
	}

	mint = token.Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	copy(data, mint.Marshal())
	if len(data) > token.ExtendedAccountTypeOffset {
		data[token.ExtendedAccountTypeOffset] = byte(token.ExtendedAccountTypeMint)
	}
	return nil
}

func (p *tokenProcessor) initializeAccount(ctx *InvokeContext, accountInfo, mintInfo *AccountInfo, owner ed25519.PublicKey) error {
	if !accountInfo.IsOwnedBy(p.program) {
		return solana.InstructionErrorIncorrectProgramID
	}

	data := accountInfo.Data()
	if !p.hasInitializableLayout(data, token.AccountSize, token.ExtendedAccountTypeAccount) {
		return solana.InstructionErrorInvalidAccountData
	}

	var account token.Account
	account.Unmarshal(data)
	if account.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}

	if !ctx.Rent().IsExempt(accountInfo.Lamports(), uint64(len(data))) {
		return token.ErrorNotRentExempt
	}

	if _, err := p.loadMint(mintInfo); err != nil {
		return token.ErrorInvalidMint
	}

	account = token.Account{
		Mint:  mintInfo.Key,
		Owner: owner,
		State: token.AccountStateInitialized,
	}
	copy(data, account.Marshal())
	if len(data) > token.ExtendedAccountTypeOffset {
		data[token.ExtendedAccountTypeOffset] = byte(token.ExtendedAccountTypeAccount)
	}
	return nil
}

func (p *tokenProcessor) initializeImmutableOwner(accountInfo *AccountInfo) error {
	if !accountInfo.IsOwnedBy(p.program) {
		return solana.InstructionErrorIncorrectProgramID
	}

	data := accountInfo.Data()
	if !p.hasInitializableLayout(data, token.AccountSize, token.ExtendedAccountTypeAccount) {
		return solana.InstructionErrorInvalidAccountData
	}

	var account token.Account
	account.Unmarshal(data)
	if account.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}

	if !token.PutImmutableOwnerExtension(data) {
		return solana.InstructionErrorInvalidAccountData
	}
	return nil
}

func (p *tokenProcessor) transfer(sourceInfo, destinationInfo, ownerInfo *AccountInfo, amount uint64) error {
	source, err := p.loadAccount(sourceInfo)
	if err != nil {
		return err
	}
	destination, err := p.loadAccount(destinationInfo)
	if err != nil {
		return err
	}

	if source.State == token.AccountStateFrozen || destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}

	if source.Amount < amount {
		return token.ErrorInsufficientFunds
	}

	if !bytes.Equal(source.Mint, destination.Mint) {
		return token.ErrorMintMismatch
	}

	if err := validateOwner(source.Owner, ownerInfo); err != nil {
		return err
	}

	if bytes.Equal(sourceInfo.Key, destinationInfo.Key) {
		return nil
	}

	if destination.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	source.Amount -= amount
	destination.Amount += amount

	storeAccount(sourceInfo, source)
	storeAccount(destinationInfo, destination)
	return nil
}

func (p *tokenProcessor) mintTo(mintInfo, destinationInfo, authorityInfo *AccountInfo, amount uint64) error {
	destination, err := p.loadAccount(destinationInfo)
	if err != nil {
		return err
	}

	if destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}

	if !bytes.Equal(destination.Mint, mintInfo.Key) {
		return token.ErrorMintMismatch
	}

	mint, err := p.loadMint(mintInfo)
	if err != nil {
		return err
	}

	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}

	if err := validateOwner(mint.MintAuthority, authorityInfo); err != nil {
		return err
	}

	if mint.Supply > math.MaxUint64-amount || destination.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	mint.Supply += amount
	destination.Amount += amount

	copy(mintInfo.Data(), mint.Marshal())
	storeAccount(destinationInfo, destination)
	return nil
}

func (p *tokenProcessor) closeAccount(accountInfo, destinationInfo, ownerInfo *AccountInfo) error {
	if bytes.Equal(accountInfo.Key, destinationInfo.Key) {
		return solana.InstructionErrorInvalidAccountData
	}

	account, err := p.loadAccount(accountInfo)
	if err != nil {
		return err
	}

	if account.Amount != 0 {
		return token.ErrorNonNativeHasBalance
	}

	authority := account.Owner
	if len(account.CloseAuthority) > 0 {
		authority = account.CloseAuthority
	}
	if err := validateOwner(authority, ownerInfo); err != nil {
		return err
	}

	lamports := accountInfo.Lamports()
	if err := accountInfo.SubLamports(lamports); err != nil {
		return err
	}
	if err := destinationInfo.AddLamports(lamports); err != nil {
		return err
	}

	if err := accountInfo.Resize(0); err != nil {
		return err
	}
	accountInfo.Assign(system.SystemAccount)
	return nil
}

// hasInitializableLayout accepts the legacy size, and for the extended
// program anything with room for the account type tag that isn't already
// tagged as a different kind of account.
func (p *tokenProcessor) hasInitializableLayout(data []byte, legacySize int, tag token.ExtendedAccountType) bool {
	if len(data) == legacySize {
		return true
	}

	if !p.extended {
		return false
	}

	actual, ok := token.GetExtendedAccountType(data)
	if !ok {
		return false
	}
	return actual == token.ExtendedAccountTypeUninitialized || actual == tag
}

func (p *tokenProcessor) hasInitializedLayout(data []byte, legacySize int, tag token.ExtendedAccountType) bool {
	if len(data) == legacySize {
		return true
	}

	if !p.extended {
		return false
	}

	actual, ok := token.GetExtendedAccountType(data)
	return ok && actual == tag
}

func (p *tokenProcessor) loadMint(info *AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(p.program) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	if !p.hasInitializedLayout(info.Data(), token.MintSize, token.ExtendedAccountTypeMint) {
		return nil, solana.InstructionErrorInvalidAccountData
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data()) || !mint.IsInitialized {
		return nil, token.ErrorUninitializedState
	}
	return &mint, nil
}

func (p *tokenProcessor) loadAccount(info *AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(p.program) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	if !p.hasInitializedLayout(info.Data(), token.AccountSize, token.ExtendedAccountTypeAccount) {
		return nil, solana.InstructionErrorInvalidAccountData
	}

	var account token.Account
	if !account.Unmarshal(info.Data()) || account.State == token.AccountStateUninitialized {
		return nil, token.ErrorUninitializedState
	}
	return &account, nil
}

func storeAccount(info *AccountInfo, account *token.Account) {
	copy(info.Data(), account.Marshal())
}

func validateOwner(expected ed25519.PublicKey, ownerInfo *AccountInfo) error {
	if !bytes.Equal(expected, ownerInfo.Key) {
		return token.ErrorOwnerMismatch
	}

	if !ownerInfo.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	return nil
}
