package runtime

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	xsync "github.com/code-payments/code-escrow/pkg/sync"
)

const (
	metricsStructName = "runtime.bank"

	instructionSuccessMetricName = "solana_runtime_instruction_ok"
	instructionFailureMetricName = "solana_runtime_instruction_failed"

	accountLockStripes = 1024
)

var (
	ErrNotTokenAccount = errors.New("not a token account")
)

// Bank executes transactions against accounts persisted in an account db.
// Transactions are all-or-nothing. Transactions sharing an account run one at
// a time, while those over disjoint accounts run concurrently.
type Bank struct {
	log  *logrus.Entry
	conf *conf

	store accountdb.Store

	programsMu sync.RWMutex
	programs   map[string]Processor

	accountLocks *xsync.StripedLock
}

// NewBank returns a bank with the native transfer, token and associated token
// programs registered.
func NewBank(store accountdb.Store, configProvider ConfigProvider) *Bank {
	b := &Bank{
		log:      logrus.StandardLogger().WithField("type", "solana/runtime/bank"),
		conf:     configProvider(),
		store:    store,
		programs: make(map[string]Processor),

		accountLocks: xsync.NewStripedLock(accountLockStripes),
	}

	b.RegisterProgram(NewSystemProcessor())
	b.RegisterProgram(NewTokenProcessor(token.ProgramKey))
	b.RegisterProgram(NewTokenProcessor(token.Token2022ProgramKey))
	b.RegisterProgram(NewAssociatedTokenProcessor())

	return b
}

// RegisterProgram makes processor invokable under its program id, replacing
// any previous registration.
func (b *Bank) RegisterProgram(processor Processor) {
	b.programsMu.Lock()
	defer b.programsMu.Unlock()

	b.programs[string(processor.ProgramID())] = processor
}

func (b *Bank) getProgram(program ed25519.PublicKey) (Processor, bool) {
	b.programsMu.RLock()
	defer b.programsMu.RUnlock()

	processor, ok := b.programs[string(program)]
	return processor, ok
}

// Rent returns the rent parameters programs are executed with.
func (b *Bank) Rent(ctx context.Context) system.Rent {
	return system.Rent{
		LamportsPerByteYear: b.conf.lamportsPerByteYear.Get(ctx),
		ExemptionThreshold:  b.conf.exemptionThreshold.Get(ctx),
	}
}

// ProcessTransaction executes instructions in order, on behalf of signers. If
// any instruction fails, a solana.InstructionError is returned and no account
// is modified.
func (b *Bank) ProcessTransaction(ctx context.Context, signers []ed25519.PublicKey, instructions ...solana.Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ProcessTransaction")
	defer tracer.End()

	log := b.log.WithField("method", "ProcessTransaction")

	unlock := b.lockAccounts(instructions)
	defer unlock()

	tx, err := b.loadTransaction(ctx, instructions)
	if err != nil {
		log.WithError(err).Warn("failure loading accounts")
		tracer.OnError(err)
		return err
	}

	signed := make(map[string]struct{})
	for _, signer := range signers {
		signed[string(signer)] = struct{}{}
	}

	rent := b.Rent(ctx)
	maxDepth := int(b.conf.maxInvokeDepth.Get(ctx))

	for i, ix := range instructions {
		invokeCtx := &InvokeContext{
			ctx:      ctx,
			log:      b.log,
			bank:     b,
			rent:     rent,
			maxDepth: maxDepth,
		}

		err := b.processInstruction(invokeCtx, tx, signed, ix)
		if err != nil {
			metrics.RecordCount(ctx, instructionFailureMetricName, 1)

			ixErr := solana.InstructionError{Index: i, Err: err}
			log.WithError(ixErr).
				WithField("program", base58.Encode(ix.Program)).
				Debug("instruction failed")
			tracer.OnError(ixErr)
			return ixErr
		}

		metrics.RecordCount(ctx, instructionSuccessMetricName, 1)
	}

	if err := b.commit(ctx, tx); err != nil {
		log.WithError(err).Warn("failure committing accounts")
		tracer.OnError(err)
		return err
	}
	return nil
}

func (b *Bank) processInstruction(invokeCtx *InvokeContext, tx *transaction, signed map[string]struct{}, ix solana.Instruction) error {
	processor, ok := b.getProgram(ix.Program)
	if !ok {
		return solana.InstructionErrorUnsupportedProgramID
	}

	// Privileges are merged across duplicate keys within an instruction
	isSigner := make(map[string]bool)
	isWritable := make(map[string]bool)
	for _, meta := range ix.Accounts {
		key := string(meta.PublicKey)
		isSigner[key] = isSigner[key] || meta.IsSigner
		isWritable[key] = isWritable[key] || meta.IsWritable
	}

	infos := make([]*AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		key := string(meta.PublicKey)
		if isSigner[key] {
			if _, ok := signed[key]; !ok {
				return solana.InstructionErrorMissingRequiredSignature
			}
		}

		infos[i] = &AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   isSigner[key],
			IsWritable: isWritable[key],
			account:    tx.accounts[key],
		}
	}

	return invokeCtx.execute(processor, infos, ix.Data)
}

// GetAccount returns the committed state of address. Addresses that were never
// funded read as empty accounts owned by the native transfer program.
func (b *Bank) GetAccount(ctx context.Context, address ed25519.PublicKey) (*Account, error) {
	if _, ok := b.getProgram(address); ok {
		return newProgramAccount(), nil
	}

	record, err := b.store.Get(ctx, base58.Encode(address))
	if err == accountdb.ErrAccountNotFound {
		return newEmptyAccount(), nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "error getting account %s", base58.Encode(address))
	}

	return fromRecord(record)
}

// Exists reports whether address currently holds lamports.
func (b *Bank) Exists(ctx context.Context, address ed25519.PublicKey) (bool, error) {
	account, err := b.GetAccount(ctx, address)
	if err != nil {
		return false, err
	}
	return account.Lamports > 0, nil
}

// GetTokenBalance returns the balance of a token account owned by either
// token program.
func (b *Bank) GetTokenBalance(ctx context.Context, address ed25519.PublicKey) (uint64, error) {
	account, err := b.GetAccount(ctx, address)
	if err != nil {
		return 0, err
	}

	if !token.IsProgramKey(account.Owner) {
		return 0, ErrNotTokenAccount
	}

	var tokenAccount token.Account
	if !tokenAccount.Unmarshal(account.Data) || tokenAccount.State == token.AccountStateUninitialized {
		return 0, ErrNotTokenAccount
	}
	return tokenAccount.Amount, nil
}

// Airdrop credits lamports to address outside of any transaction.
func (b *Bank) Airdrop(ctx context.Context, address ed25519.PublicKey, lamports uint64) error {
	unlock := b.accountLocks.LockAll(address)
	defer unlock()

	account, err := b.GetAccount(ctx, address)
	if err != nil {
		return err
	}
	if account.Executable {
		return errors.New("cannot airdrop to a program account")
	}

	info := &AccountInfo{Key: address, account: account}
	if err := info.AddLamports(lamports); err != nil {
		return err
	}

	return b.store.Save(ctx, []*accountdb.Record{account.toRecord(address)}, nil)
}

// SetAccount overwrites the state of address outside of any transaction.
func (b *Bank) SetAccount(ctx context.Context, address ed25519.PublicKey, account *Account) error {
	unlock := b.accountLocks.LockAll(address)
	defer unlock()

	if b.IsProgram(address) {
		return errors.New("cannot overwrite a program account")
	}

	if account.Lamports == 0 {
		return b.store.Save(ctx, nil, []string{base58.Encode(address)})
	}
	return b.store.Save(ctx, []*accountdb.Record{account.toRecord(address)}, nil)
}

// lockAccounts locks every account the instructions reference. Program
// accounts are immutable and left unlocked, so transactions invoking the same
// programs over disjoint accounts do not contend.
func (b *Bank) lockAccounts(instructions []solana.Instruction) (unlock func()) {
	var keys [][]byte
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			if b.IsProgram(meta.PublicKey) {
				continue
			}
			keys = append(keys, meta.PublicKey)
		}
	}
	return b.accountLocks.LockAll(keys...)
}

// transaction is the working set of accounts for one transaction
type transaction struct {
	keys     []ed25519.PublicKey
	accounts map[string]*Account
	original map[string]*Account
}

func (b *Bank) loadTransaction(ctx context.Context, instructions []solana.Instruction) (*transaction, error) {
	tx := &transaction{
		accounts: make(map[string]*Account),
		original: make(map[string]*Account),
	}

	load := func(key ed25519.PublicKey) error {
		if _, ok := tx.accounts[string(key)]; ok {
			return nil
		}

		account, err := b.GetAccount(ctx, key)
		if err != nil {
			return err
		}

		tx.keys = append(tx.keys, key)
		tx.accounts[string(key)] = account
		tx.original[string(key)] = account.Clone()
		return nil
	}

	for _, ix := range instructions {
		if err := load(ix.Program); err != nil {
			return nil, err
		}
		for _, meta := range ix.Accounts {
			if err := load(meta.PublicKey); err != nil {
				return nil, err
			}
		}
	}

	return tx, nil
}

func (b *Bank) commit(ctx context.Context, tx *transaction) error {
	var updates []*accountdb.Record
	var deletes []string

	for _, key := range tx.keys {
		account := tx.accounts[string(key)]
		original := tx.original[string(key)]
		if account.equal(original) {
			continue
		}

		if account.Lamports == 0 {
			if original.Lamports > 0 {
				deletes = append(deletes, base58.Encode(key))
			}
			continue
		}

		updates = append(updates, account.toRecord(key))
	}

	if len(updates) == 0 && len(deletes) == 0 {
		return nil
	}

	return b.store.Save(ctx, updates, deletes)
}

// IsProgram reports whether address is a registered program.
func (b *Bank) IsProgram(address ed25519.PublicKey) bool {
	_, ok := b.getProgram(address)
	return ok
}
