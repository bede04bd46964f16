package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// Processor is a program the runtime can execute.
type Processor interface {
	ProgramID() ed25519.PublicKey

	Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error
}

// AccountInfo is a program's view of one account passed to an instruction.
// Multiple infos for the same key share the underlying account.
type AccountInfo struct {
	Key        ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	account *Account
}

// NewAccountInfo wraps account outside of any transaction, which is mostly
// useful for exercising program checks directly.
func NewAccountInfo(key ed25519.PublicKey, isSigner, isWritable bool, account *Account) *AccountInfo {
	return &AccountInfo{
		Key:        key,
		IsSigner:   isSigner,
		IsWritable: isWritable,
		account:    account,
	}
}

func (a *AccountInfo) Lamports() uint64 {
	return a.account.Lamports
}

func (a *AccountInfo) Owner() ed25519.PublicKey {
	return a.account.Owner
}

// Data returns the account data. Programs may modify it in place.
func (a *AccountInfo) Data() []byte {
	return a.account.Data
}

func (a *AccountInfo) Executable() bool {
	return a.account.Executable
}

func (a *AccountInfo) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.account.Owner, program)
}

// IsEmpty reports whether the account holds nothing and belongs to the
// native transfer program.
func (a *AccountInfo) IsEmpty() bool {
	return a.account.Lamports == 0 && len(a.account.Data) == 0 && a.IsOwnedBy(system.SystemAccount)
}

func (a *AccountInfo) AddLamports(amount uint64) error {
	if a.account.Lamports > math.MaxUint64-amount {
		return solana.InstructionErrorArithmeticOverflow
	}
	a.account.Lamports += amount
	return nil
}

func (a *AccountInfo) SubLamports(amount uint64) error {
	if a.account.Lamports < amount {
		return solana.InstructionErrorInsufficientFunds
	}
	a.account.Lamports -= amount
	return nil
}

// Resize grows or shrinks the account data, zero filling any new bytes.
func (a *AccountInfo) Resize(size int) error {
	if size < 0 || size > system.MaxPermittedDataLength {
		return solana.InstructionErrorInvalidRealloc
	}

	if size <= len(a.account.Data) {
		a.account.Data = a.account.Data[:size:size]
		return nil
	}

	resized := make([]byte, size)
	copy(resized, a.account.Data)
	a.account.Data = resized
	return nil
}

func (a *AccountInfo) Assign(owner ed25519.PublicKey) {
	a.account.Owner = bytes.Clone(owner)
}

// Close returns the account to the native transfer program with no data.
// Lamports must already have been moved out for the account to be purged.
func (a *AccountInfo) Close() {
	a.account.Data = nil
	a.account.Owner = system.SystemAccount
}

// Signer proves that the executing program controls a derived address. It can
// only be obtained through InvokeContext.NewSigner.
type Signer struct {
	address ed25519.PublicKey
	program ed25519.PublicKey
}

func (s *Signer) Address() ed25519.PublicKey {
	if s == nil {
		return nil
	}
	return s.address
}

type frame struct {
	program  ed25519.PublicKey
	accounts []*AccountInfo

	// Unique keys in first-seen order, with the merged writable privilege
	// and the state at the start of the frame (or the last CPI).
	keys     []string
	writable map[string]bool
	pre      map[string]*Account
}

func newFrame(program ed25519.PublicKey, accounts []*AccountInfo) *frame {
	f := &frame{
		program:  program,
		accounts: accounts,
		writable: make(map[string]bool),
		pre:      make(map[string]*Account),
	}

	for _, info := range accounts {
		key := string(info.Key)
		if _, ok := f.writable[key]; !ok {
			f.keys = append(f.keys, key)
		}
		f.writable[key] = f.writable[key] || info.IsWritable
	}

	f.snapshot()
	return f
}

func (f *frame) snapshot() {
	for _, info := range f.accounts {
		f.pre[string(info.Key)] = info.account.Clone()
	}
}

func (f *frame) find(key ed25519.PublicKey) *AccountInfo {
	var found *AccountInfo
	for _, info := range f.accounts {
		if !bytes.Equal(info.Key, key) {
			continue
		}

		if found == nil {
			found = &AccountInfo{Key: info.Key, account: info.account}
		}
		found.IsSigner = found.IsSigner || info.IsSigner
		found.IsWritable = found.IsWritable || info.IsWritable
	}
	return found
}

// verify checks the changes made since the last snapshot against the
// privileges of the frame's program.
func (f *frame) verify() error {
	var credits, debits uint64
	for _, key := range f.keys {
		pre := f.pre[key]
		post := f.post(key)
		writable := f.writable[key]

		if pre.Executable {
			if !pre.equal(post) {
				return solana.InstructionErrorExecutableModified
			}
			continue
		}

		ownedByProgram := bytes.Equal(pre.Owner, f.program)

		if !bytes.Equal(pre.Owner, post.Owner) {
			if !writable || !ownedByProgram || !isZeroed(post.Data) || post.Executable {
				return solana.InstructionErrorModifiedProgramID
			}
		}

		if pre.Lamports != post.Lamports {
			if !writable {
				return solana.InstructionErrorReadonlyLamportChange
			}
			if post.Lamports < pre.Lamports && !ownedByProgram {
				return solana.InstructionErrorExternalAccountLamportSpend
			}
		}

		if !bytes.Equal(pre.Data, post.Data) {
			if !writable {
				return solana.InstructionErrorReadonlyDataModified
			}
			if !ownedByProgram {
				return solana.InstructionErrorExternalAccountDataModified
			}
		}

		if post.Lamports >= pre.Lamports {
			if credits > math.MaxUint64-(post.Lamports-pre.Lamports) {
				return solana.InstructionErrorArithmeticOverflow
			}
			credits += post.Lamports - pre.Lamports
		} else {
			if debits > math.MaxUint64-(pre.Lamports-post.Lamports) {
				return solana.InstructionErrorArithmeticOverflow
			}
			debits += pre.Lamports - post.Lamports
		}
	}

	if credits != debits {
		return solana.InstructionErrorUnbalancedInstruction
	}
	return nil
}

func (f *frame) post(key string) *Account {
	for _, info := range f.accounts {
		if string(info.Key) == key {
			return info.account
		}
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// InvokeContext is handed to a program for the duration of one instruction,
// including any nested invocations it makes.
type InvokeContext struct {
	ctx      context.Context
	log      *logrus.Entry
	bank     *Bank
	rent     system.Rent
	maxDepth int

	frames []*frame
}

func (c *InvokeContext) Context() context.Context {
	return c.ctx
}

// Log returns a logger scoped to the currently executing program.
func (c *InvokeContext) Log() *logrus.Entry {
	return c.log.WithField("program", base58.Encode(c.ProgramID()))
}

// ProgramID is the id of the currently executing program.
func (c *InvokeContext) ProgramID() ed25519.PublicKey {
	return c.current().program
}

func (c *InvokeContext) Rent() system.Rent {
	return c.rent
}

// Depth is the number of programs on the invocation stack.
func (c *InvokeContext) Depth() int {
	return len(c.frames)
}

// NewSigner derives the program address for seeds, which must end with the
// bump, under the currently executing program.
func (c *InvokeContext) NewSigner(seeds ...[]byte) (*Signer, error) {
	program := c.ProgramID()
	address, err := solana.CreateProgramAddress(program, seeds...)
	if err != nil {
		return nil, solana.InstructionErrorInvalidSeeds
	}

	return &Signer{
		address: address,
		program: program,
	}, nil
}

// Invoke executes ix as a nested call. Accounts must already be available to
// the caller, and privileges can't be escalated except by signers derived by
// the calling program.
func (c *InvokeContext) Invoke(ix solana.Instruction, signers ...*Signer) error {
	caller := c.current()

	if err := caller.verify(); err != nil {
		return err
	}

	if c.Depth() >= c.maxDepth {
		return solana.InstructionErrorCallDepth
	}

	processor, ok := c.bank.getProgram(ix.Program)
	if !ok {
		return solana.InstructionErrorUnsupportedProgramID
	}

	signed := make(map[string]struct{})
	for _, signer := range signers {
		if signer == nil || !bytes.Equal(signer.program, caller.program) {
			continue
		}
		signed[string(signer.address)] = struct{}{}
	}

	infos := make([]*AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		callerInfo := caller.find(meta.PublicKey)
		if callerInfo == nil {
			return solana.InstructionErrorMissingAccount
		}

		if meta.IsWritable && !callerInfo.IsWritable {
			return solana.InstructionErrorReadonlyDataModified
		}

		if meta.IsSigner && !callerInfo.IsSigner {
			if _, ok := signed[string(meta.PublicKey)]; !ok {
				return solana.InstructionErrorMissingRequiredSignature
			}
		}

		infos[i] = &AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			account:    callerInfo.account,
		}
	}

	if err := c.execute(processor, infos, ix.Data); err != nil {
		return err
	}

	caller.snapshot()
	return nil
}

func (c *InvokeContext) execute(processor Processor, accounts []*AccountInfo, data []byte) error {
	f := newFrame(processor.ProgramID(), accounts)

	c.frames = append(c.frames, f)
	defer func() {
		c.frames = c.frames[:len(c.frames)-1]
	}()

	if err := processor.Process(c, accounts, data); err != nil {
		return err
	}

	return f.verify()
}

func (c *InvokeContext) current() *frame {
	return c.frames[len(c.frames)-1]
}

// ToInstruction rebuilds an instruction from what a program received, which
// lets processors reuse the instruction decoders.
func ToInstruction(program ed25519.PublicKey, accounts []*AccountInfo, data []byte) solana.Instruction {
	metas := make([]solana.AccountMeta, len(accounts))
	for i, info := range accounts {
		metas[i] = solana.AccountMeta{
			PublicKey:  info.Key,
			IsSigner:   info.IsSigner,
			IsWritable: info.IsWritable,
		}
	}
	return solana.NewInstruction(program, data, metas...)
}
