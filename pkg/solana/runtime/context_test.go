package runtime

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

type testProcessor struct {
	program ed25519.PublicKey
	process func(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error
}

func (p *testProcessor) ProgramID() ed25519.PublicKey {
	return p.program
}

func (p *testProcessor) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	return p.process(ctx, accounts, data)
}

func TestInvokeContext_PrivilegeRules(t *testing.T) {
	env := setup(t)
	keys := generateKeys(t, 3)
	program, destination, unrelated := keys[0], keys[1], keys[2]

	derived, bump, err := solana.FindProgramAddressAndBump(program, []byte("test"))
	require.NoError(t, err)
	require.NoError(t, env.bank.Airdrop(env.ctx, derived, 100))
	require.NoError(t, env.bank.Airdrop(env.ctx, destination, 100))

	var depth int
	env.bank.RegisterProgram(&testProcessor{
		program: program,
		process: func(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
			switch data[0] {
			case 0:
				signer, err := ctx.NewSigner([]byte("test"), []byte{bump})
				if err != nil {
					return err
				}
				if !signer.Address().Equal(derived) {
					return solana.InstructionErrorInvalidSeeds
				}
				return ctx.Invoke(system.Transfer(derived, destination, 5), signer)
			case 1:
				return ctx.Invoke(system.Transfer(derived, destination, 5))
			case 2:
				return accounts[1].Resize(1)
			case 3:
				if err := accounts[1].SubLamports(5); err != nil {
					return err
				}
				return accounts[0].AddLamports(5)
			case 4:
				return accounts[1].AddLamports(1)
			case 5:
				signer, err := ctx.NewSigner([]byte("test"), []byte{bump})
				if err != nil {
					return err
				}
				return ctx.Invoke(system.Transfer(derived, unrelated, 5), signer)
			case 6:
				depth = ctx.Depth()
				return ctx.Invoke(solana.NewInstruction(program, data, solana.NewAccountMeta(derived, false)))
			case 7:
				signer, err := ctx.NewSigner([]byte("test"), []byte{bump})
				if err != nil {
					return err
				}
				return ctx.Invoke(system.Transfer(destination, derived, 5), signer)
			}
			return solana.InstructionErrorInvalidInstructionData
		},
	})

	run := func(command byte, destinationWritable bool) error {
		destinationMeta := solana.NewAccountMeta(destination, false)
		if !destinationWritable {
			destinationMeta = solana.NewReadonlyAccountMeta(destination, false)
		}

		return env.bank.ProcessTransaction(
			env.ctx,
			nil,
			solana.NewInstruction(
				program,
				[]byte{command},
				solana.NewAccountMeta(derived, false),
				destinationMeta,
				solana.NewReadonlyAccountMeta(system.SystemAccount, false),
			),
		)
	}

	// Programs can sign for their own derived addresses
	require.NoError(t, run(0, true))
	account, err := env.bank.GetAccount(env.ctx, destination)
	require.NoError(t, err)
	assert.EqualValues(t, 105, account.Lamports)

	assertBuiltinError(t, run(1, true), 0, solana.InstructionErrorMissingRequiredSignature)
	assertBuiltinError(t, run(2, true), 0, solana.InstructionErrorExternalAccountDataModified)
	assertBuiltinError(t, run(2, false), 0, solana.InstructionErrorReadonlyDataModified)
	assertBuiltinError(t, run(3, true), 0, solana.InstructionErrorExternalAccountLamportSpend)
	assertBuiltinError(t, run(4, true), 0, solana.InstructionErrorUnbalancedInstruction)
	assertBuiltinError(t, run(5, true), 0, solana.InstructionErrorMissingAccount)
	assertBuiltinError(t, run(6, true), 0, solana.InstructionErrorCallDepth)
	assert.Equal(t, defaultMaxInvokeDepth, depth)

	// Derived signers don't grant writability, and can't sign for other addresses
	assertBuiltinError(t, run(0, false), 0, solana.InstructionErrorReadonlyDataModified)
	assertBuiltinError(t, run(7, true), 0, solana.InstructionErrorMissingRequiredSignature)

	account, err = env.bank.GetAccount(env.ctx, destination)
	require.NoError(t, err)
	assert.EqualValues(t, 105, account.Lamports)
	account, err = env.bank.GetAccount(env.ctx, derived)
	require.NoError(t, err)
	assert.EqualValues(t, 95, account.Lamports)
}

func TestInvokeContext_InvalidSeeds(t *testing.T) {
	env := setup(t)
	program := generateKeys(t, 1)[0]

	env.bank.RegisterProgram(&testProcessor{
		program: program,
		process: func(ctx *InvokeContext, _ []*AccountInfo, _ []byte) error {
			_, err := ctx.NewSigner(make([]byte, 33))
			return err
		},
	})

	err := env.bank.ProcessTransaction(env.ctx, nil, solana.NewInstruction(program, nil))
	assertBuiltinError(t, err, 0, solana.InstructionErrorInvalidSeeds)
}

func TestAccountInfo_Resize(t *testing.T) {
	info := &AccountInfo{account: newEmptyAccount()}

	require.NoError(t, info.Resize(4))
	copy(info.Data(), []byte{1, 2, 3, 4})
	require.NoError(t, info.Resize(2))
	assert.Equal(t, []byte{1, 2}, info.Data())
	require.NoError(t, info.Resize(3))
	assert.Equal(t, []byte{1, 2, 0}, info.Data())

	assert.Equal(t, solana.InstructionErrorInvalidRealloc, info.Resize(system.MaxPermittedDataLength+1))

	info.Assign(generateKeys(t, 1)[0])
	info.Close()
	assert.Empty(t, info.Data())
	assert.True(t, info.IsEmpty())
}
