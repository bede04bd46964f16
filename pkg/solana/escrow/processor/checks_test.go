package processor

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func TestCheckMint_DualFormat(t *testing.T) {
	for _, tc := range []struct {
		name     string
		owner    ed25519.PublicKey
		data     []byte
		expected error
	}{
		{"legacy", token.ProgramKey, make([]byte, token.MintSize), nil},
		{"extended without extensions", token.Token2022ProgramKey, make([]byte, token.MintSize), nil},
		{"extended tagged as mint", token.Token2022ProgramKey, tagged(token.ExtendedAccountTypeOffset+1, token.ExtendedAccountTypeMint), nil},
		{"extended with trailing extensions", token.Token2022ProgramKey, tagged(token.ExtendedAccountTypeOffset+64, token.ExtendedAccountTypeMint), nil},
		{"extended tagged as account", token.Token2022ProgramKey, tagged(token.ExtendedAccountTypeOffset+1, token.ExtendedAccountTypeAccount), escrow.ErrorInvalidAccountData},
		{"extended shorter than tag", token.Token2022ProgramKey, make([]byte, token.ExtendedAccountTypeOffset), escrow.ErrorInvalidAccountData},
		{"legacy with extended layout", token.ProgramKey, tagged(token.ExtendedAccountTypeOffset+1, token.ExtendedAccountTypeMint), escrow.ErrorInvalidAccountData},
		{"unknown owner", system.SystemAccount, make([]byte, token.MintSize), escrow.ErrorInvalidOwner},
	} {
		info := newTestAccountInfo(t, tc.owner, tc.data, false)
		assert.Equal(t, tc.expected, checkMint(info), tc.name)
	}
}

func TestCheckTokenAccount_DualFormat(t *testing.T) {
	for _, tc := range []struct {
		name     string
		owner    ed25519.PublicKey
		data     []byte
		expected error
	}{
		{"legacy", token.ProgramKey, make([]byte, token.AccountSize), nil},
		{"extended without extensions", token.Token2022ProgramKey, make([]byte, token.AccountSize), nil},
		{"extended tagged as account", token.Token2022ProgramKey, tagged(token.ImmutableOwnerAccountSize, token.ExtendedAccountTypeAccount), nil},
		{"extended tagged as mint", token.Token2022ProgramKey, tagged(token.ImmutableOwnerAccountSize, token.ExtendedAccountTypeMint), escrow.ErrorInvalidAccountData},
		{"extended too short", token.Token2022ProgramKey, make([]byte, token.MintSize), escrow.ErrorInvalidAccountData},
		{"legacy too long", token.ProgramKey, tagged(token.ImmutableOwnerAccountSize, token.ExtendedAccountTypeAccount), escrow.ErrorInvalidAccountData},
		{"unknown owner", generateKeys(t, 1)[0], make([]byte, token.AccountSize), escrow.ErrorInvalidOwner},
	} {
		info := newTestAccountInfo(t, tc.owner, tc.data, false)
		assert.Equal(t, tc.expected, checkTokenAccount(info), tc.name)
	}
}

func TestCheckAssociatedTokenAccount(t *testing.T) {
	keys := generateKeys(t, 2)
	wallet, mint := keys[0], keys[1]

	for _, tokenProgram := range []ed25519.PublicKey{token.ProgramKey, token.Token2022ProgramKey} {
		address, _, err := token.GetAssociatedAccountAndBump(wallet, mint, tokenProgram)
		require.NoError(t, err)

		info := runtime.NewAccountInfo(address, false, true, &runtime.Account{
			Lamports: 1,
			Owner:    tokenProgram,
			Data:     make([]byte, token.AccountSize),
		})
		assert.NoError(t, checkAssociatedTokenAccount(info, wallet, mint, tokenProgram))
		assert.Equal(t, escrow.ErrorInvalidAddress, checkAssociatedTokenAccount(info, mint, wallet, tokenProgram))

		info.Key = generateKeys(t, 1)[0]
		assert.Equal(t, escrow.ErrorInvalidAddress, checkAssociatedTokenAccount(info, wallet, mint, tokenProgram))
	}

	// The associated address differs between token programs
	legacy, _, err := token.GetAssociatedAccountAndBump(wallet, mint, token.ProgramKey)
	require.NoError(t, err)
	info := runtime.NewAccountInfo(legacy, false, true, &runtime.Account{
		Lamports: 1,
		Owner:    token.Token2022ProgramKey,
		Data:     make([]byte, token.AccountSize),
	})
	assert.Equal(t, escrow.ErrorInvalidAddress, checkAssociatedTokenAccount(info, wallet, mint, token.Token2022ProgramKey))
}

func TestCheckEscrowAccount(t *testing.T) {
	program := generateKeys(t, 1)[0]

	assert.NoError(t, checkEscrowAccount(newTestAccountInfo(t, program, make([]byte, escrow.EscrowAccountSize), true), program))
	assert.Equal(t, escrow.ErrorInvalidOwner, checkEscrowAccount(newTestAccountInfo(t, system.SystemAccount, make([]byte, escrow.EscrowAccountSize), true), program))
	assert.Equal(t, escrow.ErrorInvalidAccountData, checkEscrowAccount(newTestAccountInfo(t, program, make([]byte, escrow.EscrowAccountSize+1), true), program))
	assert.Equal(t, escrow.ErrorInvalidAccountData, checkEscrowAccount(newTestAccountInfo(t, program, []byte{0}, true), program))
}

func TestCheckSignerAndSystemAccount(t *testing.T) {
	info := newTestAccountInfo(t, system.SystemAccount, nil, true)
	assert.NoError(t, checkSigner(info))
	assert.NoError(t, checkSystemAccount(info))

	info.IsSigner = false
	assert.Equal(t, escrow.ErrorNotSigner, checkSigner(info))

	info = newTestAccountInfo(t, token.ProgramKey, nil, true)
	assert.Equal(t, escrow.ErrorInvalidOwner, checkSystemAccount(info))
}

func TestCloseProgramAccount(t *testing.T) {
	program := generateKeys(t, 1)[0]

	info := newTestAccountInfo(t, program, make([]byte, escrow.EscrowAccountSize), true)
	beneficiary := newTestAccountInfo(t, system.SystemAccount, nil, false)

	require.NoError(t, closeProgramAccount(info, beneficiary))
	assert.True(t, info.IsEmpty())
	assert.EqualValues(t, 2, beneficiary.Lamports())
}

func newTestAccountInfo(t *testing.T, owner ed25519.PublicKey, data []byte, isSigner bool) *runtime.AccountInfo {
	return runtime.NewAccountInfo(generateKeys(t, 1)[0], isSigner, true, &runtime.Account{
		Lamports: 1,
		Owner:    owner,
		Data:     data,
	})
}

func tagged(size int, tag token.ExtendedAccountType) []byte {
	data := make([]byte, size)
	data[token.ExtendedAccountTypeOffset] = byte(tag)
	return data
}
