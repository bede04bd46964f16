package token

import (
	"crypto/ed25519"
	"encoding/binary"

	solbinary "github.com/code-payments/code-escrow/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L39
const MintSize = 82

// AmountOffset is the offset of the amount field within an Account
const AmountOffset = 64

const optionSize = 4

// ExtendedAccountTypeOffset is where the extended token program stores the
// account type tag. Extended mints are padded up to the same offset so both
// kinds of account share it.
//
// Reference: https://github.com/solana-program/token-2022/blob/0b3ee4a29b5e2e2fac1b1b8ac7a5cc3ab4d3cd4c/program/src/extension/mod.rs#L60
const ExtendedAccountTypeOffset = AccountSize

type ExtendedAccountType byte

const (
	ExtendedAccountTypeUninitialized ExtendedAccountType = iota
	ExtendedAccountTypeMint
	ExtendedAccountTypeAccount
)

type ExtensionType uint16

// Reference: https://github.com/solana-program/token-2022/blob/0b3ee4a29b5e2e2fac1b1b8ac7a5cc3ab4d3cd4c/program/src/extension/mod.rs#L1046
const ExtensionTypeImmutableOwner ExtensionType = 7

// ImmutableOwnerAccountSize is the size of an extended token account that
// carries only the immutable owner extension: the legacy layout, the account
// type tag and an empty TLV entry.
const ImmutableOwnerAccountSize = AccountSize + 1 + 2 + 2

// GetExtendedAccountType returns the account type tag of extended token
// program data. False is returned when the data has no room for a tag.
func GetExtendedAccountType(data []byte) (ExtendedAccountType, bool) {
	if len(data) <= ExtendedAccountTypeOffset {
		return ExtendedAccountTypeUninitialized, false
	}
	return ExtendedAccountType(data[ExtendedAccountTypeOffset]), true
}

// PutImmutableOwnerExtension writes an empty immutable owner TLV entry just
// past the account type tag.
func PutImmutableOwnerExtension(data []byte) bool {
	if len(data) < ImmutableOwnerAccountSize {
		return false
	}

	tlv := data[ExtendedAccountTypeOffset+1:]
	binary.LittleEndian.PutUint16(tlv, uint16(ExtensionTypeImmutableOwner))
	binary.LittleEndian.PutUint16(tlv[2:], 0)
	return true
}

// HasImmutableOwnerExtension reports whether the immutable owner TLV entry is
// present.
func HasImmutableOwnerExtension(data []byte) bool {
	if len(data) < ImmutableOwnerAccountSize {
		return false
	}

	tlv := data[ExtendedAccountTypeOffset+1:]
	return ExtensionType(binary.LittleEndian.Uint16(tlv)) == ExtensionTypeImmutableOwner
}

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	/// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	solbinary.PutKey32(b, a.Mint, &offset)
	solbinary.PutKey32(b[offset:], a.Owner, &offset)
	solbinary.PutUint64(b[offset:], a.Amount, &offset)
	solbinary.PutOptionalKey32(b[offset:], a.Delegate, &offset, optionSize)
	solbinary.PutUint8(b[offset:], byte(a.State), &offset)
	solbinary.PutOptionalUint64(b[offset:], a.IsNative, &offset, optionSize)
	solbinary.PutUint64(b[offset:], a.DelegatedAmount, &offset)
	solbinary.PutOptionalKey32(b[offset:], a.CloseAuthority, &offset, optionSize)

	return b
}

// Unmarshal decodes the legacy layout. Extended accounts are accepted, with
// anything past the legacy layout left to the caller.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) < AccountSize {
		return false
	}

	var offset int
	solbinary.GetKey32(b, &a.Mint, &offset)
	solbinary.GetKey32(b[offset:], &a.Owner, &offset)
	solbinary.GetUint64(b[offset:], &a.Amount, &offset)
	solbinary.GetOptionalKey32(b[offset:], &a.Delegate, &offset, optionSize)
	var state uint8
	solbinary.GetUint8(b[offset:], &state, &offset)
	a.State = AccountState(state)
	solbinary.GetOptionalUint64(b[offset:], &a.IsNative, &offset, optionSize)
	solbinary.GetUint64(b[offset:], &a.DelegatedAmount, &offset)
	solbinary.GetOptionalKey32(b[offset:], &a.CloseAuthority, &offset, optionSize)

	return true
}

type Mint struct {
	// Optional authority used to mint new tokens.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals byte
	// Is true if this structure has been initialized
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)

	var offset int
	solbinary.PutOptionalKey32(b, m.MintAuthority, &offset, optionSize)
	solbinary.PutUint64(b[offset:], m.Supply, &offset)
	solbinary.PutUint8(b[offset:], m.Decimals, &offset)
	if m.IsInitialized {
		b[offset] = 1
	}
	offset++
	solbinary.PutOptionalKey32(b[offset:], m.FreezeAuthority, &offset, optionSize)

	return b
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) < MintSize {
		return false
	}

	var offset int
	solbinary.GetOptionalKey32(b, &m.MintAuthority, &offset, optionSize)
	solbinary.GetUint64(b[offset:], &m.Supply, &offset)
	solbinary.GetUint8(b[offset:], &m.Decimals, &offset)
	m.IsInitialized = b[offset] == 1
	offset++
	solbinary.GetOptionalKey32(b[offset:], &m.FreezeAuthority, &offset, optionSize)

	return true
}
