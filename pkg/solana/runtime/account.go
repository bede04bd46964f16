package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// NativeLoaderKey owns every builtin program account.
var NativeLoaderKey = mustBase58Decode("NativeLoader1111111111111111111111111111111")

// Account is the state of a single address as seen by programs.
type Account struct {
	Lamports   uint64
	Owner      ed25519.PublicKey
	Data       []byte
	Executable bool
}

// newEmptyAccount is what an address that was never funded reads as.
func newEmptyAccount() *Account {
	return &Account{
		Owner: system.SystemAccount,
	}
}

func newProgramAccount() *Account {
	return &Account{
		Lamports:   1,
		Owner:      NativeLoaderKey,
		Executable: true,
	}
}

func (a *Account) Clone() *Account {
	return &Account{
		Lamports:   a.Lamports,
		Owner:      bytes.Clone(a.Owner),
		Data:       bytes.Clone(a.Data),
		Executable: a.Executable,
	}
}

func (a *Account) equal(other *Account) bool {
	return a.Lamports == other.Lamports &&
		bytes.Equal(a.Owner, other.Owner) &&
		bytes.Equal(a.Data, other.Data) &&
		a.Executable == other.Executable
}

func (a *Account) toRecord(address ed25519.PublicKey) *accountdb.Record {
	return &accountdb.Record{
		Address:    base58.Encode(address),
		Lamports:   a.Lamports,
		Owner:      base58.Encode(a.Owner),
		Data:       bytes.Clone(a.Data),
		Executable: a.Executable,
	}
}

func fromRecord(record *accountdb.Record) (*Account, error) {
	owner, err := base58.Decode(record.Owner)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid owner for account %s", record.Address)
	}
	if len(owner) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid owner length for account %s", record.Address)
	}

	return &Account{
		Lamports:   record.Lamports,
		Owner:      owner,
		Data:       bytes.Clone(record.Data),
		Executable: record.Executable,
	}, nil
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
