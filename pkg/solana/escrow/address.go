package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

var (
	EscrowPrefix = []byte("escrow")
)

type GetEscrowAddressArgs struct {
	Program ed25519.PublicKey
	Maker   ed25519.PublicKey
	Nonce   uint64
}

// GetEscrowAddress derives the record address of the maker's trade identified
// by nonce, along with its canonical bump.
func GetEscrowAddress(args *GetEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		args.Program,
		GetEscrowSeeds(args.Maker, args.Nonce)...,
	)
}

// GetEscrowSeeds returns the seeds, without the bump, that derive a record
// address.
func GetEscrowSeeds(maker ed25519.PublicKey, nonce uint64) [][]byte {
	return [][]byte{
		EscrowPrefix,
		maker,
		nonceBytes(nonce),
	}
}

// GetEscrowSignerSeeds returns the full seed sequence, bump included, that a
// record presents when authorizing a transfer out of its vault.
func GetEscrowSignerSeeds(maker ed25519.PublicKey, nonce uint64, bump uint8) [][]byte {
	return append(GetEscrowSeeds(maker, nonce), []byte{bump})
}

// VerifyEscrowAddress recomputes the record address from its stored fields
// and compares it against candidate.
func VerifyEscrowAddress(program, candidate ed25519.PublicKey, maker ed25519.PublicKey, nonce uint64, bump uint8) error {
	return solana.VerifyProgramAddress(program, candidate, bump, GetEscrowSeeds(maker, nonce)...)
}

type GetVaultAddressArgs struct {
	Escrow       ed25519.PublicKey
	Mint         ed25519.PublicKey
	TokenProgram ed25519.PublicKey
}

// GetVaultAddress returns the custody account of a record, which is the
// record's associated token account for the offered mint.
func GetVaultAddress(args *GetVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return token.GetAssociatedAccountAndBump(args.Escrow, args.Mint, args.TokenProgram)
}
