package escrow

import (
	"crypto/ed25519"
	"errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

var (
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	// PROGRAM_ADDRESS is the well-known deployment of the escrow program. The
	// processor and the bindings take the program id as a parameter, so other
	// deployments can be targeted with the same code.
	PROGRAM_ADDRESS = mustBase58Decode("22222222222222222222222222222222222222222222")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
)

// Custom program errors. The numbering is part of the program's interface.
const (
	ErrorNotRentExempt solana.CustomError = iota
	ErrorNotSigner
	ErrorInvalidOwner
	ErrorInvalidAccountData
	ErrorInvalidAddress
	ErrorInvalidAmount
	ErrorInvalidMaker
	ErrorInvalidAssetType
)

var customErrorNames = map[solana.CustomError]string{
	ErrorNotRentExempt:      "NotRentExempt",
	ErrorNotSigner:          "NotSigner",
	ErrorInvalidOwner:       "InvalidOwner",
	ErrorInvalidAccountData: "InvalidAccountData",
	ErrorInvalidAddress:     "InvalidAddress",
	ErrorInvalidAmount:      "InvalidAmount",
	ErrorInvalidMaker:       "InvalidMaker",
	ErrorInvalidAssetType:   "InvalidAssetType",
}

// GetCustomErrorName returns the name of an escrow program error code
func GetCustomErrorName(code solana.CustomError) (string, bool) {
	name, ok := customErrorNames[code]
	return name, ok
}
