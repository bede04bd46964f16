package escrow

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	EscrowAccountSize = (8 + // nonce
		32 + // maker
		32 + // mint_a
		32 + // mint_b
		8 + // requested_amount
		1) // bump
)

// EscrowAccount is the persisted record of one open trade. The layout carries
// no discriminator: the account type is implied by the owning program and the
// exact size.
type EscrowAccount struct {
	Nonce           uint64
	Maker           ed25519.PublicKey
	MintA           ed25519.PublicKey
	MintB           ed25519.PublicKey
	RequestedAmount uint64
	Bump            uint8
}

func (obj *EscrowAccount) Marshal() []byte {
	data := make([]byte, EscrowAccountSize)

	var offset int
	putUint64(data, obj.Nonce, &offset)
	putKey(data, obj.Maker, &offset)
	putKey(data, obj.MintA, &offset)
	putKey(data, obj.MintB, &offset)
	putUint64(data, obj.RequestedAmount, &offset)
	putUint8(data, obj.Bump, &offset)

	return data
}

func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	getUint64(data, &obj.Nonce, &offset)
	getKey(data, &obj.Maker, &offset)
	getKey(data, &obj.MintA, &offset)
	getKey(data, &obj.MintB, &offset)
	getUint64(data, &obj.RequestedAmount, &offset)
	getUint8(data, &obj.Bump, &offset)

	return nil
}

func (obj *EscrowAccount) String() string {
	return fmt.Sprintf(
		"EscrowAccount{nonce=%d,maker=%s,mint_a=%s,mint_b=%s,requested_amount=%d,bump=%d}",
		obj.Nonce,
		base58.Encode(obj.Maker),
		base58.Encode(obj.MintA),
		base58.Encode(obj.MintB),
		obj.RequestedAmount,
		obj.Bump,
	)
}
