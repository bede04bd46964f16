package accountdb

import (
	"bytes"
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// Record is the persisted state of a single account. Addresses and owners
// are base58 encoded.
type Record struct {
	Id            uint64
	Address       string
	Lamports      uint64
	Owner         string
	Data          []byte
	Executable    bool
	LastUpdatedAt time.Time
}

type Store interface {
	// Get gets the latest state of the account at address
	//
	// ErrAccountNotFound is returned if the account has never been saved, or
	// was deleted.
	Get(ctx context.Context, address string) (*Record, error)

	// Save upserts every record in updates and deletes every address in
	// deletes. Either everything is persisted, or nothing is.
	Save(ctx context.Context, updates []*Record, deletes []string) error
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}

	if r.Lamports == 0 {
		return errors.New("zero lamport accounts cannot be saved")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id:            r.Id,
		Address:       r.Address,
		Lamports:      r.Lamports,
		Owner:         r.Owner,
		Data:          bytes.Clone(r.Data),
		Executable:    r.Executable,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id
	dst.Address = r.Address
	dst.Lamports = r.Lamports
	dst.Owner = r.Owner
	dst.Data = bytes.Clone(r.Data)
	dst.Executable = r.Executable
	dst.LastUpdatedAt = r.LastUpdatedAt
}
