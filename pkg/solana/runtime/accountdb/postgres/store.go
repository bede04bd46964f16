package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed accountdb.Store
func New(db *sql.DB) accountdb.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements accountdb.Store.Get
func (s *store) Get(ctx context.Context, address string) (*accountdb.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// Save implements accountdb.Store.Save
func (s *store) Save(ctx context.Context, updates []*accountdb.Record, deletes []string) error {
	models := make([]*model, len(updates))
	for i, record := range updates {
		obj, err := toModel(record)
		if err != nil {
			return err
		}
		models[i] = obj
	}

	err := pgutil.ExecuteRetryable(func() error {
		return pgutil.ExecuteInTx(ctx, s.db, sql.LevelRepeatableRead, func(tx *sqlx.Tx) error {
			for _, obj := range models {
				if err := obj.dbPut(ctx, tx); err != nil {
					return errors.Wrapf(err, "error saving account %s", obj.Address)
				}
			}

			for _, address := range deletes {
				if err := dbDelete(ctx, tx, address); err != nil {
					return errors.Wrapf(err, "error deleting account %s", address)
				}
			}

			return nil
		})
	})
	if err != nil {
		return err
	}

	for i, obj := range models {
		fromModel(obj).CopyTo(updates[i])
	}
	return nil
}
