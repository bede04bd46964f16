package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
)

const (
	tableName = "solana__runtime_account"
)

type model struct {
	Id            sql.NullInt64 `db:"id"`
	Address       string        `db:"address"`
	Lamports      int64         `db:"lamports"`
	Owner         string        `db:"owner"`
	Data          []byte        `db:"data"`
	Executable    bool          `db:"executable"`
	LastUpdatedAt time.Time     `db:"last_updated_at"`
}

func toModel(obj *accountdb.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &model{
		Address:       obj.Address,
		Lamports:      int64(obj.Lamports),
		Owner:         obj.Owner,
		Data:          data,
		Executable:    obj.Executable,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *accountdb.Record {
	return &accountdb.Record{
		Id:            uint64(obj.Id.Int64),
		Address:       obj.Address,
		Lamports:      uint64(obj.Lamports),
		Owner:         obj.Owner,
		Data:          obj.Data,
		Executable:    obj.Executable,
		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + tableName + `
		(address, lamports, owner, data, executable, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)

		ON CONFLICT (address)
		DO UPDATE
			SET lamports = $2, owner = $3, data = $4, executable = $5, last_updated_at = $6
			WHERE ` + tableName + `.address = $1

		RETURNING id, address, lamports, owner, data, executable, last_updated_at
	`

	m.LastUpdatedAt = time.Now()

	return tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Lamports,
		m.Owner,
		m.Data,
		m.Executable,
		m.LastUpdatedAt,
	).StructScan(m)
}

func dbDelete(ctx context.Context, tx *sqlx.Tx, address string) error {
	query := `DELETE FROM ` + tableName + `
		WHERE address = $1
	`

	_, err := tx.ExecContext(ctx, query, address)
	return err
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	var res model
	query := `SELECT id, address, lamports, owner, data, executable, last_updated_at FROM ` + tableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, &res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, accountdb.ErrAccountNotFound)
	}
	return &res, nil
}
