package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/product-api/internal/database"
)

// insertReturningID runs an INSERT and returns the generated id: through
// LastInsertId on MySQL and a RETURNING clause on PostgreSQL.
func insertReturningID(ctx context.Context, db database.DBTX, d database.Dialect, q string, args ...any) (uint64, error) {
	if d == database.Postgres {
		var id uint64
		if err := db.QueryRowContext(ctx, d.Rebind(q)+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// expectAffected converts a zero-row UPDATE/DELETE into ErrNotFound.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
