package revocation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
)

const existsRevokedTokenQuery = `
SELECT EXISTS (
  SELECT 1 FROM revoked_tokens WHERE token_id=$1
)`

// RowQuerier is satisfied by *pgxpool.Pool and *pgx.Conn.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db RowQuerier
}

func NewPostgresStore(db RowQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Exists(ctx context.Context, tokenID string) (bool, error) {
	var exists bool

	if err := s.db.QueryRow(ctx, existsRevokedTokenQuery, tokenID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres revocation lookup: %w: %w", gatewayerrors.ErrStoreUnavailable, err)
	}

	return exists, nil
}
