package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/bantay/core"
)

// DB is the subset of *pgxpool.Pool the adapter uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Adapter struct {
	pool DB
}

var (
	_ core.AuthStorage   = (*Adapter)(nil)
	_ core.DocumentStore = (*Adapter)(nil)
)

func New(pool DB) *Adapter {
	return &Adapter{
		pool: pool,
	}
}
