package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// QueryInterceptor is the subset of *sql.DB used by the sub-stores.
type QueryInterceptor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type loggingInterceptor struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewQueryInterceptor wraps db with debug logging of every statement.
func NewQueryInterceptor(db *sql.DB) QueryInterceptor {
	return &loggingInterceptor{db: db, log: zap.S().Named("store")}
}

func (i *loggingInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := i.db.QueryContext(ctx, query, args...)
	i.log.Debugw("query", "sql", query, "args", args, "duration", time.Since(start), "error", err)
	return rows, err
}

func (i *loggingInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := i.db.QueryRowContext(ctx, query, args...)
	i.log.Debugw("query row", "sql", query, "args", args, "duration", time.Since(start))
	return row
}

func (i *loggingInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := i.db.ExecContext(ctx, query, args...)
	i.log.Debugw("exec", "sql", query, "args", args, "duration", time.Since(start), "error", err)
	return res, err
}
