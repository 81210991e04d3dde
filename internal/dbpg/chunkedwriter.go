// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dbpg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is used for any table absent from
// DBConfig.PerTableChunkSize, matching the teacher's pattern of a sane
// built-in default overridable per table.
const DefaultChunkSize = 1000

// BuildFunc renders one chunk of rows into a single SQL statement plus its
// positional arguments. Each of the nine stake query builders is exactly
// one BuildFunc instantiated for its row type.
type BuildFunc[T any] func(rows []T) (sql string, args []any)

// ChunkSize returns the configured chunk size for table, or
// DefaultChunkSize if unset or non-positive.
func ChunkSize(perTable map[string]int, table string) int {
	if n, ok := perTable[table]; ok && n > 0 {
		return n
	}
	return DefaultChunkSize
}

// WriteChunked splits rows into chunkSize-bounded slices and executes one
// build-and-exec per chunk concurrently, joining on the first error
// (SPEC_FULL.md §4.3 / §5). An empty rows slice is a no-op.
func WriteChunked[T any](ctx context.Context, pool *Pool, rows []T, chunkSize int, build BuildFunc[T]) error {
	if len(rows) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		g.Go(func() error {
			sql, args := build(chunk)
			_, err := pool.Exec(gctx, sql, args...)
			if err != nil {
				if IsTransientPgError(err) {
					return chainindexererrors.NewTransientDBError("chunked write", err)
				}
				return chainindexererrors.NewFatalDBError("chunked write", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// IsTransientPgError reports whether err looks like it could succeed on
// retry: connection-level failures and serialization conflicts, not
// constraint violations. Constraint violations are always fatal since the
// monotonicity guard already handles the only legitimate write conflict
// this schema has. Exported so other packages classifying their own pgx
// errors (internal/txstream's PostgresOnChainReader) share one SQLSTATE
// table instead of duplicating it.
func IsTransientPgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return true // connection never reached the server at all
	}
	switch pgErr.Code {
	case "08000", "08003", "08006", "08001", "08004", "57P01", "40001", "40P01":
		return true
	default:
		return false
	}
}
