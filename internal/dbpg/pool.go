// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dbpg wraps a pgxpool.Pool with the chunked-concurrent-write
// behavior ChunkedWriter (SPEC_FULL.md §4.3) needs, grounded on
// other_examples' postgres_ingest.go and pgxstore/store.go pgx usage.
package dbpg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luxfi/chainindexer/internal/chainindexererrors"
)

// Pool is a thin wrapper over *pgxpool.Pool giving the rest of the module a
// single acquisition point and a place to classify pgx errors into the
// typed taxonomy (SPEC_FULL.md §7).
type Pool struct {
	*pgxpool.Pool
}

// Open establishes a pooled connection, sized per DBConfig.PoolSize.
func Open(ctx context.Context, connString string, poolSize int) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, chainindexererrors.NewConfigError("db_config.connection_string", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, chainindexererrors.NewFatalDBError("open pool", err)
	}
	return &Pool{Pool: pool}, nil
}

// Close releases all pooled connections. Safe to call even if Open failed
// to fully establish connectivity.
func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
