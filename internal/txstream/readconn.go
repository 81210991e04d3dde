// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txstream

import (
	"context"
	"errors"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/jackc/pgx/v5"
	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"github.com/luxfi/chainindexer/internal/dbpg"
)

// OnChainReader is the narrow boundary a real on-chain state reader would
// implement; kept as an interface so the cached wrapper below never
// depends on a concrete RPC client (an external collaborator, SPEC_FULL.md
// §1).
type OnChainReader interface {
	ReadResource(ctx context.Context, address, typeStr string) ([]byte, error)
}

// CachedReadConn wraps an OnChainReader with a fastcache read-through
// cache, bounding the cost of the delegator-balance extractor's repeated
// resource reads (SPEC_FULL.md DOMAIN STACK). Implements stake.ReadConn.
type CachedReadConn struct {
	reader OnChainReader
	cache  *fastcache.Cache
}

// NewCachedReadConn builds a cache of maxBytes capacity in front of reader.
func NewCachedReadConn(reader OnChainReader, maxBytes int) *CachedReadConn {
	return &CachedReadConn{
		reader: reader,
		cache:  fastcache.New(maxBytes),
	}
}

func (c *CachedReadConn) ReadResource(ctx context.Context, address, typeStr string) ([]byte, error) {
	key := []byte(address + "|" + typeStr)
	if v, ok := c.cache.HasGet(nil, key); ok {
		return v, nil
	}

	data, err := c.reader.ReadResource(ctx, address, typeStr)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, data)
	return data, nil
}

// PostgresOnChainReader is the one production OnChainReader. The Rust
// original's parse_stake_data takes an Option<DbPoolConnection<'_>> for
// exactly this seam: when a delegation pool's resource write didn't land in
// the current batch, the delegator-balance extractor falls back to the
// already-committed delegated_staking_pools row for that pool address
// instead of skipping the delegator's shares observation outright.
type PostgresOnChainReader struct {
	pool *dbpg.Pool
}

// NewPostgresOnChainReader builds a reader against the pool's own
// already-committed delegated_staking_pools table.
func NewPostgresOnChainReader(pool *dbpg.Pool) *PostgresOnChainReader {
	return &PostgresOnChainReader{pool: pool}
}

// ReadResource looks up the committed pool row for address, regardless of
// typeStr: the module's only fallback resource is the delegation pool
// itself, so there is exactly one table to consult. A missing row is a
// fatal (non-retryable) condition — the extractor only calls this once the
// current batch has already failed to resolve the pool, so there is no
// point retrying a row that was never written.
func (r *PostgresOnChainReader) ReadResource(ctx context.Context, address, typeStr string) ([]byte, error) {
	var insertedAt []byte
	err := r.pool.QueryRow(ctx,
		`SELECT first_transaction_version::text FROM delegated_staking_pools WHERE staking_pool_address = $1`,
		address,
	).Scan(&insertedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chainindexererrors.NewFatalDBError("on-chain resource read: pool "+address+" not found", err)
		}
		if dbpg.IsTransientPgError(err) {
			return nil, chainindexererrors.NewTransientDBError("on-chain resource read", err)
		}
		return nil, chainindexererrors.NewFatalDBError("on-chain resource read", err)
	}
	return insertedAt, nil
}
