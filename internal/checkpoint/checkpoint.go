// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package checkpoint gives ProcessorRuntime a concrete home for "the
// version is stored elsewhere" (spec.md §4.6), backed by the same Postgres
// pool as the row tables, grounded on other_examples' pgxstore singleton-
// row checkpoint upsert pattern.
package checkpoint

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"github.com/luxfi/chainindexer/internal/dbpg"
)

// Store is the interface Runtime consumes; PostgresStore is its one
// production implementation.
type Store interface {
	// Get returns the next version to process for processorName, or
	// ok=false if no checkpoint has been recorded yet.
	Get(ctx context.Context, processorName string) (version uint64, ok bool, err error)
	// Set records the next version to process. When overwrite is false,
	// the write is itself guarded so a stale runtime restart can't regress
	// a checkpoint another instance has already advanced past.
	Set(ctx context.Context, processorName string, version uint64, overwrite bool) error
}

// PostgresStore persists one row per processor name in a
// processor_checkpoints table, mirroring the other_examples checkpoint
// upsert shape (ON CONFLICT ... DO UPDATE on a natural key).
type PostgresStore struct {
	pool *dbpg.Pool
}

func NewPostgresStore(pool *dbpg.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, processorName string) (uint64, bool, error) {
	var version uint64
	err := s.pool.QueryRow(ctx,
		`SELECT next_version FROM processor_checkpoints WHERE processor_name = $1`,
		processorName,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, chainindexererrors.NewTransientDBError("checkpoint get", err)
	}
	return version, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, processorName string, version uint64, overwrite bool) error {
	sql := `INSERT INTO processor_checkpoints (processor_name, next_version)
		VALUES ($1, $2)
		ON CONFLICT (processor_name) DO UPDATE SET next_version = EXCLUDED.next_version`
	if !overwrite {
		sql += ` WHERE processor_checkpoints.next_version <= EXCLUDED.next_version`
	}

	if _, err := s.pool.Exec(ctx, sql, processorName, version); err != nil {
		return chainindexererrors.NewTransientDBError("checkpoint set", err)
	}
	return nil
}
