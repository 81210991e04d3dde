// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package processor implements ProcessorCore (SPEC_FULL.md §4.4): extract,
// sort, persist for one version range, then report a ProcessingResult.
package processor

import (
	"context"
	"time"

	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"github.com/luxfi/chainindexer/internal/dbpg"
	"github.com/luxfi/chainindexer/internal/metrics"
	"github.com/luxfi/chainindexer/internal/retry"
	"github.com/luxfi/chainindexer/internal/stake"
	"github.com/luxfi/chainindexer/internal/txstream"
	"golang.org/x/sync/errgroup"
)

// ProcessingResult mirrors DefaultProcessingResult: the observable outcome
// of one process_transactions call.
type ProcessingResult struct {
	StartVersion               uint64
	EndVersion                 uint64
	ProcessingDurationSeconds  float64
	DBInsertionDurationSeconds float64
	LastTransactionTimestamp   time.Time
}

// Processor is the uniform interface a processor implements. StakeCore is
// the only implementation: cmd/chainindexer builds it whatever
// RunConfig.ProcessorConfig.Type names, and there is no dispatch by
// processor type.
type Processor interface {
	Name() string
	ProcessTransactions(ctx context.Context, batch txstream.TransactionBatch) (ProcessingResult, error)
}

// StakeCore implements Processor for the stake domain (SPEC_FULL.md §4).
type StakeCore struct {
	pool          *dbpg.Pool
	readConn      stake.ReadConn
	writers       stake.Writers
	chunkSizes    map[string]int
	retryPolicy   retry.Policy
	metrics       *metrics.Collectors
	handleCache   *stake.HandleResolutionCache
}

// NewStakeCore wires the nine query builders, the read-retry policy,
// per-table chunk sizes, and a cross-batch handle-resolution cache into one
// orchestrator. handleCacheSize <= 0 falls back to the cache's own default.
func NewStakeCore(pool *dbpg.Pool, readConn stake.ReadConn, chunkSizes map[string]int, retryPolicy retry.Policy, m *metrics.Collectors, handleCacheSize int) (*StakeCore, error) {
	cache, err := stake.NewHandleResolutionCache(handleCacheSize)
	if err != nil {
		return nil, err
	}
	return &StakeCore{
		pool:        pool,
		readConn:    readConn,
		writers:     stake.NewWriters(),
		chunkSizes:  chunkSizes,
		retryPolicy: retryPolicy,
		metrics:     m,
		handleCache: cache,
	}, nil
}

func (c *StakeCore) Name() string { return "stake_processor" }

// ProcessTransactions runs the seven-step algorithm from SPEC_FULL.md §4.4:
// extract, sort (done inside ParseBatch), concurrent per-table write under
// a join barrier, metrics, and a ProcessingResult.
func (c *StakeCore) ProcessTransactions(ctx context.Context, batch txstream.TransactionBatch) (ProcessingResult, error) {
	processingStart := time.Now()

	data, err := stake.ParseBatch(ctx, batch.Transactions, c.readConn, c.retryPolicy, c.handleCache)
	if err != nil {
		return ProcessingResult{}, chainindexererrors.NewParseError(c.Name(), batch.StartVersion, batch.EndVersion, err)
	}
	processingDuration := time.Since(processingStart).Seconds()

	insertStart := time.Now()
	if err := c.insertToDB(ctx, data); err != nil {
		return ProcessingResult{}, err
	}
	insertDuration := time.Since(insertStart).Seconds()

	var lastTimestamp time.Time
	if n := len(batch.Transactions); n > 0 && batch.Transactions[n-1].Timestamp != nil {
		lastTimestamp = batch.Transactions[n-1].Timestamp.AsTime()
	}

	if c.metrics != nil {
		c.metrics.ObserveBatch(c.Name(), batch.StartVersion, batch.EndVersion, processingDuration, insertDuration)
	}

	return ProcessingResult{
		StartVersion:                batch.StartVersion,
		EndVersion:                  batch.EndVersion,
		ProcessingDurationSeconds:   processingDuration,
		DBInsertionDurationSeconds:  insertDuration,
		LastTransactionTimestamp:    lastTimestamp,
	}, nil
}

// insertToDB dispatches the nine chunked writes concurrently via a
// function-value map, joined by an errgroup barrier — the Go analogue of
// insert_to_db's futures::join!(cspv, pv, da, ...) (spec.md §5, §9).
func (c *StakeCore) insertToDB(ctx context.Context, data stake.ExtractedData) error {
	writes := map[string]func() error{
		"current_staking_pool_voter": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.CurrentStakingPoolVoters,
				dbpg.ChunkSize(c.chunkSizes, "current_staking_pool_voter"), c.writers.CurrentStakingPoolVoter)
		},
		"proposal_votes": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.ProposalVotes,
				dbpg.ChunkSize(c.chunkSizes, "proposal_votes"), c.writers.ProposalVotes)
		},
		"delegated_staking_activities": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.DelegatorActivities,
				dbpg.ChunkSize(c.chunkSizes, "delegated_staking_activities"), c.writers.DelegatorActivities)
		},
		"delegator_balances": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.DelegatorBalances,
				dbpg.ChunkSize(c.chunkSizes, "delegator_balances"), c.writers.DelegatorBalances)
		},
		"current_delegator_balances": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.CurrentDelegatorBalances,
				dbpg.ChunkSize(c.chunkSizes, "current_delegator_balances"), c.writers.CurrentDelegatorBalances)
		},
		"delegated_staking_pools": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.DelegatorPools,
				dbpg.ChunkSize(c.chunkSizes, "delegated_staking_pools"), c.writers.DelegatorPools)
		},
		"delegated_staking_pool_balances": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.DelegatorPoolBalances,
				dbpg.ChunkSize(c.chunkSizes, "delegated_staking_pool_balances"), c.writers.DelegatorPoolBalances)
		},
		"current_delegated_staking_pool_balances": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.CurrentDelegatorPoolBalances,
				dbpg.ChunkSize(c.chunkSizes, "current_delegated_staking_pool_balances"), c.writers.CurrentDelegatorPoolBalances)
		},
		"current_delegated_voter": func() error {
			return dbpg.WriteChunked(ctx, c.pool, data.CurrentDelegatedVoters,
				dbpg.ChunkSize(c.chunkSizes, "current_delegated_voter"), c.writers.CurrentDelegatedVoter)
		},
	}

	return runConcurrent(ctx, writes)
}

// runConcurrent joins a named set of writes on an errgroup barrier: every
// write runs, and the first error returned wins. The errgroup's derived
// context is not passed to the writes, so one failing write does not cancel
// the others; g.Wait still waits for every goroutine to finish. Split out
// of insertToDB so the join-barrier/first-error-wins property is directly
// testable without a live database.
func runConcurrent(ctx context.Context, writes map[string]func() error) error {
	g, _ := errgroup.WithContext(ctx)
	for _, write := range writes {
		write := write
		g.Go(write)
	}
	return g.Wait()
}
