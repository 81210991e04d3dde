// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runtime implements ProcessorRuntime (SPEC_FULL.md §4.6): a
// pull-batch/process/checkpoint-advance loop against a TransactionStream,
// rate-limited once the runtime has caught up with the stream's head.
package runtime

import (
	"context"

	"github.com/luxfi/chainindexer/internal/checkpoint"
	"github.com/luxfi/chainindexer/internal/logging"
	"github.com/luxfi/chainindexer/internal/processor"
	"github.com/luxfi/chainindexer/internal/txstream"
	"golang.org/x/time/rate"
)

// Runtime drives one Processor against one TransactionStream, persisting
// progress to a CheckpointStore after every successfully processed batch.
type Runtime struct {
	Stream           txstream.TransactionStream
	Processor        processor.Processor
	Checkpoints      checkpoint.Store
	Limiter          *rate.Limiter
	OverwriteCheckpoint bool
}

// New builds a Runtime with a sensible default limiter (10 pulls/sec,
// burst 1) — a caught-up runtime backs off to this rate rather than
// hot-looping against an idle stream (SPEC_FULL.md §4.6 supplement).
func New(stream txstream.TransactionStream, proc processor.Processor, checkpoints checkpoint.Store) *Runtime {
	return &Runtime{
		Stream:      stream,
		Processor:   proc,
		Checkpoints: checkpoints,
		Limiter:     rate.NewLimiter(rate.Limit(10), 1),
	}
}

// Run pulls batches starting at startVersion (or the stored checkpoint, if
// higher) and processes them in order until ctx is cancelled or the stream
// returns an unrecoverable error.
func (r *Runtime) Run(ctx context.Context, startVersion uint64) error {
	logger := logging.Component("runtime")

	version := startVersion
	if !r.OverwriteCheckpoint {
		if stored, ok, err := r.Checkpoints.Get(ctx, r.Processor.Name()); err != nil {
			return err
		} else if ok && stored >= version {
			version = stored
		}
	}

	for {
		batch, err := r.Stream.Next(ctx, version)
		if err != nil {
			return err
		}
		if len(batch.Transactions) == 0 {
			// Caught up with the stream head; the limiter paces the retry.
			if err := r.Limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
			continue
		}

		result, err := r.Processor.ProcessTransactions(ctx, batch)
		if err != nil {
			logger.Error("batch processing failed", "start_version", batch.StartVersion, "end_version", batch.EndVersion, "err", err)
			return err
		}

		if err := r.Checkpoints.Set(ctx, r.Processor.Name(), result.EndVersion+1, r.OverwriteCheckpoint); err != nil {
			return err
		}
		version = result.EndVersion + 1
	}
}
