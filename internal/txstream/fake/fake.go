// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fake provides an in-memory TransactionStream for tests and the
// "testing" run mode, where no real upstream gRPC endpoint is wired.
package fake

import (
	"context"
	"sort"

	"github.com/luxfi/chainindexer/internal/txstream"
)

// Stream replays a fixed, in-memory slice of transactions, chunked into
// batches of at most BatchSize transactions per Next call.
type Stream struct {
	BatchSize    int
	transactions []txstream.Transaction
}

// New builds a Stream over txs, sorted by Version, matching the real
// stream's contiguity guarantee.
func New(txs []txstream.Transaction, batchSize int) *Stream {
	sorted := make([]txstream.Transaction, len(txs))
	copy(sorted, txs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Stream{BatchSize: batchSize, transactions: sorted}
}

// Next returns the next contiguous run of up to BatchSize transactions at
// or after startVersion. It returns an empty batch with no error when the
// fixture is exhausted, rather than blocking forever, since tests run to
// completion rather than tailing a live stream.
func (s *Stream) Next(ctx context.Context, startVersion uint64) (txstream.TransactionBatch, error) {
	select {
	case <-ctx.Done():
		return txstream.TransactionBatch{}, ctx.Err()
	default:
	}

	start := sort.Search(len(s.transactions), func(i int) bool {
		return s.transactions[i].Version >= startVersion
	})
	if start >= len(s.transactions) {
		return txstream.TransactionBatch{StartVersion: startVersion, EndVersion: startVersion}, nil
	}

	end := start + s.BatchSize
	if end > len(s.transactions) {
		end = len(s.transactions)
	}
	batch := s.transactions[start:end]

	return txstream.TransactionBatch{
		StartVersion: batch[0].Version,
		EndVersion:   batch[len(batch)-1].Version,
		Transactions: batch,
	}, nil
}
