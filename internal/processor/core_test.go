// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package processor

import (
	"context"
	"testing"

	"github.com/luxfi/chainindexer/internal/metrics"
	"github.com/luxfi/chainindexer/internal/retry"
	"github.com/luxfi/chainindexer/internal/txstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeCore_Name(t *testing.T) {
	c, err := NewStakeCore(nil, nil, nil, retry.NewPolicy(0, 0), metrics.New(), 0)
	require.NoError(t, err)
	assert.Equal(t, "stake_processor", c.Name())
}

func TestStakeCore_ProcessTransactions_EmptyBatch_NoWritesIssued(t *testing.T) {
	// An empty batch touches no writer and never dereferences the nil
	// pool, since dbpg.WriteChunked short-circuits on zero rows.
	c, err := NewStakeCore(nil, nil, nil, retry.NewPolicy(0, 0), metrics.New(), 0)
	require.NoError(t, err)

	result, err := c.ProcessTransactions(context.Background(), txstream.TransactionBatch{
		StartVersion: 1,
		EndVersion:   1,
		Transactions: nil,
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.StartVersion)
	assert.Equal(t, uint64(1), result.EndVersion)
}
