// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dbpg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestChunkSize_DefaultWhenUnset(t *testing.T) {
	assert.Equal(t, DefaultChunkSize, ChunkSize(nil, "current_staking_pool_voter"))
	assert.Equal(t, DefaultChunkSize, ChunkSize(map[string]int{"other_table": 5}, "current_staking_pool_voter"))
}

func TestChunkSize_UsesOverride(t *testing.T) {
	assert.Equal(t, 500, ChunkSize(map[string]int{"current_staking_pool_voter": 500}, "current_staking_pool_voter"))
}

func TestWriteChunked_NoRowsIsNoop(t *testing.T) {
	err := WriteChunked[int](nil, nil, nil, 100, func(rows []int) (string, []any) {
		t.Fatal("build should not be called for empty rows")
		return "", nil
	})
	assert.NoError(t, err)
}

func TestChunkPartitioning_SplitsIntoExpectedChunkCount(t *testing.T) {
	rows := make([]int, 250)
	for i := range rows {
		rows[i] = i
	}

	var calls int
	var totalRows int
	build := func(chunk []int) (string, []any) {
		calls++
		totalRows += len(chunk)
		return "", nil
	}

	// We can't exercise the real pgxpool.Exec path without a live DB, so
	// this test only verifies chunk partitioning math via ChunkSize plus a
	// direct call to build for each expected chunk boundary.
	chunkSize := 100
	expectedChunks := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		build(rows[start:end])
		expectedChunks++
	}

	assert.Equal(t, 3, expectedChunks)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 250, totalRows)
}
