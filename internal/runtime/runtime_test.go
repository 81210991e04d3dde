// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/chainindexer/internal/processor"
	"github.com/luxfi/chainindexer/internal/txstream"
	"github.com/luxfi/chainindexer/internal/txstream/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCheckpointStore struct {
	mu       sync.Mutex
	versions map[string]uint64
}

func newFakeCheckpointStore() *fakeCheckpointStore {
	return &fakeCheckpointStore{versions: map[string]uint64{}}
}

func (s *fakeCheckpointStore) Get(ctx context.Context, name string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[name]
	return v, ok, nil
}

func (s *fakeCheckpointStore) Set(ctx context.Context, name string, version uint64, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !overwrite {
		if existing, ok := s.versions[name]; ok && existing > version {
			return nil
		}
	}
	s.versions[name] = version
	return nil
}

type countingProcessor struct {
	mu      sync.Mutex
	batches []txstream.TransactionBatch
}

func (p *countingProcessor) Name() string { return "counting_processor" }

func (p *countingProcessor) ProcessTransactions(ctx context.Context, batch txstream.TransactionBatch) (processor.ProcessingResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, batch)
	return processor.ProcessingResult{StartVersion: batch.StartVersion, EndVersion: batch.EndVersion}, nil
}

func TestRuntime_ProcessesAllBatchesThenCancelsOnExhaustion(t *testing.T) {
	txs := []txstream.Transaction{{Version: 1}, {Version: 2}, {Version: 3}}
	stream := fake.New(txs, 2)
	store := newFakeCheckpointStore()
	proc := &countingProcessor{}

	rt := New(stream, proc, store)
	rt.Limiter = rate.NewLimiter(rate.Inf, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := rt.Run(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.GreaterOrEqual(t, len(proc.batches), 2)

	version, ok, err := store.Get(context.Background(), proc.Name())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(4), version)
}
