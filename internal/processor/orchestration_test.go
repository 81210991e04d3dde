// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/chainindexer/internal/retry"
	"github.com/luxfi/chainindexer/internal/stake"
	"github.com/luxfi/chainindexer/internal/txstream"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var _ = Describe("ProcessorCore orchestration", func() {
	Describe("sort-before-write", func() {
		It("hands insertToDB rows already sorted by primary key, regardless of extraction order", func() {
			txns := []txstream.Transaction{
				stakePoolTxnFor(2, "0xbbb"),
				stakePoolTxnFor(1, "0xaaa"),
				stakePoolTxnFor(3, "0xccc"),
			}

			data, err := stake.ParseBatch(context.Background(), txns, nil, retry.NewPolicy(0, 0), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.CurrentStakingPoolVoters).To(HaveLen(3))

			for i := 1; i < len(data.CurrentStakingPoolVoters); i++ {
				Expect(data.CurrentStakingPoolVoters[i-1].StakingPoolAddress < data.CurrentStakingPoolVoters[i].StakingPoolAddress).To(
					BeTrue(), "rows %d and %d are out of primary-key order", i-1, i)
			}
		})
	})

	Describe("concurrent join-barrier", func() {
		It("runs every write and only returns once all of them complete", func() {
			var inFlight int32
			var maxInFlight int32
			var completed int32
			var mu sync.Mutex

			track := func() error {
				n := atomic.AddInt32(&inFlight, 1)
				mu.Lock()
				if n > maxInFlight {
					maxInFlight = n
				}
				mu.Unlock()
				atomic.AddInt32(&inFlight, -1)
				atomic.AddInt32(&completed, 1)
				return nil
			}

			writes := map[string]func() error{
				"a": track, "b": track, "c": track, "d": track,
			}

			Expect(runConcurrent(context.Background(), writes)).To(Succeed())
			Expect(atomic.LoadInt32(&inFlight)).To(Equal(int32(0)))
			Expect(atomic.LoadInt32(&completed)).To(Equal(int32(len(writes))))
		})
	})

	Describe("first-error-wins", func() {
		It("surfaces an error from insertToDB when any single write fails, even though others succeed", func() {
			boom := errors.New("insertion failed")
			writes := map[string]func() error{
				"current_staking_pool_voter": func() error { return nil },
				"delegator_balances":         func() error { return boom },
				"delegated_staking_pools":    func() error { return nil },
			}

			err := runConcurrent(context.Background(), writes)
			Expect(err).To(MatchError(boom))
		})
	})
})

func stakePoolTxnFor(version uint64, poolAddr string) txstream.Transaction {
	return txstream.Transaction{
		Version:   version,
		Timestamp: timestamppb.Now(),
		Changes: []txstream.WriteSetChange{{
			Type: txstream.WriteSetChangeResource,
			Resource: &txstream.WriteResource{
				Address: poolAddr,
				TypeStr: "0x1::stake::StakePool",
				Data:    `{"delegated_voter":"0xvoter","operator_address":"0xop"}`,
			},
		}},
	}
}
