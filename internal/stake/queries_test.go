// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestBuildCurrentStakingPoolVoter_HasMonotonicityGuard(t *testing.T) {
	sql, args := buildCurrentStakingPoolVoter([]CurrentStakingPoolVoter{{
		StakingPoolAddress:     "0xabc",
		VoterAddress:           "0xdef",
		LastTransactionVersion: 10,
		InsertedAt:             time.Now(),
	}})
	assert.Contains(t, sql, "ON CONFLICT (staking_pool_address) DO UPDATE")
	assert.Contains(t, sql, "last_transaction_version <= EXCLUDED.last_transaction_version")
	assert.Len(t, args, 5)
}

func TestBuildDelegatorPools_HasEarliestWinsGuard(t *testing.T) {
	sql, _ := buildDelegatorPools([]DelegatorPool{{StakingPoolAddress: "0xabc", FirstTransactionVersion: 5}})
	assert.Contains(t, sql, "first_transaction_version >= EXCLUDED.first_transaction_version")
}

func TestBuildProposalVotes_AppendOnlyDoNothing(t *testing.T) {
	sql, args := buildProposalVotes([]ProposalVote{{
		TransactionVersion: 1, ProposalID: 2, VoterAddress: "0xabc", NumVotes: uint256.NewInt(100),
		TransactionTimestamp: time.Now(),
	}})
	assert.Contains(t, sql, "ON CONFLICT (transaction_version, proposal_id, voter_address) DO NOTHING")
	assert.NotContains(t, strings.ToUpper(sql), "DO UPDATE")
	assert.Len(t, args, 7)
}

func TestBuildDelegatorActivities_AppendOnlyDoNothing(t *testing.T) {
	sql, args := buildDelegatorActivities([]DelegatedStakingActivity{{TransactionVersion: 1, EventIndex: 0}})
	assert.Contains(t, sql, "ON CONFLICT (transaction_version, event_index) DO NOTHING")
	assert.Len(t, args, 6)
}

func TestBuildDelegatorActivities_NilAmountRendersZero(t *testing.T) {
	_, args := buildDelegatorActivities([]DelegatedStakingActivity{{TransactionVersion: 1, EventIndex: 0}})
	assert.Equal(t, "0", args[5])
}

func TestNewWriters_AllNineBound(t *testing.T) {
	w := NewWriters()
	assert.NotNil(t, w.CurrentStakingPoolVoter)
	assert.NotNil(t, w.ProposalVotes)
	assert.NotNil(t, w.DelegatorActivities)
	assert.NotNil(t, w.DelegatorBalances)
	assert.NotNil(t, w.CurrentDelegatorBalances)
	assert.NotNil(t, w.DelegatorPools)
	assert.NotNil(t, w.DelegatorPoolBalances)
	assert.NotNil(t, w.CurrentDelegatorPoolBalances)
	assert.NotNil(t, w.CurrentDelegatedVoter)
}

func TestChunkSizeTableNames_MatchesNineTables(t *testing.T) {
	assert.Len(t, ChunkSizeTableNames, 9)
}
