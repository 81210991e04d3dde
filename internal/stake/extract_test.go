// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"context"
	"testing"

	"github.com/luxfi/chainindexer/internal/retry"
	"github.com/luxfi/chainindexer/internal/txstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type noopReadConn struct{}

func (noopReadConn) ReadResource(ctx context.Context, address, typeStr string) ([]byte, error) {
	return []byte("{}"), nil
}

func stakePoolTxn(version uint64, poolAddr, voter, operator string) txstream.Transaction {
	return txstream.Transaction{
		Version:   version,
		Timestamp: timestamppb.Now(),
		Changes: []txstream.WriteSetChange{{
			Type: txstream.WriteSetChangeResource,
			Resource: &txstream.WriteResource{
				Address: poolAddr,
				TypeStr: typeStakePool,
				Data:    `{"delegated_voter":"` + voter + `","operator_address":"` + operator + `"}`,
			},
		}},
	}
}

func TestExtractCurrentStakingPoolVoter_LaterTxnOverwritesEarlier(t *testing.T) {
	into := map[string]CurrentStakingPoolVoter{}

	require.NoError(t, extractCurrentStakingPoolVoter(stakePoolTxn(1, "0xaaa", "0x1", "0xop1"), into))
	require.NoError(t, extractCurrentStakingPoolVoter(stakePoolTxn(2, "0xaaa", "0x2", "0xop2"), into))

	row, ok := into["0x"+padLeft("aaa", 64)]
	require.True(t, ok)
	assert.Equal(t, uint64(2), row.LastTransactionVersion)
	assert.Equal(t, "0x"+padLeft("2", 64), row.VoterAddress)
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func TestParseBatch_SortsCurrentStakingPoolVotersByPK(t *testing.T) {
	txns := []txstream.Transaction{
		stakePoolTxn(1, "0xbbb", "0x1", "0xop"),
		stakePoolTxn(2, "0xaaa", "0x2", "0xop"),
	}

	data, err := ParseBatch(context.Background(), txns, noopReadConn{}, retry.NewPolicy(0, 0), nil)
	require.NoError(t, err)
	require.Len(t, data.CurrentStakingPoolVoters, 2)
	assert.True(t, data.CurrentStakingPoolVoters[0].StakingPoolAddress < data.CurrentStakingPoolVoters[1].StakingPoolAddress)
}

func TestParseBatch_EmptyTransactions(t *testing.T) {
	data, err := ParseBatch(context.Background(), nil, noopReadConn{}, retry.NewPolicy(0, 0), nil)
	require.NoError(t, err)
	assert.Empty(t, data.CurrentStakingPoolVoters)
	assert.Empty(t, data.DelegatorPools)
}

func TestParseBatch_NilConnSkipsConnDependentPasses(t *testing.T) {
	txns := []txstream.Transaction{stakePoolTxn(1, "0xaaa", "0x1", "0xop")}
	data, err := ParseBatch(context.Background(), txns, nil, retry.NewPolicy(0, 0), nil)
	require.NoError(t, err)
	assert.Empty(t, data.DelegatorBalances)
	assert.Empty(t, data.CurrentDelegatedVoters)
}

func TestParseBatch_HandleResolutionCacheFallback_ResolvesAcrossBatches(t *testing.T) {
	cache, err := NewHandleResolutionCache(16)
	require.NoError(t, err)

	governanceTxn := txstream.Transaction{
		Version:   1,
		Timestamp: timestamppb.Now(),
		Changes: []txstream.WriteSetChange{{
			Type: txstream.WriteSetChangeResource,
			Resource: &txstream.WriteResource{
				Address: "0xaaa",
				TypeStr: typeGovernanceRecords,
				Data:    `{"vote_delegation_handle":"0xhandle1"}`,
			},
		}},
	}
	_, err = ParseBatch(context.Background(), []txstream.Transaction{governanceTxn}, noopReadConn{}, retry.NewPolicy(0, 0), cache)
	require.NoError(t, err)

	voteTxn := txstream.Transaction{
		Version:   2,
		Timestamp: timestamppb.Now(),
		Changes: []txstream.WriteSetChange{{
			Type: txstream.WriteSetChangeTableItem,
			TableItem: &txstream.WriteTableItem{
				Handle: "0xhandle1",
				Data:   `{"delegator_address":"0xdel","voter":"0xvoter","pending_voter":"0xvoter"}`,
			},
		}},
	}
	data, err := ParseBatch(context.Background(), []txstream.Transaction{voteTxn}, noopReadConn{}, retry.NewPolicy(0, 0), cache)
	require.NoError(t, err)
	require.Len(t, data.CurrentDelegatedVoters, 1)
	assert.Equal(t, "0x"+padLeft("aaa", 64), data.CurrentDelegatedVoters[0].DelegationPoolAddress)
}

func TestExtractProposalVotes_DecodesVoteEvent(t *testing.T) {
	txn := txstream.Transaction{
		Version:   1,
		Timestamp: timestamppb.Now(),
		Events: []txstream.Event{{
			Type: typeVoteEvent,
			Data: `{"proposal_id":"7","voter":"0xvoter","stake_pool":"0xpool","num_votes":"100","should_pass":true}`,
		}},
	}

	votes, err := extractProposalVotes(txn)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, uint64(7), votes[0].ProposalID)
	assert.Equal(t, "0x"+padLeft("voter", 64), votes[0].VoterAddress)
	assert.Equal(t, "0x"+padLeft("pool", 64), votes[0].StakePool)
	assert.Equal(t, "100", votes[0].NumVotes.Dec())
	assert.True(t, votes[0].ShouldPass)
}

func TestExtractProposalVotes_IgnoresUnrelatedEvents(t *testing.T) {
	txn := txstream.Transaction{
		Version:   1,
		Timestamp: timestamppb.Now(),
		Events:    []txstream.Event{{Type: typeAddStakeEvent, Data: `{}`}},
	}

	votes, err := extractProposalVotes(txn)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestExtractDelegatorActivities_DecodesEachActivityKind(t *testing.T) {
	txn := txstream.Transaction{
		Version: 5,
		Events: []txstream.Event{
			{Type: typeAddStakeEvent, Data: `{"pool_address":"0xpool","delegator_address":"0xdel","amount_added":"10"}`},
			{Type: typeUnlockStakeEvent, Data: `{"pool_address":"0xpool","delegator_address":"0xdel","amount_unlocked":"20"}`},
			{Type: typeWithdrawStakeEvent, Data: `{"pool_address":"0xpool","delegator_address":"0xdel","amount_withdrawn":"30"}`},
			{Type: typeReactivateStakeEvent, Data: `{"pool_address":"0xpool","delegator_address":"0xdel","amount_reactivated":"40"}`},
			{Type: "0x1::some::OtherEvent", Data: `{}`},
		},
	}

	activities, err := extractDelegatorActivities(txn)
	require.NoError(t, err)
	require.Len(t, activities, 4)
	assert.Equal(t, uint64(0), activities[0].EventIndex)
	assert.Equal(t, "10", activities[0].Amount.Dec())
	assert.Equal(t, uint64(3), activities[3].EventIndex)
	assert.Equal(t, "40", activities[3].Amount.Dec())
	assert.Equal(t, "0x"+padLeft("pool", 64), activities[0].PoolAddress)
}
