// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/chainindexer/internal/dbpg"
)

// decOrZero renders u as a decimal string, treating a nil pointer (an
// unset uint256 field) as "0" rather than panicking on the nil receiver.
func decOrZero(u *uint256.Int) string {
	if u == nil {
		return "0"
	}
	return u.Dec()
}

// Each of the following nine functions is a dbpg.BuildFunc for one target
// table, matching stake_processor.rs's insert_*_query functions one for
// one: table name, conflict key, guard predicate (or none for append-only
// tables), and the columns replaced on conflict.

func buildCurrentStakingPoolVoter(rows []CurrentStakingPoolVoter) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 5
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5))
		args = append(args, r.StakingPoolAddress, r.VoterAddress, r.OperatorAddress, r.LastTransactionVersion, r.InsertedAt)
	}
	sql := `INSERT INTO current_staking_pool_voter
		(staking_pool_address, voter_address, operator_address, last_transaction_version, inserted_at)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (staking_pool_address) DO UPDATE SET
			voter_address = EXCLUDED.voter_address,
			operator_address = EXCLUDED.operator_address,
			last_transaction_version = EXCLUDED.last_transaction_version,
			inserted_at = EXCLUDED.inserted_at
		WHERE current_staking_pool_voter.last_transaction_version <= EXCLUDED.last_transaction_version`
	return sql, args
}

func buildProposalVotes(rows []ProposalVote) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 7
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6, b+7))
		args = append(args, r.TransactionVersion, r.ProposalID, r.VoterAddress, r.StakePool, decOrZero(r.NumVotes), r.ShouldPass, r.TransactionTimestamp)
	}
	sql := `INSERT INTO proposal_votes
		(transaction_version, proposal_id, voter_address, stake_pool, num_votes, should_pass, transaction_timestamp)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (transaction_version, proposal_id, voter_address) DO NOTHING`
	return sql, args
}

func buildDelegatorActivities(rows []DelegatedStakingActivity) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 6
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6))
		args = append(args, r.TransactionVersion, r.EventIndex, r.PoolAddress, r.DelegatorAddress, r.EventType, decOrZero(r.Amount))
	}
	sql := `INSERT INTO delegated_staking_activities
		(transaction_version, event_index, pool_address, delegator_address, event_type, amount)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (transaction_version, event_index) DO NOTHING`
	return sql, args
}

func buildDelegatorBalances(rows []DelegatorBalance) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 6
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6))
		args = append(args, r.TransactionVersion, r.WriteSetChangeIndex, r.DelegatorAddress, r.PoolAddress, r.PoolType, r.TableHandle)
	}
	sql := `INSERT INTO delegator_balances
		(transaction_version, write_set_change_index, delegator_address, pool_address, pool_type, table_handle)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (transaction_version, write_set_change_index) DO NOTHING`
	return sql, args
}

func buildCurrentDelegatorBalances(rows []CurrentDelegatorBalance) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 7
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6, b+7))
		args = append(args, r.DelegatorAddress, r.PoolAddress, r.PoolType, r.TableHandle, r.LastTransactionVersion, decOrZero(r.Shares), r.ParentTableHandle)
	}
	sql := `INSERT INTO current_delegator_balances
		(delegator_address, pool_address, pool_type, table_handle, last_transaction_version, shares, parent_table_handle)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (delegator_address, pool_address, pool_type, table_handle) DO UPDATE SET
			last_transaction_version = EXCLUDED.last_transaction_version,
			shares = EXCLUDED.shares,
			parent_table_handle = EXCLUDED.parent_table_handle
		WHERE current_delegator_balances.last_transaction_version <= EXCLUDED.last_transaction_version`
	return sql, args
}

func buildDelegatorPools(rows []DelegatorPool) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 3
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d)", b+1, b+2, b+3))
		args = append(args, r.StakingPoolAddress, r.FirstTransactionVersion, r.InsertedAt)
	}
	// The one "earliest wins" guard in the schema (SPEC_FULL.md §3):
	// first_transaction_version is non-increasing, the opposite direction
	// of every other current_* watermark.
	sql := `INSERT INTO delegated_staking_pools
		(staking_pool_address, first_transaction_version, inserted_at)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (staking_pool_address) DO UPDATE SET
			first_transaction_version = EXCLUDED.first_transaction_version,
			inserted_at = EXCLUDED.inserted_at
		WHERE delegated_staking_pools.first_transaction_version >= EXCLUDED.first_transaction_version`
	return sql, args
}

func buildDelegatorPoolBalances(rows []DelegatorPoolBalance) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 7
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6, b+7))
		args = append(args, r.TransactionVersion, r.StakingPoolAddress, decOrZero(r.TotalCoins), decOrZero(r.TotalShares),
			r.OperatorCommissionPercentage, r.InactiveTableHandle, r.ActiveTableHandle)
	}
	sql := `INSERT INTO delegated_staking_pool_balances
		(transaction_version, staking_pool_address, total_coins, total_shares, operator_commission_percentage, inactive_table_handle, active_table_handle)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (transaction_version, staking_pool_address) DO NOTHING`
	return sql, args
}

func buildCurrentDelegatorPoolBalances(rows []CurrentDelegatorPoolBalance) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 7
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6, b+7))
		args = append(args, r.StakingPoolAddress, decOrZero(r.TotalCoins), decOrZero(r.TotalShares), r.LastTransactionVersion,
			r.OperatorCommissionPercentage, r.InactiveTableHandle, r.ActiveTableHandle)
	}
	sql := `INSERT INTO current_delegated_staking_pool_balances
		(staking_pool_address, total_coins, total_shares, last_transaction_version, operator_commission_percentage, inactive_table_handle, active_table_handle)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (staking_pool_address) DO UPDATE SET
			total_coins = EXCLUDED.total_coins,
			total_shares = EXCLUDED.total_shares,
			last_transaction_version = EXCLUDED.last_transaction_version,
			operator_commission_percentage = EXCLUDED.operator_commission_percentage,
			inactive_table_handle = EXCLUDED.inactive_table_handle,
			active_table_handle = EXCLUDED.active_table_handle
		WHERE current_delegated_staking_pool_balances.last_transaction_version <= EXCLUDED.last_transaction_version`
	return sql, args
}

func buildCurrentDelegatedVoter(rows []CurrentDelegatedVoter) (string, []any) {
	var vals []string
	var args []any
	for i, r := range rows {
		b := i * 6
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6))
		args = append(args, r.DelegationPoolAddress, r.DelegatorAddress, r.Voter, r.PendingVoter,
			r.LastTransactionTimestamp, r.LastTransactionVersion)
	}
	sql := `INSERT INTO current_delegated_voter
		(delegation_pool_address, delegator_address, voter, pending_voter, last_transaction_timestamp, last_transaction_version)
		VALUES ` + strings.Join(vals, ",") + `
		ON CONFLICT (delegation_pool_address, delegator_address) DO UPDATE SET
			voter = EXCLUDED.voter,
			pending_voter = EXCLUDED.pending_voter,
			last_transaction_timestamp = EXCLUDED.last_transaction_timestamp,
			last_transaction_version = EXCLUDED.last_transaction_version
		WHERE current_delegated_voter.last_transaction_version <= EXCLUDED.last_transaction_version`
	return sql, args
}

// Writers bundles the nine BuildFuncs, one field per table, for the
// per-table dispatch map in processor.StakeCore (spec.md §9 design note:
// function-value query builders in a dispatch map).
type Writers struct {
	CurrentStakingPoolVoter       dbpg.BuildFunc[CurrentStakingPoolVoter]
	ProposalVotes                 dbpg.BuildFunc[ProposalVote]
	DelegatorActivities            dbpg.BuildFunc[DelegatedStakingActivity]
	DelegatorBalances               dbpg.BuildFunc[DelegatorBalance]
	CurrentDelegatorBalances        dbpg.BuildFunc[CurrentDelegatorBalance]
	DelegatorPools                  dbpg.BuildFunc[DelegatorPool]
	DelegatorPoolBalances            dbpg.BuildFunc[DelegatorPoolBalance]
	CurrentDelegatorPoolBalances     dbpg.BuildFunc[CurrentDelegatorPoolBalance]
	CurrentDelegatedVoter            dbpg.BuildFunc[CurrentDelegatedVoter]
}

// NewWriters returns the nine query builders bound to their table names.
func NewWriters() Writers {
	return Writers{
		CurrentStakingPoolVoter:      buildCurrentStakingPoolVoter,
		ProposalVotes:                buildProposalVotes,
		DelegatorActivities:          buildDelegatorActivities,
		DelegatorBalances:            buildDelegatorBalances,
		CurrentDelegatorBalances:     buildCurrentDelegatorBalances,
		DelegatorPools:               buildDelegatorPools,
		DelegatorPoolBalances:        buildDelegatorPoolBalances,
		CurrentDelegatorPoolBalances: buildCurrentDelegatorPoolBalances,
		CurrentDelegatedVoter:        buildCurrentDelegatedVoter,
	}
}

// ChunkSizeTableNames lists the nine table names used as
// DBConfig.PerTableChunkSize keys.
var ChunkSizeTableNames = []string{
	"current_staking_pool_voter",
	"proposal_votes",
	"delegated_staking_activities",
	"delegator_balances",
	"current_delegator_balances",
	"delegated_staking_pools",
	"delegated_staking_pool_balances",
	"current_delegated_staking_pool_balances",
	"current_delegated_voter",
}
