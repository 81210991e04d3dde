// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stake implements the stake-domain processor: extraction of
// staking/delegation projections from a transaction batch and the nine
// upsert query builders that persist them, ported from
// original_source/stake_processor.rs into Go.
package stake

import (
	"time"

	"github.com/holiman/uint256"
)

// CurrentStakingPoolVoter is the latest voter/operator for a staking pool.
// Guard: last_transaction_version non-decreasing.
type CurrentStakingPoolVoter struct {
	StakingPoolAddress    string
	VoterAddress          string
	OperatorAddress       string
	LastTransactionVersion uint64
	InsertedAt            time.Time
}

func (r CurrentStakingPoolVoter) PK() string { return r.StakingPoolAddress }

// ProposalVote is an append-only governance vote record.
// Guard: none (ON CONFLICT DO NOTHING).
type ProposalVote struct {
	TransactionVersion   uint64
	ProposalID           uint64
	VoterAddress         string
	StakePool            string
	NumVotes             *uint256.Int
	ShouldPass           bool
	TransactionTimestamp time.Time
}

func (r ProposalVote) PK() [3]any { return [3]any{r.TransactionVersion, r.ProposalID, r.VoterAddress} }

// DelegatedStakingActivity is an append-only delegator action record.
// Guard: none (ON CONFLICT DO NOTHING).
type DelegatedStakingActivity struct {
	TransactionVersion uint64
	EventIndex         uint64
	PoolAddress        string
	DelegatorAddress   string
	EventType          string
	Amount             *uint256.Int
}

func (r DelegatedStakingActivity) PK() [2]uint64 { return [2]uint64{r.TransactionVersion, r.EventIndex} }

// DelegatorBalance is an append-only per-txn balance observation.
// Guard: none (ON CONFLICT DO NOTHING).
type DelegatorBalance struct {
	TransactionVersion    uint64
	WriteSetChangeIndex   uint64
	DelegatorAddress      string
	PoolAddress           string
	PoolType              string
	TableHandle           string
	Shares                *uint256.Int
	ParentTableHandle     string
}

func (r DelegatorBalance) PK() [2]uint64 {
	return [2]uint64{r.TransactionVersion, r.WriteSetChangeIndex}
}

// CurrentDelegatorBalance is the latest balance per (delegator, pool,
// pool_type, table_handle). Guard: last_transaction_version non-decreasing.
type CurrentDelegatorBalance struct {
	DelegatorAddress       string
	PoolAddress            string
	PoolType               string
	TableHandle            string
	LastTransactionVersion uint64
	Shares                 *uint256.Int
	ParentTableHandle      string
	InsertedAt             time.Time
}

func (r CurrentDelegatorBalance) PK() [4]string {
	return [4]string{r.DelegatorAddress, r.PoolAddress, r.PoolType, r.TableHandle}
}

// DelegatorPool is the delegation pool registry. Guard:
// first_transaction_version non-increasing — the one "earliest wins" field
// in the schema (SPEC_FULL.md §3 supplement).
type DelegatorPool struct {
	StakingPoolAddress    string
	FirstTransactionVersion uint64
	InsertedAt            time.Time
}

func (r DelegatorPool) PK() string { return r.StakingPoolAddress }

// DelegatorPoolBalance is an append-only per-txn pool-total observation.
// Guard: none (ON CONFLICT DO NOTHING).
type DelegatorPoolBalance struct {
	TransactionVersion         uint64
	StakingPoolAddress         string
	TotalCoins                 *uint256.Int
	TotalShares                *uint256.Int
	OperatorCommissionPercentage float64
	InactiveTableHandle        string
	ActiveTableHandle          string
}

func (r DelegatorPoolBalance) PK() [2]any {
	return [2]any{r.TransactionVersion, r.StakingPoolAddress}
}

// CurrentDelegatorPoolBalance is the latest pool-total per pool. Guard:
// last_transaction_version non-decreasing.
type CurrentDelegatorPoolBalance struct {
	StakingPoolAddress         string
	TotalCoins                 *uint256.Int
	TotalShares                *uint256.Int
	LastTransactionVersion     uint64
	OperatorCommissionPercentage float64
	InactiveTableHandle        string
	ActiveTableHandle          string
	InsertedAt                 time.Time
}

func (r CurrentDelegatorPoolBalance) PK() string { return r.StakingPoolAddress }

// CurrentDelegatedVoter is the latest voter delegation per (pool,
// delegator). Guard: last_transaction_version non-decreasing.
type CurrentDelegatedVoter struct {
	DelegationPoolAddress      string
	DelegatorAddress           string
	Voter                      string
	PendingVoter               string
	LastTransactionTimestamp   time.Time
	LastTransactionVersion     uint64
	TableHandle                string
	InsertedAt                 time.Time
}

func (r CurrentDelegatedVoter) PK() [2]string {
	return [2]string{r.DelegationPoolAddress, r.DelegatorAddress}
}
