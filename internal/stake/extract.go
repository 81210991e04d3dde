// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"
	"github.com/luxfi/chainindexer/internal/addrutil"
	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"github.com/luxfi/chainindexer/internal/retry"
	"github.com/luxfi/chainindexer/internal/txstream"
)

const processorName = "stake_processor"

// Move resource/table type strings recognized by the extractor, grounded on
// the Aptos delegation_pool/stake module names original_source references.
const (
	typeStakePool          = "0x1::stake::StakePool"
	typeGovernanceRecords  = "0x1::delegation_pool::GovernanceRecords"
	typeDelegationPool     = "0x1::delegation_pool::DelegationPool"
	typeVoteDelegationItem = "vote_delegation"
	typeSharesItem         = "shares"

	typeVoteEvent            = "0x1::aptos_governance::VoteEvent"
	typeAddStakeEvent        = "0x1::delegation_pool::AddStakeEvent"
	typeUnlockStakeEvent     = "0x1::delegation_pool::UnlockStakeEvent"
	typeWithdrawStakeEvent   = "0x1::delegation_pool::WithdrawStakeEvent"
	typeReactivateStakeEvent = "0x1::delegation_pool::ReactivateStakeEvent"
)

// ReadConn is the read-through connection abstraction the delegator-balance
// extractor needs; its one real implementation wraps a fastcache-backed
// on-chain reader, kept outside this package per spec.md §9 ("avoid a
// package-global connection").
type ReadConn interface {
	ReadResource(ctx context.Context, address, typeStr string) ([]byte, error)
}

type stakePoolResource struct {
	DelegatedVoter  string `json:"delegated_voter"`
	OperatorAddress string `json:"operator_address"`
}

type governanceRecordsResource struct {
	VoteDelegationHandle string `json:"vote_delegation_handle"`
}

type delegationPoolResource struct {
	ActiveShareTableHandle       string `json:"active_share_table_handle"`
	InactiveShareTableHandle     string `json:"inactive_share_table_handle"`
	OperatorCommissionPercentage string `json:"operator_commission_percentage"`
	TotalCoins                   string `json:"total_coins"`
	TotalShares                   string `json:"total_shares"`
}

type voteDelegationTableValue struct {
	DelegatorAddress string `json:"delegator_address"`
	Voter            string `json:"voter"`
	PendingVoter     string `json:"pending_voter"`
}

type sharesTableValue struct {
	DelegatorAddress string `json:"delegator_address"`
	Shares           string `json:"shares"`
	ParentTableHandle string `json:"parent_table_handle"`
}

// voteEventData mirrors 0x1::aptos_governance::VoteEvent's body.
type voteEventData struct {
	ProposalID string `json:"proposal_id"`
	Voter      string `json:"voter"`
	StakePool  string `json:"stake_pool"`
	NumVotes   string `json:"num_votes"`
	ShouldPass bool   `json:"should_pass"`
}

// delegationActivityEventData mirrors the shared address fields across the
// four delegation_pool activity events; each event type carries its amount
// under a differently-named field (amount_added/_unlocked/_withdrawn/
// _reactivated).
type delegationActivityEventData struct {
	PoolAddress       string `json:"pool_address"`
	DelegatorAddress  string `json:"delegator_address"`
	AmountAdded       string `json:"amount_added"`
	AmountUnlocked    string `json:"amount_unlocked"`
	AmountWithdrawn   string `json:"amount_withdrawn"`
	AmountReactivated string `json:"amount_reactivated"`
}

// ExtractedData is the nine-slice output of ParseBatch, mirroring
// parse_stake_data's return tuple.
type ExtractedData struct {
	CurrentStakingPoolVoters    []CurrentStakingPoolVoter
	ProposalVotes                []ProposalVote
	DelegatorActivities           []DelegatedStakingActivity
	DelegatorBalances              []DelegatorBalance
	CurrentDelegatorBalances        []CurrentDelegatorBalance
	DelegatorPools                   []DelegatorPool
	DelegatorPoolBalances             []DelegatorPoolBalance
	CurrentDelegatorPoolBalances       []CurrentDelegatorPoolBalance
	CurrentDelegatedVoters                []CurrentDelegatedVoter
}

// ParseBatch runs the six ordered extraction passes over transactions in
// order, mirroring parse_stake_data, then sorts the rows of the five keyed
// tables (the four current_* tables and delegated_staking_pools) by primary
// key before returning (SPEC_FULL.md §4.1 / §5: sort-before-write to avoid
// cross-table deadlocks under concurrent writes). The four append-only
// tables are not sorted: their rows keep extraction order, by transaction
// and then by position within the transaction.
func ParseBatch(ctx context.Context, transactions []txstream.Transaction, conn ReadConn, retryPolicy retry.Policy, handleCache *HandleResolutionCache) (ExtractedData, error) {
	currentStakePoolVoters := map[string]CurrentStakingPoolVoter{}
	var proposalVotes []ProposalVote
	var delegatorActivities []DelegatedStakingActivity
	var delegatorBalances []DelegatorBalance
	currentDelegatorBalances := map[[4]string]CurrentDelegatorBalance{}
	delegatorPools := map[string]DelegatorPool{}
	var delegatorPoolBalances []DelegatorPoolBalance
	currentDelegatorPoolBalances := map[string]CurrentDelegatorPoolBalance{}
	currentDelegatedVoters := map[[2]string]CurrentDelegatedVoter{}

	activePoolToStakingPool := map[string]string{}
	voteDelegationHandleToPoolAddress := map[string]string{}
	// Tracks delegation-pool addresses whose active/inactive share-table
	// handles have already been resolved this batch, so a pool rewritten
	// by several transactions in the same batch is only JSON-decoded once.
	seenDelegationPools := mapset.NewSet[string]()

	for _, txn := range transactions {
		if err := extractCurrentStakingPoolVoter(txn, currentStakePoolVoters); err != nil {
			return ExtractedData{}, err
		}
		votes, err := extractProposalVotes(txn)
		if err != nil {
			return ExtractedData{}, err
		}
		proposalVotes = append(proposalVotes, votes...)

		activities, err := extractDelegatorActivities(txn)
		if err != nil {
			return ExtractedData{}, err
		}
		delegatorActivities = append(delegatorActivities, activities...)

		if err := extractDelegatorPools(txn, delegatorPools, &delegatorPoolBalances, currentDelegatorPoolBalances); err != nil {
			return ExtractedData{}, err
		}

		// Prepass: recognize GovernanceRecords and active-pool resources.
		for _, ch := range txn.Changes {
			if ch.Type != txstream.WriteSetChangeResource || ch.Resource == nil {
				continue
			}
			switch ch.Resource.TypeStr {
			case typeGovernanceRecords:
				var gr governanceRecordsResource
				if err := json.Unmarshal([]byte(ch.Resource.Data), &gr); err == nil && gr.VoteDelegationHandle != "" {
					poolAddr := addrutil.Standardize(ch.Resource.Address)
					voteDelegationHandleToPoolAddress[gr.VoteDelegationHandle] = poolAddr
					if handleCache != nil {
						handleCache.Put(gr.VoteDelegationHandle, poolAddr)
					}
				}
			case typeDelegationPool:
				poolAddr := addrutil.Standardize(ch.Resource.Address)
				if seenDelegationPools.Contains(poolAddr) {
					continue
				}
				var dp delegationPoolResource
				if err := json.Unmarshal([]byte(ch.Resource.Data), &dp); err == nil {
					if dp.ActiveShareTableHandle != "" {
						activePoolToStakingPool[dp.ActiveShareTableHandle] = poolAddr
					}
					if dp.InactiveShareTableHandle != "" {
						activePoolToStakingPool[dp.InactiveShareTableHandle] = poolAddr
					}
					seenDelegationPools.Add(poolAddr)
				}
			}
		}

		if conn != nil {
			balances, currBalances, err := extractDelegatorBalances(ctx, txn, activePoolToStakingPool, conn, retryPolicy)
			if err != nil {
				return ExtractedData{}, err
			}
			delegatorBalances = append(delegatorBalances, balances...)
			for k, v := range currBalances {
				currentDelegatorBalances[k] = v
			}

			ts, tsErr := addrutil.ParseTimestamp(processorName, txn.Version, txn.Timestamp)
			if tsErr != nil {
				return ExtractedData{}, tsErr
			}

			// First sweep: primary voter resolution via the handle map.
			for _, ch := range txn.Changes {
				if ch.Type != txstream.WriteSetChangeTableItem || ch.TableItem == nil {
					continue
				}
				voter, ok := extractCurrentDelegatedVoterPrimary(ch.TableItem, txn.Version, ts, voteDelegationHandleToPoolAddress, handleCache)
				if ok {
					currentDelegatedVoters[voter.PK()] = voter
				}
			}

			// Second sweep: pre-contract-deployment fallback via the
			// active-pool map, may still be overwritten by a later txn in
			// the same batch (map semantics, last write wins).
			for _, ch := range txn.Changes {
				if ch.Type != txstream.WriteSetChangeTableItem || ch.TableItem == nil {
					continue
				}
				voter, ok := extractCurrentDelegatedVoterPreContract(ch.TableItem, txn.Version, ts, activePoolToStakingPool, currentDelegatedVoters)
				if ok {
					currentDelegatedVoters[voter.PK()] = voter
				}
			}
		}
	}

	data := ExtractedData{
		CurrentStakingPoolVoters:      mapValues(currentStakePoolVoters),
		ProposalVotes:                 proposalVotes,
		DelegatorActivities:           delegatorActivities,
		DelegatorBalances:             delegatorBalances,
		CurrentDelegatorBalances:      mapValues(currentDelegatorBalances),
		DelegatorPools:                mapValues(delegatorPools),
		DelegatorPoolBalances:         delegatorPoolBalances,
		CurrentDelegatorPoolBalances:  mapValues(currentDelegatorPoolBalances),
		CurrentDelegatedVoters:        mapValues(currentDelegatedVoters),
	}
	sortAll(&data)
	return data, nil
}

func mapValues[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func sortAll(d *ExtractedData) {
	sort.Slice(d.CurrentStakingPoolVoters, func(i, j int) bool {
		return d.CurrentStakingPoolVoters[i].StakingPoolAddress < d.CurrentStakingPoolVoters[j].StakingPoolAddress
	})
	sort.Slice(d.CurrentDelegatorBalances, func(i, j int) bool {
		a, b := d.CurrentDelegatorBalances[i], d.CurrentDelegatorBalances[j]
		if a.DelegatorAddress != b.DelegatorAddress {
			return a.DelegatorAddress < b.DelegatorAddress
		}
		if a.PoolAddress != b.PoolAddress {
			return a.PoolAddress < b.PoolAddress
		}
		if a.PoolType != b.PoolType {
			return a.PoolType < b.PoolType
		}
		return a.TableHandle < b.TableHandle
	})
	sort.Slice(d.DelegatorPools, func(i, j int) bool {
		return d.DelegatorPools[i].StakingPoolAddress < d.DelegatorPools[j].StakingPoolAddress
	})
	sort.Slice(d.CurrentDelegatorPoolBalances, func(i, j int) bool {
		return d.CurrentDelegatorPoolBalances[i].StakingPoolAddress < d.CurrentDelegatorPoolBalances[j].StakingPoolAddress
	})
	sort.Slice(d.CurrentDelegatedVoters, func(i, j int) bool {
		a, b := d.CurrentDelegatedVoters[i], d.CurrentDelegatedVoters[j]
		if a.DelegationPoolAddress != b.DelegationPoolAddress {
			return a.DelegationPoolAddress < b.DelegationPoolAddress
		}
		return a.DelegatorAddress < b.DelegatorAddress
	})
}

func extractCurrentStakingPoolVoter(txn txstream.Transaction, into map[string]CurrentStakingPoolVoter) error {
	ts, err := addrutil.ParseTimestamp(processorName, txn.Version, txn.Timestamp)
	if err != nil {
		return err
	}
	for _, ch := range txn.Changes {
		if ch.Type != txstream.WriteSetChangeResource || ch.Resource == nil || ch.Resource.TypeStr != typeStakePool {
			continue
		}
		var sp stakePoolResource
		if err := json.Unmarshal([]byte(ch.Resource.Data), &sp); err != nil {
			continue // not a parse-fatal condition: malformed individual resource body is skipped
		}
		poolAddr := addrutil.Standardize(ch.Resource.Address)
		into[poolAddr] = CurrentStakingPoolVoter{
			StakingPoolAddress:     poolAddr,
			VoterAddress:           addrutil.Standardize(sp.DelegatedVoter),
			OperatorAddress:        addrutil.Standardize(sp.OperatorAddress),
			LastTransactionVersion: txn.Version,
			InsertedAt:             ts,
		}
	}
	return nil
}

// extractProposalVotes decodes 0x1::aptos_governance::VoteEvent entries off
// txn.Events, mirroring RawProposalVote::from_transaction. A malformed or
// unparseable individual event is skipped, not parse-fatal, matching the
// resource-decode passes above.
func extractProposalVotes(txn txstream.Transaction) ([]ProposalVote, error) {
	if len(txn.Events) == 0 {
		return nil, nil
	}
	ts, err := addrutil.ParseTimestamp(processorName, txn.Version, txn.Timestamp)
	if err != nil {
		return nil, err
	}

	var votes []ProposalVote
	for _, ev := range txn.Events {
		if ev.Type != typeVoteEvent {
			continue
		}
		var v voteEventData
		if err := json.Unmarshal([]byte(ev.Data), &v); err != nil {
			continue
		}
		proposalID, err := strconv.ParseUint(v.ProposalID, 10, 64)
		if err != nil {
			continue
		}
		numVotes, _ := uint256.FromDecimal(orZero(v.NumVotes))
		votes = append(votes, ProposalVote{
			TransactionVersion:   txn.Version,
			ProposalID:           proposalID,
			VoterAddress:         addrutil.Standardize(v.Voter),
			StakePool:            addrutil.Standardize(v.StakePool),
			NumVotes:             numVotes,
			ShouldPass:           v.ShouldPass,
			TransactionTimestamp: ts,
		})
	}
	return votes, nil
}

// extractDelegatorActivities decodes the four delegation_pool activity
// events (Add/Unlock/Withdraw/Reactivate)Stake off txn.Events, mirroring
// RawDelegatedStakingActivity::from_transaction. EventIndex is the event's
// position within the transaction's event list, matching the append-only
// (transaction_version, event_index) conflict key.
func extractDelegatorActivities(txn txstream.Transaction) ([]DelegatedStakingActivity, error) {
	var activities []DelegatedStakingActivity
	for i, ev := range txn.Events {
		poolAddr, delegatorAddr, amount, ok := classifyActivityEvent(ev)
		if !ok {
			continue
		}
		amt, _ := uint256.FromDecimal(orZero(amount))
		activities = append(activities, DelegatedStakingActivity{
			TransactionVersion: txn.Version,
			EventIndex:         uint64(i),
			PoolAddress:        poolAddr,
			DelegatorAddress:   delegatorAddr,
			EventType:          ev.Type,
			Amount:             amt,
		})
	}
	return activities, nil
}

// classifyActivityEvent reports whether ev is one of the four recognized
// delegation-pool activity events and, if so, its pool/delegator addresses
// and the amount carried under that event type's differently-named field.
func classifyActivityEvent(ev txstream.Event) (poolAddr, delegatorAddr, amount string, ok bool) {
	if ev.Type != typeAddStakeEvent && ev.Type != typeUnlockStakeEvent &&
		ev.Type != typeWithdrawStakeEvent && ev.Type != typeReactivateStakeEvent {
		return "", "", "", false
	}
	var d delegationActivityEventData
	if err := json.Unmarshal([]byte(ev.Data), &d); err != nil || d.PoolAddress == "" || d.DelegatorAddress == "" {
		return "", "", "", false
	}

	switch ev.Type {
	case typeAddStakeEvent:
		amount = d.AmountAdded
	case typeUnlockStakeEvent:
		amount = d.AmountUnlocked
	case typeWithdrawStakeEvent:
		amount = d.AmountWithdrawn
	case typeReactivateStakeEvent:
		amount = d.AmountReactivated
	}
	return addrutil.Standardize(d.PoolAddress), addrutil.Standardize(d.DelegatorAddress), amount, true
}

func extractDelegatorPools(txn txstream.Transaction, pools map[string]DelegatorPool, poolBalances *[]DelegatorPoolBalance, currentBalances map[string]CurrentDelegatorPoolBalance) error {
	ts, err := addrutil.ParseTimestamp(processorName, txn.Version, txn.Timestamp)
	if err != nil {
		return err
	}
	for _, ch := range txn.Changes {
		if ch.Type != txstream.WriteSetChangeResource || ch.Resource == nil || ch.Resource.TypeStr != typeDelegationPool {
			continue
		}
		var dp delegationPoolResource
		if err := json.Unmarshal([]byte(ch.Resource.Data), &dp); err != nil {
			continue
		}
		poolAddr := addrutil.Standardize(ch.Resource.Address)

		if _, exists := pools[poolAddr]; !exists {
			pools[poolAddr] = DelegatorPool{
				StakingPoolAddress:      poolAddr,
				FirstTransactionVersion: txn.Version,
				InsertedAt:              ts,
			}
		}

		totalCoins, _ := uint256.FromDecimal(orZero(dp.TotalCoins))
		totalShares, _ := uint256.FromDecimal(orZero(dp.TotalShares))
		commission := parseCommission(dp.OperatorCommissionPercentage)

		*poolBalances = append(*poolBalances, DelegatorPoolBalance{
			TransactionVersion:            txn.Version,
			StakingPoolAddress:            poolAddr,
			TotalCoins:                    totalCoins,
			TotalShares:                   totalShares,
			OperatorCommissionPercentage:  commission,
			InactiveTableHandle:           dp.InactiveShareTableHandle,
			ActiveTableHandle:             dp.ActiveShareTableHandle,
		})

		currentBalances[poolAddr] = CurrentDelegatorPoolBalance{
			StakingPoolAddress:           poolAddr,
			TotalCoins:                   totalCoins,
			TotalShares:                  totalShares,
			LastTransactionVersion:       txn.Version,
			OperatorCommissionPercentage: commission,
			InactiveTableHandle:          dp.InactiveShareTableHandle,
			ActiveTableHandle:            dp.ActiveShareTableHandle,
			InsertedAt:                   ts,
		}
	}
	return nil
}

func extractDelegatorBalances(ctx context.Context, txn txstream.Transaction, activePoolToStakingPool map[string]string, conn ReadConn, retryPolicy retry.Policy) ([]DelegatorBalance, map[[4]string]CurrentDelegatorBalance, error) {
	var balances []DelegatorBalance
	current := map[[4]string]CurrentDelegatorBalance{}

	for i, ch := range txn.Changes {
		if ch.Type != txstream.WriteSetChangeTableItem || ch.TableItem == nil {
			continue
		}
		poolAddr, ok := activePoolToStakingPool[ch.TableItem.Handle]
		if !ok {
			continue
		}
		var sv sharesTableValue
		if err := json.Unmarshal([]byte(ch.TableItem.Data), &sv); err != nil {
			continue
		}
		if sv.DelegatorAddress == "" {
			continue
		}

		_, err := retry.Do(ctx, retryPolicy, func(ctx context.Context) (struct{}, error) {
			_, readErr := conn.ReadResource(ctx, poolAddr, typeDelegationPool)
			return struct{}{}, readErr
		})
		if err != nil && !chainindexererrors.IsTransient(err) {
			return nil, nil, chainindexererrors.NewParseError(processorName, txn.Version, txn.Version, err)
		}

		shares, _ := uint256.FromDecimal(orZero(sv.Shares))
		delegatorAddr := addrutil.Standardize(sv.DelegatorAddress)

		balances = append(balances, DelegatorBalance{
			TransactionVersion:  txn.Version,
			WriteSetChangeIndex: uint64(i),
			DelegatorAddress:    delegatorAddr,
			PoolAddress:         poolAddr,
			PoolType:            "active_shares",
			TableHandle:         ch.TableItem.Handle,
			Shares:              shares,
			ParentTableHandle:   sv.ParentTableHandle,
		})

		key := [4]string{delegatorAddr, poolAddr, "active_shares", ch.TableItem.Handle}
		current[key] = CurrentDelegatorBalance{
			DelegatorAddress:       delegatorAddr,
			PoolAddress:            poolAddr,
			PoolType:               "active_shares",
			TableHandle:            ch.TableItem.Handle,
			LastTransactionVersion: txn.Version,
			Shares:                 shares,
			ParentTableHandle:      sv.ParentTableHandle,
		}
	}

	return balances, current, nil
}

// extractCurrentDelegatedVoterPrimary resolves a vote-delegation table item
// to its owning pool via the batch-scoped handle map, falling back to the
// cross-batch HandleResolutionCache (SPEC_FULL.md §4.8) when the pool's
// GovernanceRecords write landed in an earlier batch.
func extractCurrentDelegatedVoterPrimary(item *txstream.WriteTableItem, version uint64, ts time.Time, handleToPool map[string]string, handleCache *HandleResolutionCache) (CurrentDelegatedVoter, bool) {
	poolAddr, ok := handleToPool[item.Handle]
	if !ok && handleCache != nil {
		poolAddr, ok = handleCache.Get(item.Handle)
	}
	if !ok {
		return CurrentDelegatedVoter{}, false
	}
	var vv voteDelegationTableValue
	if err := json.Unmarshal([]byte(item.Data), &vv); err != nil || vv.DelegatorAddress == "" {
		return CurrentDelegatedVoter{}, false
	}
	return CurrentDelegatedVoter{
		DelegationPoolAddress:    poolAddr,
		DelegatorAddress:         addrutil.Standardize(vv.DelegatorAddress),
		Voter:                    addrutil.Standardize(vv.Voter),
		PendingVoter:             addrutil.Standardize(vv.PendingVoter),
		LastTransactionTimestamp: ts,
		LastTransactionVersion:   version,
		TableHandle:              item.Handle,
		InsertedAt:               ts,
	}, true
}

func extractCurrentDelegatedVoterPreContract(item *txstream.WriteTableItem, version uint64, ts time.Time, activePoolToStakingPool map[string]string, existing map[[2]string]CurrentDelegatedVoter) (CurrentDelegatedVoter, bool) {
	poolAddr, ok := activePoolToStakingPool[item.Handle]
	if !ok {
		return CurrentDelegatedVoter{}, false
	}
	var sv sharesTableValue
	if err := json.Unmarshal([]byte(item.Data), &sv); err != nil || sv.DelegatorAddress == "" {
		return CurrentDelegatedVoter{}, false
	}
	delegatorAddr := addrutil.Standardize(sv.DelegatorAddress)
	key := [2]string{poolAddr, delegatorAddr}
	if _, already := existing[key]; already {
		// A real voter-delegation record from an earlier transaction, or
		// from this transaction's primary sweep, already covers this
		// delegator in this batch; don't regress it to the pre-contract
		// default voter.
		return CurrentDelegatedVoter{}, false
	}
	return CurrentDelegatedVoter{
		DelegationPoolAddress:    poolAddr,
		DelegatorAddress:         delegatorAddr,
		Voter:                    poolAddr, // pre-contract default: the pool's operator votes on the delegator's behalf
		PendingVoter:             poolAddr,
		LastTransactionTimestamp: ts,
		LastTransactionVersion:   version,
		TableHandle:              item.Handle,
		InsertedAt:               ts,
	}, true
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func parseCommission(s string) float64 {
	if s == "" {
		return 0
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return 0
	}
	return f
}
