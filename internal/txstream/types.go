// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txstream defines the input data model (SPEC_FULL.md §6) and the
// TransactionStream boundary the rest of this module consumes. The actual
// gRPC wire client is an external collaborator and is never built here;
// only the interface and a test fake live in this package.
package txstream

import (
	"context"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// WriteSetChangeType discriminates the sum type spec.md §6 describes as
// WriteResource | WriteTableItem.
type WriteSetChangeType int

const (
	WriteSetChangeUnknown WriteSetChangeType = iota
	WriteSetChangeResource
	WriteSetChangeTableItem
)

// WriteResource mirrors a Move resource write: a typed account resource
// replaced wholesale (e.g. 0x1::delegation_pool::GovernanceRecords).
type WriteResource struct {
	Address      string
	TypeStr      string // fully-qualified Move type, e.g. "0x1::delegation_pool::DelegationPool"
	Data         string // JSON-encoded resource body
}

// WriteTableItem mirrors a Move table entry write: a single key/value pair
// inside an on-chain table handle.
type WriteTableItem struct {
	Handle   string
	Key      string
	Data     string // JSON-encoded value body
	KeyType  string
	ValueType string
}

// WriteSetChange is the sum type every extractor pattern-matches on; the
// Resource/TableItem pointer fields behave like a Go-idiomatic two-case
// union (spec.md §9 design note: sum type for write-set changes).
type WriteSetChange struct {
	Type     WriteSetChangeType
	Resource *WriteResource
	TableItem *WriteTableItem
}

// Event is a single Move event emitted by a transaction, e.g. a
// 0x1::aptos_governance::VoteEvent or one of the
// 0x1::delegation_pool::{Add,Unlock,Withdraw,Reactivate}StakeEvent family.
// Events arrive out of band of WriteSetChanges in the real stream, which is
// why proposal votes and delegator activities need their own field rather
// than being pattern-matched off Changes like the resource/table-item
// extractors.
type Event struct {
	Type string
	Data string // JSON-encoded event body
}

// Transaction is a single committed ledger transaction as delivered by the
// upstream stream. Request, ExpirationTimestampSecs, Timestamp, and Info
// are conceptually non-optional on a committed user transaction but are
// represented as pointers/zero-values here since the wire format marks them
// optional; extractors must treat their absence as a ParseError rather than
// dereferencing blindly (SPEC_FULL.md Open Questions).
type Transaction struct {
	Version   uint64
	Timestamp *timestamppb.Timestamp
	Info      *TransactionInfo
	Request   *UserTransactionRequest
	Changes   []WriteSetChange
	Events    []Event
}

// TransactionInfo carries execution-level metadata (success flag, gas
// used). No extractor in this module reads it.
type TransactionInfo struct {
	Success bool
	GasUsed uint64
}

// UserTransactionRequest carries the sender and expiration fields of a user
// transaction's request. No extractor in this module reads it.
type UserTransactionRequest struct {
	Sender                  string
	ExpirationTimestampSecs *uint64
}

// TransactionBatch is what ProcessorRuntime pulls from the stream: a
// contiguous, ordered run of transactions plus the version range it spans.
type TransactionBatch struct {
	StartVersion uint64
	EndVersion   uint64
	Transactions []Transaction
}

// TransactionStream is the boundary this module consumes; its concrete
// implementation (a gRPC client against the upstream indexer-stream
// service) is explicitly out of scope per SPEC_FULL.md §1.
type TransactionStream interface {
	// Next blocks until the next contiguous batch starting at
	// startVersion is available, or ctx is done.
	Next(ctx context.Context, startVersion uint64) (TransactionBatch, error)
}
