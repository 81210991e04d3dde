// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package addrutil normalizes on-chain addresses and converts protobuf
// timestamps, mirroring stake_processor.rs's standardize_address helper.
package addrutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const addressHexLen = 64

// Standardize lower-cases addr and zero-pads it to 64 hex characters after
// a leading "0x", matching the canonical form every row model and auxiliary
// map key uses. An address shorter than 64 hex chars after trimming "0x" is
// left-padded with zeros; longer inputs are returned lower-cased with a
// "0x" prefix but no padding, since they cannot be a valid account address.
func Standardize(addr string) string {
	trimmed := strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(trimmed) >= addressHexLen {
		return "0x" + trimmed
	}
	return "0x" + strings.Repeat("0", addressHexLen-len(trimmed)) + trimmed
}

// ParseTimestamp converts a protobuf Timestamp field into time.Time,
// returning a ParseError if ts is nil — the unwrapped-optional-field
// decision in SPEC_FULL.md §9's open question resolutions.
func ParseTimestamp(processorName string, version uint64, ts *timestamppb.Timestamp) (time.Time, error) {
	if ts == nil {
		return time.Time{}, chainindexererrors.NewParseError(processorName, version, version,
			fmt.Errorf("timestamp field is nil"))
	}
	return ts.AsTime(), nil
}
