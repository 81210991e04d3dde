// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package retry implements the (retries, delay_ms)-parameterized read retry
// policy SPEC_FULL.md §7/§9 call for: a plain value passed by the caller,
// never a package-global wrapper, wrapping cenkalti/backoff/v5's generic
// Retry.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luxfi/chainindexer/internal/chainindexererrors"
)

// Policy parameterizes a constant-delay retry loop around DB reads only;
// writes rely on the monotonicity guard for safety and never retry.
type Policy struct {
	MaxRetries int
	DelayMs    int
}

// NewPolicy builds a Policy from the ProcessorConfig fields it's
// constructed from at the call site.
func NewPolicy(maxRetries, delayMs int) Policy {
	return Policy{MaxRetries: maxRetries, DelayMs: delayMs}
}

// Do runs op, retrying on a TransientDBError up to p.MaxRetries times with
// a constant p.DelayMs delay between attempts. A FatalDBError, ParseError,
// or any other error is returned immediately without retry.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx,
		func() (T, error) {
			v, err := op(ctx)
			if err == nil {
				return v, nil
			}
			if chainindexererrors.IsTransient(err) {
				return v, err
			}
			return v, backoff.Permanent(err)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(time.Duration(p.DelayMs)*time.Millisecond)),
		backoff.WithMaxTries(uint(p.MaxRetries)+1),
	)
}
