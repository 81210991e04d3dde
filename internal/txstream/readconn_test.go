// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	calls int
}

func (r *countingReader) ReadResource(ctx context.Context, address, typeStr string) ([]byte, error) {
	r.calls++
	return []byte("resource-data"), nil
}

func TestCachedReadConn_CachesSecondRead(t *testing.T) {
	reader := &countingReader{}
	conn := NewCachedReadConn(reader, 1<<20)

	data1, err := conn.ReadResource(context.Background(), "0xabc", "0x1::stake::StakePool")
	require.NoError(t, err)
	assert.Equal(t, "resource-data", string(data1))

	data2, err := conn.ReadResource(context.Background(), "0xabc", "0x1::stake::StakePool")
	require.NoError(t, err)
	assert.Equal(t, "resource-data", string(data2))

	assert.Equal(t, 1, reader.calls)
}
