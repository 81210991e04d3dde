// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	lru "github.com/hashicorp/golang-lru"
)

// HandleResolutionCache remembers vote_delegation_handle -> pool_address
// resolutions across batches, supplementing the batch-scoped prepass map
// for the case where a pool's GovernanceRecords write and a table-item
// write referencing its handle land in different batches
// (SPEC_FULL.md §4.8). The batch-scoped map built fresh each batch is
// still consulted first; this cache is only a fallback.
type HandleResolutionCache struct {
	cache *lru.Cache
}

// NewHandleResolutionCache builds a bounded LRU of the given size.
func NewHandleResolutionCache(size int) (*HandleResolutionCache, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &HandleResolutionCache{cache: c}, nil
}

func (c *HandleResolutionCache) Get(handle string) (string, bool) {
	v, ok := c.cache.Get(handle)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *HandleResolutionCache) Put(handle, poolAddress string) {
	c.cache.Add(handle, poolAddress)
}
