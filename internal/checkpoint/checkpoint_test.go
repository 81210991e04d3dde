// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Exercising PostgresStore itself needs a live Postgres instance; these
// tests only verify the interface contract shape compiles against the
// production type. Integration coverage against a real database is outside
// what this exercise can run.
package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresStore_ImplementsStore(t *testing.T) {
	var _ Store = (*PostgresStore)(nil)
	assert.NotNil(t, NewPostgresStore(nil))
}
