// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validYAML(mode string, extra string) string {
	return `
processor_config:
  type: stake
  query_retries: 3
  query_retry_delay_ms: 100
transaction_stream_config:
  endpoint: "https://example.com"
  auth_token: "tok"
  starting_version: 0
db_config:
  connection_string: "postgres://localhost/db"
  pool_size: 5
  per_table_chunk_size:
    current_staking_pool_voter: 500
mode: ` + mode + "\n" + extra
}

func TestLoad_DefaultMode_NoSideConfigRequired(t *testing.T) {
	cfg, err := Load([]byte(validYAML("default", "")))
	require.NoError(t, err)
	assert.Equal(t, ModeDefault, cfg.Mode)
}

func TestLoad_BackfillMode_RequiresBackfillConfig(t *testing.T) {
	_, err := Load([]byte(validYAML("backfill", "")))
	require.Error(t, err)

	cfg, err := Load([]byte(validYAML("backfill", `backfill_config:
  starting_version: 0
  ending_version: 100
  overwrite_checkpoint: true
`)))
	require.NoError(t, err)
	require.NotNil(t, cfg.BackfillConfig)
	assert.True(t, cfg.BackfillConfig.OverwriteCheckpoint)
}

func TestLoad_TestingMode_RequiresTestingConfig(t *testing.T) {
	_, err := Load([]byte(validYAML("testing", "")))
	require.Error(t, err)
}

func TestLoad_TestingMode_RejectsInvertedRange(t *testing.T) {
	_, err := Load([]byte(validYAML("testing", `testing_config:
  override_starting_version: 100
  ending_version: 50
`)))
	require.Error(t, err)
}

func TestLoad_UnknownField_Rejected(t *testing.T) {
	raw := validYAML("default", "") + "\nunknown_top_level_field: true\n"
	_, err := Load([]byte(raw))
	require.Error(t, err)
}

func TestGetServerName(t *testing.T) {
	cases := map[string]string{
		"stake_processor":             "stake",
		"user_transaction_processor":  "user",
		"noseparator":                 "noseparator",
		"a_b_c":                       "a",
		"parquet_stake_processor":     "parquet_stak", // spec.md §8's literal worked example
	}
	for in, want := range cases {
		assert.Equal(t, want, GetServerName(in), in)
	}
}
