// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config implements the strict RunConfig schema and the mode gate
// described in SPEC_FULL.md §4.5, ported from original_source's
// indexer_processor_config.rs (ProcessorMode enum, validate(), and
// get_server_name()) into an idiomatic Go strict-decode + validator.
package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/luxfi/chainindexer/internal/chainindexererrors"
	"gopkg.in/yaml.v3"
)

// Mode is the closed set of run modes a RunConfig may select, mirroring
// the Rust ProcessorMode enum.
type Mode string

const (
	ModeDefault  Mode = "default"
	ModeBackfill Mode = "backfill"
	ModeTesting  Mode = "testing"
)

func (m Mode) valid() bool {
	switch m {
	case ModeDefault, ModeBackfill, ModeTesting:
		return true
	default:
		return false
	}
}

// ProcessorConfig selects which processor runs and parameterizes its read
// retry policy, per spec.md §9's "retry is a value, not a global" note.
type ProcessorConfig struct {
	Type               string `yaml:"type"`
	QueryRetries       int    `yaml:"query_retries"`
	QueryRetryDelayMs  int    `yaml:"query_retry_delay_ms"`
}

// TransactionStreamConfig describes the upstream stream endpoint. The
// client itself is an external collaborator (SPEC_FULL.md §1); this struct
// only carries the connection parameters a config file needs.
type TransactionStreamConfig struct {
	Endpoint         string `yaml:"endpoint"`
	AuthToken        string `yaml:"auth_token"`
	StartingVersion  uint64 `yaml:"starting_version"`
}

// DBConfig describes the Postgres connection and per-table chunk sizing
// ChunkedWriter consumes.
type DBConfig struct {
	ConnectionString   string           `yaml:"connection_string"`
	PoolSize           int              `yaml:"pool_size"`
	PerTableChunkSize  map[string]int   `yaml:"per_table_chunk_size"`
}

// BackfillConfig is required when Mode == ModeBackfill.
type BackfillConfig struct {
	StartingVersion      uint64 `yaml:"starting_version"`
	EndingVersion        uint64 `yaml:"ending_version"`
	OverwriteCheckpoint  bool   `yaml:"overwrite_checkpoint"`
}

// BootstrapConfig is optional in any mode; when present it seeds a
// checkpoint the first time the processor runs.
type BootstrapConfig struct {
	StartingVersion uint64 `yaml:"starting_version"`
}

// TestingConfig is required when Mode == ModeTesting.
type TestingConfig struct {
	OverrideStartingVersion uint64 `yaml:"override_starting_version"`
	EndingVersion           uint64 `yaml:"ending_version"`
}

// RunConfig is the top-level, strictly-decoded configuration document.
type RunConfig struct {
	ProcessorConfig         ProcessorConfig          `yaml:"processor_config"`
	TransactionStreamConfig TransactionStreamConfig  `yaml:"transaction_stream_config"`
	DBConfig                DBConfig                 `yaml:"db_config"`
	Mode                    Mode                     `yaml:"mode"`
	BackfillConfig          *BackfillConfig          `yaml:"backfill_config"`
	BootstrapConfig         *BootstrapConfig         `yaml:"bootstrap_config"`
	TestingConfig           *TestingConfig           `yaml:"testing_config"`
}

// Load strict-decodes a RunConfig from raw YAML bytes, rejecting unknown
// fields, then validates the mode gate.
func Load(raw []byte) (*RunConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	// query_retries and query_retry_delay_ms default to 5 and 500 when the
	// document leaves them out.
	cfg := RunConfig{ProcessorConfig: ProcessorConfig{QueryRetries: 5, QueryRetryDelayMs: 500}}
	if err := dec.Decode(&cfg); err != nil {
		return nil, chainindexererrors.NewConfigError("<document>", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the mode-gate rules from SPEC_FULL.md §4.5: testing
// mode requires testing_config, backfill mode requires backfill_config,
// default mode requires neither. It also rejects an inconsistent
// TestingConfig range (the Open Question decision recorded in DESIGN.md).
func (c *RunConfig) Validate() error {
	if !c.Mode.valid() {
		return chainindexererrors.NewConfigError("mode",
			fmt.Errorf("unknown mode %q", c.Mode))
	}

	switch c.Mode {
	case ModeTesting:
		if c.TestingConfig == nil {
			return chainindexererrors.NewConfigError("testing_config",
				fmt.Errorf("required when mode is %q", ModeTesting))
		}
		if c.TestingConfig.OverrideStartingVersion > c.TestingConfig.EndingVersion {
			return chainindexererrors.NewConfigError("testing_config.override_starting_version",
				fmt.Errorf("override_starting_version (%d) must not exceed ending_version (%d)",
					c.TestingConfig.OverrideStartingVersion, c.TestingConfig.EndingVersion))
		}
	case ModeBackfill:
		if c.BackfillConfig == nil {
			return chainindexererrors.NewConfigError("backfill_config",
				fmt.Errorf("required when mode is %q", ModeBackfill))
		}
		if c.BackfillConfig.StartingVersion > c.BackfillConfig.EndingVersion {
			return chainindexererrors.NewConfigError("backfill_config.starting_version",
				fmt.Errorf("starting_version (%d) must not exceed ending_version (%d)",
					c.BackfillConfig.StartingVersion, c.BackfillConfig.EndingVersion))
		}
	case ModeDefault:
		// No side config required; extras are not rejected, since a
		// bootstrap_config may still legitimately accompany default mode.
	}

	if c.ProcessorConfig.QueryRetries < 0 {
		return chainindexererrors.NewConfigError("processor_config.query_retries",
			fmt.Errorf("must be >= 0"))
	}
	if c.ProcessorConfig.QueryRetryDelayMs < 0 {
		return chainindexererrors.NewConfigError("processor_config.query_retry_delay_ms",
			fmt.Errorf("must be >= 0"))
	}

	return nil
}

// GetServerName derives the checkpoint/metrics server name from the
// processor type: a leading "parquet_" variant marker (spec.md §4.5's
// parquet_… processor names) is kept verbatim, the remaining name is cut
// to its segment before the first underscore, and the recombined string is
// truncated to 12 characters — matching both of spec.md §8's worked
// examples (get_server_name("stake_processor") == "stake" and
// get_server_name("parquet_stake_processor") == "parquet_stak").
func GetServerName(processorType string) string {
	const parquetPrefix = "parquet_"

	prefix := ""
	name := processorType
	if strings.HasPrefix(name, parquetPrefix) {
		prefix = parquetPrefix
		name = strings.TrimPrefix(name, parquetPrefix)
	}
	if idx := strings.IndexByte(name, '_'); idx >= 0 {
		name = name[:idx]
	}

	combined := prefix + name
	if len(combined) > 12 {
		combined = combined[:12]
	}
	return combined
}
