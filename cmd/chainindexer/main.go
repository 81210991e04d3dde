// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// chainindexer runs the stake-domain transaction indexer: load RunConfig,
// validate the mode gate, and drive ProcessorRuntime until cancelled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/chainindexer/internal/checkpoint"
	indexerconfig "github.com/luxfi/chainindexer/internal/config"
	"github.com/luxfi/chainindexer/internal/dbpg"
	"github.com/luxfi/chainindexer/internal/logging"
	"github.com/luxfi/chainindexer/internal/metrics"
	"github.com/luxfi/chainindexer/internal/processor"
	"github.com/luxfi/chainindexer/internal/retry"
	"github.com/luxfi/chainindexer/internal/runtime"
	"github.com/luxfi/chainindexer/internal/txstream"
	"github.com/luxfi/chainindexer/internal/txstream/fake"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const clientIdentifier = "chainindexer"

// readConnCacheBytes bounds the fastcache read-through cache in front of
// PostgresOnChainReader; delegator-balance extraction re-reads the same
// handful of pool rows far more often than pools churn within a batch.
const readConnCacheBytes = 32 << 20

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "stake-domain blockchain transaction indexer",
	Version: "1.0.0",
}

func init() {
	app.Action = run
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to the RunConfig YAML file"},
		&cli.StringFlag{Name: "log-level", Usage: "trace|debug|info|warn|error|crit", Value: "info"},
		&cli.StringFlag{Name: "log-file", Usage: "optional rotating log file path"},
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cliCtx.String("log-level")
	logCfg.FilePath = cliCtx.String("log-file")
	logger, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cliCtx.String("config"))
	if err != nil {
		return err
	}

	logger.Info("starting chainindexer",
		"processor", cfg.ProcessorConfig.Type,
		"mode", cfg.Mode,
		"server_name", indexerconfig.GetServerName(cfg.ProcessorConfig.Type))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpg.Open(ctx, cfg.DBConfig.ConnectionString, cfg.DBConfig.PoolSize)
	if err != nil {
		return err
	}
	defer pool.Close()

	retryPolicy := retry.NewPolicy(cfg.ProcessorConfig.QueryRetries, cfg.ProcessorConfig.QueryRetryDelayMs)
	m := metrics.New()
	readConn := txstream.NewCachedReadConn(txstream.NewPostgresOnChainReader(pool), readConnCacheBytes)
	stakeCore, err := processor.NewStakeCore(pool, readConn, cfg.DBConfig.PerTableChunkSize, retryPolicy, m, 4096)
	if err != nil {
		return err
	}
	checkpoints := checkpoint.NewPostgresStore(pool)

	// The real gRPC transaction-stream client is an external collaborator
	// (SPEC_FULL.md §1); "testing" mode runs against the in-memory fake so
	// the runtime can be exercised end-to-end without one.
	if cfg.Mode != indexerconfig.ModeTesting {
		return fmt.Errorf("no production TransactionStream client is wired; run in mode: testing, or supply one via a custom build")
	}
	stream := fake.New(nil, 1000)

	rt := runtime.New(stream, stakeCore, checkpoints)
	if cfg.Mode == indexerconfig.ModeBackfill && cfg.BackfillConfig != nil {
		rt.OverwriteCheckpoint = cfg.BackfillConfig.OverwriteCheckpoint
	}

	startVersion := cfg.TransactionStreamConfig.StartingVersion
	if cfg.Mode == indexerconfig.ModeTesting && cfg.TestingConfig != nil {
		startVersion = cfg.TestingConfig.OverrideStartingVersion
	}

	return rt.Run(ctx, startVersion)
}

// loadConfig reads the RunConfig YAML at path, allowing VIPER/pflag to
// overlay a CHAININDEXER_-prefixed environment variable for the path
// itself, matching the teacher's flag-driven cmd/ entrypoints.
func loadConfig(path string) (*indexerconfig.RunConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAININDEXER")
	v.AutomaticEnv()

	resolved := path
	if v.IsSet("config") && path == "" {
		resolved = v.GetString("config")
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	return indexerconfig.Load(raw)
}
