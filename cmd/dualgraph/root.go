// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/dualgraph/config"
	"github.com/AleutianAI/dualgraph/engine"
	"github.com/AleutianAI/dualgraph/pkg/logging"
	"github.com/AleutianAI/dualgraph/telemetry"
)

// Persistent flags shared by every subcommand. Flags beat the config
// file, which beats built-in defaults.
var (
	flagConfig   string
	flagBaseDir  string
	flagBackend  string
	flagLogLevel string
)

// rootCmd is the dualgraph entry point.
var rootCmd = &cobra.Command{
	Use:   "dualgraph",
	Short: "Dual-graph memory engine for coding agents",
	Long: `dualgraph maintains a Code Graph (directories, files, symbols,
concepts) and an Execution Trace Graph (tasks, steps, tool invocations,
checkpoints, errors) per project, and exposes five operations over a
stdio tool protocol.

Subcommands:
  serve  - Run the stdio JSON-RPC tool server
  index  - Index a project from a JSON manifest of file descriptors
  query  - Rank past steps against a free-text query`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagBaseDir, "base-dir", "", "Directory for persisted state (overrides config)")
	pf.StringVar(&flagBackend, "backend", "", "Snapshot backend: auto, file, or badger (overrides config)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// loadConfig merges the config file, environment, and flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagBaseDir != "" {
		cfg.BaseDir = flagBaseDir
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// setup builds the logger, snapshot store, and engine. The returned
// cleanup closes everything in reverse order.
func setup() (*engine.Engine, *slog.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closeLog, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Format:   logging.Format(cfg.Log.Format),
		FilePath: cfg.Log.FilePath,
		Service:  "dualgraph",
	})
	if err != nil {
		return nil, nil, nil, err
	}

	snapshots, err := config.OpenSnapshotStore(cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}

	eng := engine.New(snapshots,
		engine.WithLogger(logger),
		engine.WithMetrics(telemetry.NewMetrics(prometheus.DefaultRegisterer)),
	)
	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Error("close engine", slog.String("error", err.Error()))
		}
		closeLog()
	}
	return eng, logger, cleanup, nil
}
