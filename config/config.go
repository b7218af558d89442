// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads engine configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment override variables.
const (
	EnvBaseDir  = "DUALGRAPH_BASE_DIR"
	EnvBackend  = "DUALGRAPH_BACKEND"
	EnvLogLevel = "DUALGRAPH_LOG_LEVEL"
)

// Backend names for snapshot storage.
const (
	// BackendAuto prefers badger and falls back to the file backend when
	// the badger directory cannot be opened.
	BackendAuto = "auto"

	// BackendFile stores one JSON document per project under the base dir.
	BackendFile = "file"

	// BackendBadger stores snapshots in an embedded BadgerDB.
	BackendBadger = "badger"
)

// Config is the engine's full configuration.
type Config struct {
	// BaseDir is the root directory for persisted state.
	BaseDir string `yaml:"base_dir"`

	// Backend selects snapshot storage: auto, file, or badger.
	Backend string `yaml:"backend"`

	// Log controls diagnostics output.
	Log LogConfig `yaml:"log"`
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// FilePath, when set, sends records to a file instead of stderr.
	FilePath string `yaml:"file_path"`
}

// Default returns the built-in configuration: auto backend under
// ~/.dualgraph, info-level JSON logs to stderr.
func Default() Config {
	base := ".dualgraph"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".dualgraph")
	}
	return Config{
		BaseDir: base,
		Backend: BackendAuto,
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path (when non-empty), then applies
// environment overrides. A missing path is not an error; the defaults
// plus environment win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseDir); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// validate rejects values the engine cannot act on.
func validate(cfg Config) error {
	switch cfg.Backend {
	case BackendAuto, BackendFile, BackendBadger:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s, or %s)",
			cfg.Backend, BackendAuto, BackendFile, BackendBadger)
	}
	if cfg.BaseDir == "" {
		return fmt.Errorf("base_dir must not be empty")
	}
	return nil
}
