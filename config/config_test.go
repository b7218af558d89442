// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults when no file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, BackendAuto, cfg.Backend)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.NotEmpty(t, cfg.BaseDir)
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"base_dir: /var/lib/dualgraph\nbackend: file\nlog:\n  level: debug\n"), 0o640))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/dualgraph", cfg.BaseDir)
		assert.Equal(t, BackendFile, cfg.Backend)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend: file\n"), 0o640))
		t.Setenv(EnvBackend, "badger")
		t.Setenv(EnvLogLevel, "warn")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, BackendBadger, cfg.Backend)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		t.Setenv(EnvBackend, "etcd")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load("/nope/config.yaml")
		assert.Error(t, err)
	})
}

func TestOpenSnapshotStore(t *testing.T) {
	t.Run("file backend", func(t *testing.T) {
		cfg := Default()
		cfg.BaseDir = t.TempDir()
		cfg.Backend = BackendFile

		s, err := OpenSnapshotStore(cfg, nil)
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})

	t.Run("auto backend opens badger when possible", func(t *testing.T) {
		cfg := Default()
		cfg.BaseDir = t.TempDir()
		cfg.Backend = BackendAuto

		s, err := OpenSnapshotStore(cfg, nil)
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})
}
