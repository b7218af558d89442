// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// snapshotFileName is the snapshot document's name under each project dir.
const snapshotFileName = "project.json"

// FileStore keeps one snapshot file per project under a base directory:
// <base>/<key>/project.json. Writes go to a temp file in the same
// directory, are fsynced, then renamed over the old snapshot, so a crash
// never leaves a half-written document readable.
type FileStore struct {
	baseDir string
	logger  *slog.Logger
}

// NewFileStore creates a FileStore rooted at baseDir, creating it if
// needed. A nil logger falls back to slog.Default().
func NewFileStore(baseDir string, logger *slog.Logger) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", baseDir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{baseDir: baseDir, logger: logger}, nil
}

// Load returns the snapshot for the key, or ErrNotFound.
func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.snapshotPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return data, nil
}

// Save writes the snapshot atomically (write-temp-then-rename).
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	dir := filepath.Join(s.baseDir, key)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, snapshotFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot for %s: %w", key, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, s.snapshotPath(key)); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", key, err)
	}

	s.logger.DebugContext(ctx, "snapshot saved",
		slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) snapshotPath(key string) string {
	return filepath.Join(s.baseDir, key, snapshotFileName)
}
