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
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AleutianAI/dualgraph/storage"
	badgerstore "github.com/AleutianAI/dualgraph/storage/badger"
)

// OpenSnapshotStore opens the snapshot backend the config names.
//
// Description:
//
//	"file" and "badger" open exactly that backend. "auto" prefers badger
//	and falls back to the file backend when the badger directory cannot
//	be opened (a stale lock, an unwritable disk), logging the downgrade
//	instead of failing startup.
//
// Outputs:
//
//	storage.Store - The opened backend. Caller must Close() it.
//	error - Non-nil when the named backend cannot be opened.
func OpenSnapshotStore(cfg Config, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	openFile := func() (storage.Store, error) {
		return storage.NewFileStore(filepath.Join(cfg.BaseDir, "projects"), logger)
	}
	openBadger := func() (storage.Store, error) {
		return badgerstore.Open(badgerstore.DefaultConfig(filepath.Join(cfg.BaseDir, "badger")))
	}

	switch cfg.Backend {
	case BackendFile:
		return openFile()
	case BackendBadger:
		return openBadger()
	case BackendAuto:
		s, err := openBadger()
		if err == nil {
			return s, nil
		}
		logger.Warn("badger backend unavailable, falling back to file backend",
			slog.String("error", err.Error()))
		return openFile()
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
